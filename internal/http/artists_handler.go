package http

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"soundpulse/internal/catalog"
	"soundpulse/internal/jobs"
	"soundpulse/internal/timerange"
)

const defaultTopLimit = 50

// ScoresHandler serves artist-strength endpoints. It holds the batch
// coordinator so HTTP triggers and status queries see the same jobs as
// the scheduler's periodic refresh.
type ScoresHandler struct {
	coordinator *jobs.Coordinator
}

// NewScoresHandler wires the handler to the running coordinator.
func NewScoresHandler(coordinator *jobs.Coordinator) *ScoresHandler {
	return &ScoresHandler{coordinator: coordinator}
}

// RankedArtist is one row of the top-artists list; the full breakdown
// is only served by the single-artist endpoint.
type RankedArtist struct {
	ArtistID        uint    `json:"artist_id"`
	ArtistName      string  `json:"artist_name"`
	EngagementScore float64 `json:"engagement_score"`
	GrowthScore     float64 `json:"growth_score"`
	QualityScore    float64 `json:"quality_score"`
	PotentialScore  float64 `json:"potential_score"`
	OverallScore    float64 `json:"overall_score"`
	ScoreCategory   string  `json:"score_category"`
	Rank            int     `json:"rank"`
}

// TopArtistsAction serves GET /stats/artists/top.
func (h *ScoresHandler) TopArtistsAction(ctx *cartridge.Context) error {
	if authenticatedUser(ctx) == nil {
		return unauthorized(ctx)
	}

	rng := timerange.ResolveNow(ctx.Query("timeRange"))
	minScore, _ := strconv.ParseFloat(ctx.Query("minScore", "0"), 64)
	limit, err := strconv.Atoi(ctx.Query("limit", strconv.Itoa(defaultTopLimit)))
	if err != nil || limit <= 0 {
		limit = defaultTopLimit
	}
	page, err := strconv.Atoi(ctx.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	scores, err := newScoringService(ctx).RankedScores(rng, minScore, page, limit)
	if err != nil {
		ctx.Logger.Error("Failed to rank artists", slog.Any("error", err))
		return serverError(ctx)
	}

	ranked := make([]RankedArtist, 0, len(scores))
	for _, s := range scores {
		ranked = append(ranked, RankedArtist{
			ArtistID:        s.ArtistID,
			ArtistName:      s.ArtistName,
			EngagementScore: s.EngagementScore,
			GrowthScore:     s.GrowthScore,
			QualityScore:    s.QualityScore,
			PotentialScore:  s.PotentialScore,
			OverallScore:    s.OverallScore,
			ScoreCategory:   s.ScoreCategory,
			Rank:            s.Rank,
		})
	}

	return ctx.JSON(fiber.Map{
		"time_range": string(rng.Token),
		"artists":    ranked,
	})
}

// ArtistStrengthAction serves GET /stats/artist/:id/strength with the
// full breakdown.
func (h *ScoresHandler) ArtistStrengthAction(ctx *cartridge.Context) error {
	if authenticatedUser(ctx) == nil {
		return unauthorized(ctx)
	}

	id, err := strconv.ParseUint(ctx.Params("id"), 10, 64)
	if err != nil {
		return ctx.Status(400).JSON(fiber.Map{"error": "invalid artist id"})
	}

	db := ctx.DBManager.GetConnection()
	artist, err := catalog.FindArtist(db, uint(id))
	if err != nil {
		if errors.Is(err, catalog.ErrArtistNotFound) {
			return notFound(ctx, "artist not found")
		}
		ctx.Logger.Error("Failed to load artist", slog.Any("error", err))
		return serverError(ctx)
	}

	rng := timerange.ResolveNow(ctx.Query("timeRange"))
	score, err := newScoringService(ctx).ScoreArtist(*artist, rng)
	if err != nil {
		ctx.Logger.Error("Failed to score artist",
			slog.Uint64("artist_id", id), slog.Any("error", err))
		return serverError(ctx)
	}

	return ctx.JSON(fiber.Map{
		"time_range": string(rng.Token),
		"score":      score,
	})
}

type batchCalculateRequest struct {
	TimeRange string `json:"timeRange"`
}

// BatchCalculateAction serves POST /stats/batch-calculate. It accepts
// the run and returns immediately; progress is polled via the status
// endpoint.
func (h *ScoresHandler) BatchCalculateAction(ctx *cartridge.Context) error {
	user := authenticatedUser(ctx)
	if user == nil {
		return unauthorized(ctx)
	}
	if !user.IsAdmin {
		return forbidden(ctx)
	}

	var req batchCalculateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	job, started := h.coordinator.Trigger(req.TimeRange)
	ctx.Logger.Info("Batch recalculation trigger accepted",
		slog.String("job_id", job.ID),
		slog.String("time_range", job.TimeRange),
		slog.Bool("started", started))

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":     job.ID,
		"time_range": job.TimeRange,
		"status":     job.Status,
	})
}

// BatchStatusAction serves GET /stats/batch-calculate/:jobId.
func (h *ScoresHandler) BatchStatusAction(ctx *cartridge.Context) error {
	user := authenticatedUser(ctx)
	if user == nil {
		return unauthorized(ctx)
	}
	if !user.IsAdmin {
		return forbidden(ctx)
	}

	job, ok := h.coordinator.GetJob(ctx.Params("jobId"))
	if !ok {
		return notFound(ctx, "job not found")
	}
	return ctx.JSON(job)
}
