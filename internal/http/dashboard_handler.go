package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/karloscodes/cartridge"

	"soundpulse/internal/catalog"
	"soundpulse/internal/events"
	"soundpulse/internal/pkg/async"
	"soundpulse/internal/stats"
	"soundpulse/internal/timerange"
)

// dashboard fan-out width: enough to overlap the store reads without
// exhausting the SQLite connection pool.
const dashboardWorkers = 4

// EngagementRates are interaction counts as percentages of plays.
type EngagementRates struct {
	LikeRate     float64 `json:"like_rate"`
	ShareRate    float64 `json:"share_rate"`
	SaveRate     float64 `json:"save_rate"`
	DownloadRate float64 `json:"download_rate"`
}

// TopTrack is one entry of the dashboard's top-tracks list.
type TopTrack struct {
	TrackID uint   `json:"track_id"`
	Title   string `json:"title"`
	Plays   int64  `json:"plays"`
}

// RecentActivity is the latest raw interactions for the artist's tracks.
type RecentActivity struct {
	Plays         []events.PlayEvent         `json:"plays"`
	Likes         []events.LikeEvent         `json:"likes"`
	Downloads     []events.DownloadEvent     `json:"downloads"`
	ProfileVisits []events.ProfileVisitEvent `json:"profile_visits"`
}

// DashboardResponse is everything the artist dashboard renders for one range.
type DashboardResponse struct {
	TimeRange       string                      `json:"time_range"`
	Overview        stats.AggregatedStats       `json:"overview"`
	Growth          stats.GrowthMetrics         `json:"growth"`
	EngagementRates EngagementRates             `json:"engagement_rates"`
	TopTracks       []TopTrack                  `json:"top_tracks"`
	RecentActivity  RecentActivity              `json:"recent_activity"`
	Playlists       []catalog.PlaylistPlacement `json:"playlists"`
}

// DashboardStatsAction serves GET /dashboard/stats for the
// authenticated user's own artist profile.
func DashboardStatsAction(ctx *cartridge.Context) error {
	user := authenticatedUser(ctx)
	if user == nil {
		return unauthorized(ctx)
	}

	db := ctx.DBManager.GetConnection()
	artist, err := catalog.FindArtistByUser(db, user.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrArtistNotFound) {
			return notFound(ctx, "no artist profile for this account")
		}
		ctx.Logger.Error("Failed to load artist profile", slog.Any("error", err))
		return serverError(ctx)
	}

	trackIDs, err := catalog.GetPublicTrackIDs(db, artist.ID)
	if err != nil {
		ctx.Logger.Error("Failed to resolve artist tracks", slog.Any("error", err))
		return serverError(ctx)
	}

	rng := timerange.ResolveNow(ctx.Query("timeRange"))
	logger := ctx.Logger

	overview, err := stats.NewAggregator(db, logger).Aggregate(trackIDs, rng)
	if err != nil {
		logger.Error("Failed to aggregate dashboard stats", slog.Any("error", err))
		return serverError(ctx)
	}

	tasks := []async.Task{
		{
			Name: "growth",
			Execute: func() (interface{}, error) {
				return stats.Growth(db, logger, trackIDs, overview, rng)
			},
		},
		{
			Name: "topTracks",
			Execute: func() (interface{}, error) {
				return events.GetTopTrackIDsByPlays(db, trackIDs, rng.From, rng.To, 5)
			},
		},
		{
			Name: "recentPlays",
			Execute: func() (interface{}, error) {
				return events.GetRecentPlays(db, trackIDs, 10)
			},
		},
		{
			Name: "recentLikes",
			Execute: func() (interface{}, error) {
				return events.GetRecentLikes(db, trackIDs, 5)
			},
		},
		{
			Name: "recentDownloads",
			Execute: func() (interface{}, error) {
				return events.GetRecentDownloads(db, trackIDs, 5)
			},
		},
		{
			Name: "profileVisits",
			Execute: func() (interface{}, error) {
				return events.GetRecentProfileVisits(db, artist.ID, 5)
			},
		},
		{
			Name: "playlists",
			Execute: func() (interface{}, error) {
				return catalog.GetPlaylistPlacements(db, trackIDs, 5)
			},
		},
	}

	results := async.NewPool(dashboardWorkers).Execute(context.Background(), tasks)
	for name, result := range results {
		if result.Err != nil {
			logger.Error("Dashboard query failed",
				slog.String("query", name), slog.Any("error", result.Err))
			return serverError(ctx)
		}
	}

	topTracks, err := resolveTopTracks(ctx, results["topTracks"].Data.([]events.TrackPlayCount))
	if err != nil {
		logger.Error("Failed to resolve top track titles", slog.Any("error", err))
		return serverError(ctx)
	}

	return ctx.JSON(DashboardResponse{
		TimeRange:       string(rng.Token),
		Overview:        overview,
		Growth:          results["growth"].Data.(stats.GrowthMetrics),
		EngagementRates: engagementRates(overview),
		TopTracks:       topTracks,
		RecentActivity: RecentActivity{
			Plays:         results["recentPlays"].Data.([]events.PlayEvent),
			Likes:         results["recentLikes"].Data.([]events.LikeEvent),
			Downloads:     results["recentDownloads"].Data.([]events.DownloadEvent),
			ProfileVisits: results["profileVisits"].Data.([]events.ProfileVisitEvent),
		},
		Playlists: results["playlists"].Data.([]catalog.PlaylistPlacement),
	})
}

func engagementRates(overview stats.AggregatedStats) EngagementRates {
	if overview.TotalPlays == 0 {
		return EngagementRates{}
	}
	plays := float64(overview.TotalPlays)
	return EngagementRates{
		LikeRate:     float64(overview.TotalLikes) / plays * 100,
		ShareRate:    float64(overview.TotalShares) / plays * 100,
		SaveRate:     float64(overview.TotalSaves) / plays * 100,
		DownloadRate: float64(overview.TotalDownloads) / plays * 100,
	}
}

func resolveTopTracks(ctx *cartridge.Context, counts []events.TrackPlayCount) ([]TopTrack, error) {
	ids := make([]uint, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.TrackID)
	}
	tracks, err := catalog.GetTracksByIDs(ctx.DBManager.GetConnection(), ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[uint]string, len(tracks))
	for _, t := range tracks {
		titles[t.ID] = t.Title
	}

	top := make([]TopTrack, 0, len(counts))
	for _, c := range counts {
		top = append(top, TopTrack{TrackID: c.TrackID, Title: titles[c.TrackID], Plays: c.Count})
	}
	return top, nil
}
