package http

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"soundpulse/internal/catalog"
	"soundpulse/internal/events"
	"soundpulse/internal/stats"
	"soundpulse/internal/timerange"
)

var (
	countryQuery = gountries.New()
	titleCaser   = cases.Title(language.English)
)

var validMetrics = map[string]bool{
	"plays": true, "likes": true, "shares": true, "downloads": true, "saves": true,
}

// BreakdownEntry is one labeled slice of a plays breakdown.
type BreakdownEntry struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// AnalyticsResponse is the aggregate answer for one metric over one range.
type AnalyticsResponse struct {
	Metric           string                `json:"metric"`
	TimeRange        string                `json:"time_range"`
	Stats            stats.AggregatedStats `json:"stats"`
	SourceBreakdown  []BreakdownEntry      `json:"source_breakdown,omitempty"`
	CountryBreakdown []BreakdownEntry      `json:"country_breakdown,omitempty"`
}

// AnalyticsStatsAction serves GET /stats/analytics. Scope narrows by
// trackId first, then artistId; with neither the query is global,
// which only admins may run.
func AnalyticsStatsAction(ctx *cartridge.Context) error {
	user := authenticatedUser(ctx)
	if user == nil {
		return unauthorized(ctx)
	}

	db := ctx.DBManager.GetConnection()

	var trackIDs []uint
	switch {
	case ctx.Query("trackId") != "":
		id, err := strconv.ParseUint(ctx.Query("trackId"), 10, 64)
		if err != nil {
			return ctx.Status(400).JSON(fiber.Map{"error": "invalid trackId"})
		}
		trackIDs = []uint{uint(id)}
	case ctx.Query("artistId") != "":
		id, err := strconv.ParseUint(ctx.Query("artistId"), 10, 64)
		if err != nil {
			return ctx.Status(400).JSON(fiber.Map{"error": "invalid artistId"})
		}
		trackIDs, err = catalog.GetPublicTrackIDs(db, uint(id))
		if err != nil {
			ctx.Logger.Error("Failed to resolve artist tracks", slog.Any("error", err))
			return serverError(ctx)
		}
	default:
		if !user.IsAdmin {
			return forbidden(ctx)
		}
		var err error
		trackIDs, err = catalog.GetAllPublicTrackIDs(db)
		if err != nil {
			ctx.Logger.Error("Failed to resolve global tracks", slog.Any("error", err))
			return serverError(ctx)
		}
	}

	metric := ctx.Query("metric", "plays")
	if !validMetrics[metric] {
		metric = "plays"
	}

	rng := timerange.ResolveNow(ctx.Query("timeRange"))
	aggregated, err := stats.NewAggregator(db, ctx.Logger).Aggregate(trackIDs, rng)
	if err != nil {
		ctx.Logger.Error("Failed to aggregate stats", slog.Any("error", err))
		return serverError(ctx)
	}

	response := AnalyticsResponse{
		Metric:    metric,
		TimeRange: string(rng.Token),
		Stats:     aggregated,
	}

	if metric == "plays" {
		sources, err := events.GetPlaySourceBreakdown(db, trackIDs, rng.From, rng.To)
		if err != nil {
			ctx.Logger.Error("Failed to fetch source breakdown", slog.Any("error", err))
			return serverError(ctx)
		}
		for _, s := range sources {
			response.SourceBreakdown = append(response.SourceBreakdown, BreakdownEntry{
				Name:  titleCaser.String(s.Name),
				Count: s.Count,
			})
		}

		countries, err := events.GetPlayCountryBreakdown(db, trackIDs, rng.From, rng.To)
		if err != nil {
			ctx.Logger.Error("Failed to fetch country breakdown", slog.Any("error", err))
			return serverError(ctx)
		}
		for _, c := range countries {
			response.CountryBreakdown = append(response.CountryBreakdown, BreakdownEntry{
				Name:  countryDisplayName(c.Name),
				Count: c.Count,
			})
		}
	}

	return ctx.JSON(response)
}

// countryDisplayName maps an ISO alpha-2 code to a readable name,
// falling back to the raw code for anything GeoIP emits that the
// country data doesn't know.
func countryDisplayName(code string) string {
	country, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return code
	}
	return country.Name.Common
}
