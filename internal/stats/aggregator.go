// Package stats computes aggregate engagement metrics for a set of
// tracks over a resolved time range. It answers from the cheapest tier
// able to serve the request: a precomputed rollup table when the range
// maps to one and rows exist, otherwise directly from the raw event
// store.
package stats

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"soundpulse/internal/events"
	"soundpulse/internal/pkg/metrics"
	"soundpulse/internal/rollups"
	"soundpulse/internal/timerange"
)

// AggregatedStats is the uniform result shape both tiers produce.
// Every field is zero-filled, never null, so downstream scoring and
// JSON responses need no nil handling.
type AggregatedStats struct {
	TotalPlays        int64   `json:"total_plays"`
	UniquePlays       int64   `json:"unique_plays"`
	TotalLikes        int64   `json:"total_likes"`
	TotalShares       int64   `json:"total_shares"`
	TotalDownloads    int64   `json:"total_downloads"`
	TotalSaves        int64   `json:"total_saves"`
	AvgDuration       float64 `json:"avg_duration"`
	AvgCompletionRate float64 `json:"avg_completion_rate"`
	SkipRate          float64 `json:"skip_rate"`
	ReplayRate        float64 `json:"replay_rate"`
}

// Aggregator serves stats requests through the tiered strategy.
type Aggregator struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAggregator creates an aggregator over the given connection.
func NewAggregator(db *gorm.DB, logger *slog.Logger) *Aggregator {
	return &Aggregator{db: db, logger: logger}
}

// Aggregate computes stats for the tracks over the resolved range.
// An empty track set short-circuits to the zero value without touching
// storage. When the range carries a rollup granularity the matching
// rollup table is tried first; zero matching rows means the tier has no
// coverage and the raw event store answers instead.
func (a *Aggregator) Aggregate(trackIDs []uint, rng timerange.Range) (AggregatedStats, error) {
	if len(trackIDs) == 0 {
		return AggregatedStats{}, nil
	}

	if rng.Granularity == timerange.GranularityNone {
		metrics.RawFallbacks.WithLabelValues("no_granularity").Inc()
		return a.aggregateRaw(trackIDs, rng)
	}

	summary, err := a.summarize(trackIDs, rng)
	if err != nil {
		return AggregatedStats{}, err
	}
	if summary.Records == 0 {
		a.logger.Debug("no rollup coverage, falling back to raw events",
			"granularity", rng.Granularity.String(), "tracks", len(trackIDs))
		metrics.RawFallbacks.WithLabelValues("no_coverage").Inc()
		return a.aggregateRaw(trackIDs, rng)
	}

	metrics.RollupHits.WithLabelValues(rng.Granularity.String()).Inc()
	return AggregatedStats{
		TotalPlays:        summary.TotalPlays,
		UniquePlays:       summary.UniquePlays,
		TotalLikes:        summary.TotalLikes,
		TotalShares:       summary.TotalShares,
		TotalDownloads:    summary.TotalDownloads,
		TotalSaves:        summary.TotalSaves,
		AvgDuration:       summary.AvgDuration,
		AvgCompletionRate: summary.AvgCompletionRate,
		SkipRate:          summary.SkipRate,
		ReplayRate:        summary.ReplayRate,
	}, nil
}

func (a *Aggregator) summarize(trackIDs []uint, rng timerange.Range) (rollups.Summary, error) {
	switch rng.Granularity {
	case timerange.GranularityWeekly:
		return rollups.SummarizeWeekly(a.db, trackIDs, rng.From, rng.To)
	case timerange.GranularityMonthly:
		return rollups.SummarizeMonthly(a.db, trackIDs, rng.From, rng.To)
	case timerange.GranularityYearly:
		return rollups.SummarizeYearly(a.db, trackIDs, rng.From, rng.To)
	default:
		return rollups.Summary{}, fmt.Errorf("no rollup table for granularity %s", rng.Granularity)
	}
}

// aggregateRaw computes the stats directly from the event store.
// Completion, skip and replay rates only exist as rollup columns; raw
// answers report them as zero rather than fabricating values.
func (a *Aggregator) aggregateRaw(trackIDs []uint, rng timerange.Range) (AggregatedStats, error) {
	counts, err := events.GetRawCounts(a.db, trackIDs, rng.From, rng.To)
	if err != nil {
		return AggregatedStats{}, fmt.Errorf("error computing raw stats: %w", err)
	}
	return AggregatedStats{
		TotalPlays:     counts.TotalPlays,
		UniquePlays:    counts.UniquePlays,
		TotalLikes:     counts.TotalLikes,
		TotalShares:    counts.TotalShares,
		TotalDownloads: counts.TotalDownloads,
		TotalSaves:     counts.TotalSaves,
		AvgDuration:    counts.AvgDuration,
	}, nil
}
