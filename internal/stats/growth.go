package stats

import (
	"log/slog"

	"gorm.io/gorm"

	"soundpulse/internal/timerange"
)

// GrowthMetrics holds period-over-period percentage changes for the
// headline counters, comparing the requested window against the
// equal-length window immediately preceding it.
type GrowthMetrics struct {
	PlaysGrowth       float64 `json:"plays_growth"`
	UniquePlaysGrowth float64 `json:"unique_plays_growth"`
	LikesGrowth       float64 `json:"likes_growth"`
	SharesGrowth      float64 `json:"shares_growth"`
	DownloadsGrowth   float64 `json:"downloads_growth"`
	SavesGrowth       float64 `json:"saves_growth"`
}

// GrowthRate computes the percentage change from previous to current.
// A zero baseline with current activity reports 100 rather than
// infinity; a zero baseline with no activity reports 0.
func GrowthRate(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// Growth aggregates the preceding window and compares it against stats
// already computed for the current one.
func Growth(db *gorm.DB, logger *slog.Logger, trackIDs []uint, current AggregatedStats, rng timerange.Range) (GrowthMetrics, error) {
	previous, err := NewAggregator(db, logger).Aggregate(trackIDs, rng.Previous())
	if err != nil {
		return GrowthMetrics{}, err
	}
	return CompareGrowth(current, previous), nil
}

// CompareGrowth derives growth metrics from two already-computed windows.
func CompareGrowth(current, previous AggregatedStats) GrowthMetrics {
	return GrowthMetrics{
		PlaysGrowth:       GrowthRate(current.TotalPlays, previous.TotalPlays),
		UniquePlaysGrowth: GrowthRate(current.UniquePlays, previous.UniquePlays),
		LikesGrowth:       GrowthRate(current.TotalLikes, previous.TotalLikes),
		SharesGrowth:      GrowthRate(current.TotalShares, previous.TotalShares),
		DownloadsGrowth:   GrowthRate(current.TotalDownloads, previous.TotalDownloads),
		SavesGrowth:       GrowthRate(current.TotalSaves, previous.TotalSaves),
	}
}
