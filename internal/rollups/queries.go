package rollups

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Summary aggregates rollup rows: sums for counts, arithmetic means
// across rows for rate and average fields. Records counts how many
// rollup rows matched; zero means the tier has no coverage for the
// request and the caller must fall back to raw computation.
type Summary struct {
	Records           int64
	TotalPlays        int64
	UniquePlays       int64
	TotalLikes        int64
	TotalShares       int64
	TotalDownloads    int64
	TotalSaves        int64
	AvgDuration       float64
	AvgCompletionRate float64
	SkipRate          float64
	ReplayRate        float64
}

const summarySelect = `
	COUNT(*) as records,
	COALESCE(SUM(total_plays), 0) as total_plays,
	COALESCE(SUM(unique_plays), 0) as unique_plays,
	COALESCE(SUM(total_likes), 0) as total_likes,
	COALESCE(SUM(total_shares), 0) as total_shares,
	COALESCE(SUM(total_downloads), 0) as total_downloads,
	COALESCE(SUM(total_saves), 0) as total_saves,
	COALESCE(AVG(avg_duration), 0) as avg_duration,
	COALESCE(AVG(avg_completion_rate), 0) as avg_completion_rate,
	COALESCE(AVG(skip_rate), 0) as skip_rate,
	COALESCE(AVG(replay_rate), 0) as replay_rate`

// SummarizeWeekly aggregates weekly rollups whose bucket start falls in [from, to).
func SummarizeWeekly(db *gorm.DB, trackIDs []uint, from, to time.Time) (Summary, error) {
	var summary Summary
	err := db.Model(&WeeklyStat{}).
		Select(summarySelect).
		Where("track_id IN ? AND week_start >= ? AND week_start < ?", trackIDs, from, to).
		Scan(&summary).Error
	if err != nil {
		return Summary{}, fmt.Errorf("error summarizing weekly stats: %w", err)
	}
	return summary, nil
}

// SummarizeMonthly aggregates monthly rollups whose bucket start falls in [from, to).
func SummarizeMonthly(db *gorm.DB, trackIDs []uint, from, to time.Time) (Summary, error) {
	var summary Summary
	err := db.Model(&MonthlyStat{}).
		Select(summarySelect).
		Where("track_id IN ? AND month_start >= ? AND month_start < ?", trackIDs, from, to).
		Scan(&summary).Error
	if err != nil {
		return Summary{}, fmt.Errorf("error summarizing monthly stats: %w", err)
	}
	return summary, nil
}

// SummarizeYearly aggregates yearly rollups whose bucket start
// (January 1st of the year) falls in [from, to).
func SummarizeYearly(db *gorm.DB, trackIDs []uint, from, to time.Time) (Summary, error) {
	firstYear := from.Year()
	if time.Date(firstYear, 1, 1, 0, 0, 0, 0, time.UTC).Before(from) {
		firstYear++
	}
	lastYear := to.Year()
	if !time.Date(lastYear, 1, 1, 0, 0, 0, 0, time.UTC).Before(to) {
		lastYear--
	}
	if firstYear > lastYear {
		return Summary{}, nil
	}

	var summary Summary
	err := db.Model(&YearlyStat{}).
		Select(summarySelect).
		Where("track_id IN ? AND year >= ? AND year <= ?", trackIDs, firstYear, lastYear).
		Scan(&summary).Error
	if err != nil {
		return Summary{}, fmt.Errorf("error summarizing yearly stats: %w", err)
	}
	return summary, nil
}
