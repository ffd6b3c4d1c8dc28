package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"soundpulse/internal/events"
	"soundpulse/internal/pkg/metrics"
	"soundpulse/internal/rollups"
)

// maxBucketsPerRun bounds how far back one builder run will backfill,
// so a long-idle instance catches up over a few runs instead of one
// giant scan.
const maxBucketsPerRun = 64

// RollupBuilderJob folds raw events into the weekly, monthly and
// yearly rollup tables. Only fully-elapsed buckets are built; the
// current partial bucket is left to raw-tier queries, which keeps
// rollup rows final once written.
type RollupBuilderJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
}

func NewRollupBuilderJob(dbManager cartridge.DBManager, logger *slog.Logger) *RollupBuilderJob {
	return &RollupBuilderJob{dbManager: dbManager, logger: logger}
}

// Run builds every elapsed, not-yet-built bucket at each granularity.
// Upserts make re-runs converge, so overlapping a previous run's work
// is harmless.
func (j *RollupBuilderJob) Run() error {
	now := time.Now().UTC()

	if err := j.buildWeekly(now); err != nil {
		return err
	}
	if err := j.buildMonthly(now); err != nil {
		return err
	}
	return j.buildYearly(now)
}

func (j *RollupBuilderJob) buildWeekly(now time.Time) error {
	db := j.dbManager.GetConnection()
	currentWeek := rollups.WeekStart(now)

	start, err := rollups.LatestWeekStart(db)
	if err != nil {
		return err
	}
	if start.IsZero() {
		first, err := events.GetEarliestPlayAt(db)
		if err != nil {
			return err
		}
		if first.IsZero() {
			return nil
		}
		start = rollups.WeekStart(first)
	}

	for built := 0; start.Before(currentWeek) && built < maxBucketsPerRun; built++ {
		end := start.AddDate(0, 0, 7)
		bucketStats, err := events.GetBucketTrackStats(db, start, end)
		if err != nil {
			return err
		}
		records := make([]rollups.WeeklyStat, 0, len(bucketStats))
		for _, s := range bucketStats {
			records = append(records, rollups.WeeklyStat{
				TrackID:           s.TrackID,
				WeekStart:         start,
				TotalPlays:        s.TotalPlays,
				UniquePlays:       s.UniquePlays,
				TotalLikes:        s.TotalLikes,
				TotalShares:       s.TotalShares,
				TotalDownloads:    s.TotalDownloads,
				TotalSaves:        s.TotalSaves,
				AvgDuration:       s.AvgDuration,
				AvgCompletionRate: s.AvgCompletionRate,
				SkipRate:          s.SkipRate,
				ReplayRate:        s.ReplayRate,
			})
		}
		if err := rollups.UpsertWeekly(db, records); err != nil {
			return err
		}
		if len(records) > 0 {
			metrics.RollupBucketsBuilt.WithLabelValues("weekly").Inc()
			j.logger.Info("Built weekly rollup bucket",
				slog.Time("week_start", start), slog.Int("tracks", len(records)))
		}
		start = end
	}
	return nil
}

func (j *RollupBuilderJob) buildMonthly(now time.Time) error {
	db := j.dbManager.GetConnection()
	currentMonth := rollups.MonthStart(now)

	start, err := rollups.LatestMonthStart(db)
	if err != nil {
		return err
	}
	if start.IsZero() {
		first, err := events.GetEarliestPlayAt(db)
		if err != nil {
			return err
		}
		if first.IsZero() {
			return nil
		}
		start = rollups.MonthStart(first)
	}

	for built := 0; start.Before(currentMonth) && built < maxBucketsPerRun; built++ {
		end := start.AddDate(0, 1, 0)
		bucketStats, err := events.GetBucketTrackStats(db, start, end)
		if err != nil {
			return err
		}
		records := make([]rollups.MonthlyStat, 0, len(bucketStats))
		for _, s := range bucketStats {
			records = append(records, rollups.MonthlyStat{
				TrackID:           s.TrackID,
				MonthStart:        start,
				TotalPlays:        s.TotalPlays,
				UniquePlays:       s.UniquePlays,
				TotalLikes:        s.TotalLikes,
				TotalShares:       s.TotalShares,
				TotalDownloads:    s.TotalDownloads,
				TotalSaves:        s.TotalSaves,
				AvgDuration:       s.AvgDuration,
				AvgCompletionRate: s.AvgCompletionRate,
				SkipRate:          s.SkipRate,
				ReplayRate:        s.ReplayRate,
			})
		}
		if err := rollups.UpsertMonthly(db, records); err != nil {
			return err
		}
		if len(records) > 0 {
			metrics.RollupBucketsBuilt.WithLabelValues("monthly").Inc()
			j.logger.Info("Built monthly rollup bucket",
				slog.Time("month_start", start), slog.Int("tracks", len(records)))
		}
		start = end
	}
	return nil
}

func (j *RollupBuilderJob) buildYearly(now time.Time) error {
	db := j.dbManager.GetConnection()
	currentYear := now.Year()

	latest, err := rollups.LatestYear(db)
	if err != nil {
		return err
	}
	startYear := latest
	if startYear == 0 {
		first, err := events.GetEarliestPlayAt(db)
		if err != nil {
			return err
		}
		if first.IsZero() {
			return nil
		}
		startYear = first.UTC().Year()
	}

	for year := startYear; year < currentYear; year++ {
		from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		bucketStats, err := events.GetBucketTrackStats(db, from, to)
		if err != nil {
			return err
		}
		records := make([]rollups.YearlyStat, 0, len(bucketStats))
		for _, s := range bucketStats {
			records = append(records, rollups.YearlyStat{
				TrackID:           s.TrackID,
				Year:              year,
				TotalPlays:        s.TotalPlays,
				UniquePlays:       s.UniquePlays,
				TotalLikes:        s.TotalLikes,
				TotalShares:       s.TotalShares,
				TotalDownloads:    s.TotalDownloads,
				TotalSaves:        s.TotalSaves,
				AvgDuration:       s.AvgDuration,
				AvgCompletionRate: s.AvgCompletionRate,
				SkipRate:          s.SkipRate,
				ReplayRate:        s.ReplayRate,
			})
		}
		if err := rollups.UpsertYearly(db, records); err != nil {
			return err
		}
		if len(records) > 0 {
			metrics.RollupBucketsBuilt.WithLabelValues("yearly").Inc()
			j.logger.Info("Built yearly rollup bucket",
				slog.Int("year", year), slog.Int("tracks", len(records)))
		}
	}
	return nil
}
