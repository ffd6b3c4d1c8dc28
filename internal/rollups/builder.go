package rollups

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WeekStart returns the Monday 00:00 UTC opening the ISO week holding t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first instant of the calendar month holding t.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// YearStart returns the first instant of the calendar year holding t.
func YearStart(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

var statColumns = []string{
	"total_plays", "unique_plays", "total_likes", "total_shares",
	"total_downloads", "total_saves", "avg_duration", "avg_completion_rate",
	"skip_rate", "replay_rate", "updated_at",
}

// UpsertWeekly writes weekly rollup rows, replacing any existing row
// for the same (track, week) key. Idempotent: re-running a build for
// the same bucket converges on the same rows.
func UpsertWeekly(db *gorm.DB, records []WeeklyStat) error {
	if len(records) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "track_id"}, {Name: "week_start"}},
		DoUpdates: clause.AssignmentColumns(statColumns),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("error upserting weekly rollups: %w", err)
	}
	return nil
}

// UpsertMonthly writes monthly rollup rows, replacing per (track, month) key.
func UpsertMonthly(db *gorm.DB, records []MonthlyStat) error {
	if len(records) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "track_id"}, {Name: "month_start"}},
		DoUpdates: clause.AssignmentColumns(statColumns),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("error upserting monthly rollups: %w", err)
	}
	return nil
}

// UpsertYearly writes yearly rollup rows, replacing per (track, year) key.
func UpsertYearly(db *gorm.DB, records []YearlyStat) error {
	if len(records) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "track_id"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns(statColumns),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("error upserting yearly rollups: %w", err)
	}
	return nil
}

// LatestWeekStart returns the most recent built weekly bucket, zero when none.
func LatestWeekStart(db *gorm.DB) (time.Time, error) {
	var newest WeeklyStat
	err := db.Order("week_start DESC").First(&newest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("error finding latest weekly bucket: %w", err)
	}
	return newest.WeekStart.UTC(), nil
}

// LatestMonthStart returns the most recent built monthly bucket, zero when none.
func LatestMonthStart(db *gorm.DB) (time.Time, error) {
	var newest MonthlyStat
	err := db.Order("month_start DESC").First(&newest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("error finding latest monthly bucket: %w", err)
	}
	return newest.MonthStart.UTC(), nil
}

// LatestYear returns the most recent built year, zero when none.
func LatestYear(db *gorm.DB) (int, error) {
	var row struct{ Year int }
	err := db.Model(&YearlyStat{}).Select("COALESCE(MAX(year), 0) as year").Scan(&row).Error
	if err != nil {
		return 0, fmt.Errorf("error finding latest yearly bucket: %w", err)
	}
	return row.Year, nil
}
