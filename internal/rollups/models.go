// Package rollups holds the precomputed per-track aggregate tables at
// weekly, monthly and yearly granularity, plus the queries the tiered
// aggregator runs against them. Exactly one row exists per
// (track, bucket) pair; a bucket is only written once its window has
// fully elapsed, so rows are final.
package rollups

import "time"

// WeeklyStat is one track's aggregate for one ISO week.
type WeeklyStat struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	TrackID           uint      `gorm:"uniqueIndex:idx_weekly_unique;not null"`
	WeekStart         time.Time `gorm:"uniqueIndex:idx_weekly_unique;type:datetime;not null"`
	TotalPlays        int64     `gorm:"not null;default:0"`
	UniquePlays       int64     `gorm:"not null;default:0"`
	TotalLikes        int64     `gorm:"not null;default:0"`
	TotalShares       int64     `gorm:"not null;default:0"`
	TotalDownloads    int64     `gorm:"not null;default:0"`
	TotalSaves        int64     `gorm:"not null;default:0"`
	AvgDuration       float64   `gorm:"not null;default:0"`
	AvgCompletionRate float64   `gorm:"not null;default:0"`
	SkipRate          float64   `gorm:"not null;default:0"`
	ReplayRate        float64   `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MonthlyStat is one track's aggregate for one calendar month.
type MonthlyStat struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	TrackID           uint      `gorm:"uniqueIndex:idx_monthly_unique;not null"`
	MonthStart        time.Time `gorm:"uniqueIndex:idx_monthly_unique;type:datetime;not null"`
	TotalPlays        int64     `gorm:"not null;default:0"`
	UniquePlays       int64     `gorm:"not null;default:0"`
	TotalLikes        int64     `gorm:"not null;default:0"`
	TotalShares       int64     `gorm:"not null;default:0"`
	TotalDownloads    int64     `gorm:"not null;default:0"`
	TotalSaves        int64     `gorm:"not null;default:0"`
	AvgDuration       float64   `gorm:"not null;default:0"`
	AvgCompletionRate float64   `gorm:"not null;default:0"`
	SkipRate          float64   `gorm:"not null;default:0"`
	ReplayRate        float64   `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// YearlyStat is one track's aggregate for one calendar year.
type YearlyStat struct {
	ID                uint    `gorm:"primaryKey;autoIncrement"`
	TrackID           uint    `gorm:"uniqueIndex:idx_yearly_unique;not null"`
	Year              int     `gorm:"uniqueIndex:idx_yearly_unique;not null"`
	TotalPlays        int64   `gorm:"not null;default:0"`
	UniquePlays       int64   `gorm:"not null;default:0"`
	TotalLikes        int64   `gorm:"not null;default:0"`
	TotalShares       int64   `gorm:"not null;default:0"`
	TotalDownloads    int64   `gorm:"not null;default:0"`
	TotalSaves        int64   `gorm:"not null;default:0"`
	AvgDuration       float64 `gorm:"not null;default:0"`
	AvgCompletionRate float64 `gorm:"not null;default:0"`
	SkipRate          float64 `gorm:"not null;default:0"`
	ReplayRate        float64 `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
