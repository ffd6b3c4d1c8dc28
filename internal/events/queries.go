package events

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RawCounts is the direct event-store aggregation for a set of tracks
// in a time window. It backs the aggregator's raw-computation tier.
type RawCounts struct {
	TotalPlays     int64
	UniquePlays    int64
	TotalLikes     int64
	TotalShares    int64
	TotalDownloads int64
	TotalSaves     int64
	AvgDuration    float64
}

// CountResult represents a generic key-count pair for breakdown queries
type CountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// GetRawCounts computes per-kind event counts for the given tracks with
// a timestamp filter. Unique plays are distinct play sessions; likes
// and saves count only the positive action so reversals don't inflate
// totals. Completion/skip/replay signals exist only in rollups and are
// not fabricated here.
func GetRawCounts(db *gorm.DB, trackIDs []uint, from, to time.Time) (RawCounts, error) {
	var counts RawCounts
	if len(trackIDs) == 0 {
		return counts, nil
	}

	if err := db.Model(&PlayEvent{}).
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Count(&counts.TotalPlays).Error; err != nil {
		return RawCounts{}, fmt.Errorf("error counting plays: %w", err)
	}

	if err := db.Model(&PlayEvent{}).
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Distinct("session_id").
		Count(&counts.UniquePlays).Error; err != nil {
		return RawCounts{}, fmt.Errorf("error counting unique plays: %w", err)
	}

	var avg struct {
		AvgDuration float64
	}
	err := db.Model(&PlayEvent{}).
		Select("COALESCE(AVG(duration_seconds), 0) as avg_duration").
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Scan(&avg).Error
	if err != nil {
		return RawCounts{}, fmt.Errorf("error averaging play duration: %w", err)
	}
	counts.AvgDuration = avg.AvgDuration

	if err := db.Model(&LikeEvent{}).
		Where("track_id IN ? AND action = ? AND timestamp >= ? AND timestamp < ?", trackIDs, ActionLike, from, to).
		Count(&counts.TotalLikes).Error; err != nil {
		return RawCounts{}, fmt.Errorf("error counting likes: %w", err)
	}

	if err := db.Model(&ShareEvent{}).
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Count(&counts.TotalShares).Error; err != nil {
		return RawCounts{}, fmt.Errorf("error counting shares: %w", err)
	}

	if err := db.Model(&DownloadEvent{}).
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Count(&counts.TotalDownloads).Error; err != nil {
		return RawCounts{}, fmt.Errorf("error counting downloads: %w", err)
	}

	if err := db.Model(&SaveEvent{}).
		Where("track_id IN ? AND action = ? AND timestamp >= ? AND timestamp < ?", trackIDs, ActionSave, from, to).
		Count(&counts.TotalSaves).Error; err != nil {
		return RawCounts{}, fmt.Errorf("error counting saves: %w", err)
	}

	return counts, nil
}

// GetPlaySourceBreakdown returns play counts grouped by discovery surface.
func GetPlaySourceBreakdown(db *gorm.DB, trackIDs []uint, from, to time.Time) ([]CountResult, error) {
	results := []CountResult{}
	if len(trackIDs) == 0 {
		return results, nil
	}
	err := db.Model(&PlayEvent{}).
		Select("source as name, COUNT(*) as count").
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Group("source").
		Order("count DESC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching play source breakdown: %w", err)
	}
	return results, nil
}

// GetPlayCountryBreakdown returns play counts grouped by listener country code.
func GetPlayCountryBreakdown(db *gorm.DB, trackIDs []uint, from, to time.Time) ([]CountResult, error) {
	results := []CountResult{}
	if len(trackIDs) == 0 {
		return results, nil
	}
	err := db.Model(&PlayEvent{}).
		Select("country as name, COUNT(*) as count").
		Where("track_id IN ? AND country != '' AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Group("country").
		Order("count DESC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching play country breakdown: %w", err)
	}
	return results, nil
}

// GetDistinctListenerCountries counts distinct listener countries across
// the given tracks. Feeds the geographic-spread scoring signal.
func GetDistinctListenerCountries(db *gorm.DB, trackIDs []uint, from, to time.Time) (int64, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := db.Model(&PlayEvent{}).
		Where("track_id IN ? AND country != '' AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Distinct("country").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting listener countries: %w", err)
	}
	return count, nil
}

// GetFirstPlayAt returns the timestamp of the earliest play for the
// given tracks, or the zero time when none exist.
func GetFirstPlayAt(db *gorm.DB, trackIDs []uint) (time.Time, error) {
	if len(trackIDs) == 0 {
		return time.Time{}, nil
	}
	var first PlayEvent
	err := db.Where("track_id IN ?", trackIDs).Order("timestamp ASC").First(&first).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("error fetching first play: %w", err)
	}
	return first.Timestamp, nil
}

// GetEarliestPlayAt returns the timestamp of the earliest play across
// all tracks, or the zero time when the store is empty.
func GetEarliestPlayAt(db *gorm.DB) (time.Time, error) {
	var first PlayEvent
	err := db.Order("timestamp ASC").First(&first).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("error fetching earliest play: %w", err)
	}
	return first.Timestamp, nil
}

// GetRecentPlays returns the most recent plays for the given tracks.
func GetRecentPlays(db *gorm.DB, trackIDs []uint, limit int) ([]PlayEvent, error) {
	plays := []PlayEvent{}
	if len(trackIDs) == 0 {
		return plays, nil
	}
	err := db.Where("track_id IN ?", trackIDs).
		Order("timestamp DESC").
		Limit(limit).
		Find(&plays).Error
	return plays, err
}

// GetRecentLikes returns the most recent likes for the given tracks.
func GetRecentLikes(db *gorm.DB, trackIDs []uint, limit int) ([]LikeEvent, error) {
	likes := []LikeEvent{}
	if len(trackIDs) == 0 {
		return likes, nil
	}
	err := db.Where("track_id IN ? AND action = ?", trackIDs, ActionLike).
		Order("timestamp DESC").
		Limit(limit).
		Find(&likes).Error
	return likes, err
}

// GetRecentDownloads returns the most recent downloads for the given tracks.
func GetRecentDownloads(db *gorm.DB, trackIDs []uint, limit int) ([]DownloadEvent, error) {
	downloads := []DownloadEvent{}
	if len(trackIDs) == 0 {
		return downloads, nil
	}
	err := db.Where("track_id IN ?", trackIDs).
		Order("timestamp DESC").
		Limit(limit).
		Find(&downloads).Error
	return downloads, err
}

// GetRecentProfileVisits returns the most recent profile visits for an artist.
func GetRecentProfileVisits(db *gorm.DB, artistID uint, limit int) ([]ProfileVisitEvent, error) {
	visits := []ProfileVisitEvent{}
	err := db.Where("artist_id = ?", artistID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&visits).Error
	return visits, err
}

// TrackPlayCount pairs a track with its play count.
type TrackPlayCount struct {
	TrackID uint  `json:"track_id"`
	Count   int64 `json:"count"`
}

// GetTopTrackIDsByPlays returns track IDs ordered by play count in the window.
func GetTopTrackIDsByPlays(db *gorm.DB, trackIDs []uint, from, to time.Time, limit int) ([]TrackPlayCount, error) {
	results := []TrackPlayCount{}
	if len(trackIDs) == 0 {
		return results, nil
	}
	err := db.Model(&PlayEvent{}).
		Select("track_id, COUNT(*) as count").
		Where("track_id IN ? AND timestamp >= ? AND timestamp < ?", trackIDs, from, to).
		Group("track_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching top tracks: %w", err)
	}
	return results, nil
}
