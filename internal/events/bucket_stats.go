package events

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SkipCompletionThreshold is the completion-rate fraction below which a
// play counts as a skip.
const SkipCompletionThreshold = 0.3

// BucketTrackStats is one track's aggregates over one rollup bucket
// window, computed from raw events. Feeds the rollup builder.
type BucketTrackStats struct {
	TrackID           uint
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

// GetBucketTrackStats computes per-track aggregates for every track
// with at least one event of any kind in [from, to). A track can be
// liked or saved in a bucket it was not played in; those counts still
// belong in the rollup row. Skip rate is the share of plays below the
// completion threshold; replay rate is the share of plays beyond each
// session's first.
func GetBucketTrackStats(db *gorm.DB, from, to time.Time) ([]BucketTrackStats, error) {
	var playRows []struct {
		TrackID           uint
		TotalPlays        int64
		UniquePlays       int64
		AvgDuration       float64
		AvgCompletionRate float64
		SkipRate          float64
	}
	err := db.Model(&PlayEvent{}).
		Select(`track_id,
			COUNT(*) as total_plays,
			COUNT(DISTINCT session_id) as unique_plays,
			COALESCE(AVG(duration_seconds), 0) as avg_duration,
			COALESCE(AVG(completion_rate), 0) as avg_completion_rate,
			COALESCE(AVG(CASE WHEN completion_rate < ? THEN 1.0 ELSE 0.0 END), 0) as skip_rate`,
			SkipCompletionThreshold).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Group("track_id").
		Scan(&playRows).Error
	if err != nil {
		return nil, fmt.Errorf("error aggregating bucket plays: %w", err)
	}

	byTrack := make(map[uint]*BucketTrackStats, len(playRows))
	order := make([]uint, 0, len(playRows))
	for _, row := range playRows {
		replayRate := 0.0
		if row.TotalPlays > 0 {
			replayRate = float64(row.TotalPlays-row.UniquePlays) / float64(row.TotalPlays)
		}
		byTrack[row.TrackID] = &BucketTrackStats{
			TrackID:           row.TrackID,
			TotalPlays:        row.TotalPlays,
			UniquePlays:       row.UniquePlays,
			AvgDuration:       row.AvgDuration,
			AvgCompletionRate: row.AvgCompletionRate,
			SkipRate:          row.SkipRate,
			ReplayRate:        replayRate,
		}
		order = append(order, row.TrackID)
	}

	type kindCount struct {
		TrackID uint
		Count   int64
	}
	countInto := func(model any, extra string, args []any, assign func(*BucketTrackStats, int64)) error {
		var rows []kindCount
		q := db.Model(model).
			Select("track_id, COUNT(*) as count").
			Where("timestamp >= ? AND timestamp < ?", from, to)
		if extra != "" {
			q = q.Where(extra, args...)
		}
		if err := q.Group("track_id").Scan(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			stats, ok := byTrack[row.TrackID]
			if !ok {
				stats = &BucketTrackStats{TrackID: row.TrackID}
				byTrack[row.TrackID] = stats
				order = append(order, row.TrackID)
			}
			assign(stats, row.Count)
		}
		return nil
	}

	if err := countInto(&LikeEvent{}, "action = ?", []any{ActionLike},
		func(s *BucketTrackStats, c int64) { s.TotalLikes = c }); err != nil {
		return nil, fmt.Errorf("error aggregating bucket likes: %w", err)
	}
	if err := countInto(&ShareEvent{}, "", nil,
		func(s *BucketTrackStats, c int64) { s.TotalShares = c }); err != nil {
		return nil, fmt.Errorf("error aggregating bucket shares: %w", err)
	}
	if err := countInto(&DownloadEvent{}, "", nil,
		func(s *BucketTrackStats, c int64) { s.TotalDownloads = c }); err != nil {
		return nil, fmt.Errorf("error aggregating bucket downloads: %w", err)
	}
	if err := countInto(&SaveEvent{}, "action = ?", []any{ActionSave},
		func(s *BucketTrackStats, c int64) { s.TotalSaves = c }); err != nil {
		return nil, fmt.Errorf("error aggregating bucket saves: %w", err)
	}

	results := make([]BucketTrackStats, 0, len(order))
	for _, trackID := range order {
		results = append(results, *byTrack[trackID])
	}
	return results, nil
}
