package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/events"
	"soundpulse/internal/testsupport"
)

func TestCollectEvent(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("stores a play event", func(t *testing.T) {
		input := &events.CollectInput{
			Kind:            events.KindPlay,
			TrackID:         1,
			SessionID:       "session-1",
			Source:          events.SourceSearch,
			DurationSeconds: 95,
			CompletionRate:  0.8,
			Timestamp:       time.Now().UTC(),
		}
		require.NoError(t, events.CollectEvent(db, logger, input))

		var play events.PlayEvent
		require.NoError(t, db.First(&play).Error)
		assert.Equal(t, uint(1), play.TrackID)
		assert.Equal(t, events.SourceSearch, play.Source)
		assert.InDelta(t, 0.8, play.CompletionRate, 0.001)
	})

	t.Run("defaults empty source to direct", func(t *testing.T) {
		input := &events.CollectInput{
			Kind:      events.KindLike,
			TrackID:   2,
			SessionID: "session-2",
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, events.CollectEvent(db, logger, input))

		var like events.LikeEvent
		require.NoError(t, db.Where("track_id = ?", 2).First(&like).Error)
		assert.Equal(t, events.SourceDirect, like.Source)
		assert.Equal(t, events.ActionLike, like.Action)
	})

	t.Run("stores a profile visit by artist", func(t *testing.T) {
		input := &events.CollectInput{
			Kind:      events.KindProfileVisit,
			ArtistID:  9,
			SessionID: "session-3",
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, events.CollectEvent(db, logger, input))

		var visit events.ProfileVisitEvent
		require.NoError(t, db.Where("artist_id = ?", 9).First(&visit).Error)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		input := &events.CollectInput{
			Kind:      events.Kind("pageview"),
			TrackID:   1,
			SessionID: "session-4",
		}
		err := events.CollectEvent(db, logger, input)
		assert.ErrorIs(t, err, events.ErrUnknownKind)
	})

	t.Run("rejects a play without a track", func(t *testing.T) {
		input := &events.CollectInput{
			Kind:      events.KindPlay,
			SessionID: "session-5",
		}
		err := events.CollectEvent(db, logger, input)
		assert.ErrorIs(t, err, events.ErrMissingSubject)
	})
}

func TestGetBucketTrackStats(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	from := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	inWindow := from.Add(48 * time.Hour)

	// Track 1: three plays across two sessions, one of them a skip.
	plays := []events.PlayEvent{
		{TrackID: 1, SessionID: "a", CompletionRate: 0.9, DurationSeconds: 180, Timestamp: inWindow},
		{TrackID: 1, SessionID: "a", CompletionRate: 0.6, DurationSeconds: 120, Timestamp: inWindow.Add(time.Hour)},
		{TrackID: 1, SessionID: "b", CompletionRate: 0.1, DurationSeconds: 12, Timestamp: inWindow.Add(2 * time.Hour)},
		// Outside the bucket.
		{TrackID: 1, SessionID: "c", CompletionRate: 0.9, DurationSeconds: 180, Timestamp: to.Add(time.Hour)},
	}
	for i := range plays {
		require.NoError(t, db.Create(&plays[i]).Error)
	}
	require.NoError(t, db.Create(&events.LikeEvent{
		TrackID: 1, SessionID: "a", Action: events.ActionLike, Timestamp: inWindow,
	}).Error)
	require.NoError(t, db.Create(&events.SaveEvent{
		TrackID: 1, SessionID: "b", Action: events.ActionSave, Timestamp: inWindow,
	}).Error)
	// Track 2 was never played in the bucket but got a like; it still
	// needs a row so the like survives into the rollup.
	require.NoError(t, db.Create(&events.LikeEvent{
		TrackID: 2, SessionID: "c", Action: events.ActionLike, Timestamp: inWindow,
	}).Error)

	stats, err := events.GetBucketTrackStats(db, from, to)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byTrack := make(map[uint]events.BucketTrackStats, len(stats))
	for _, s := range stats {
		byTrack[s.TrackID] = s
	}

	row := byTrack[1]
	assert.Equal(t, int64(3), row.TotalPlays)
	assert.Equal(t, int64(2), row.UniquePlays)
	assert.Equal(t, int64(1), row.TotalLikes)
	assert.Equal(t, int64(1), row.TotalSaves)
	assert.InDelta(t, float64(1)/3, row.SkipRate, 0.001)
	assert.InDelta(t, float64(1)/3, row.ReplayRate, 0.001)
	assert.InDelta(t, (0.9+0.6+0.1)/3, row.AvgCompletionRate, 0.001)

	playless := byTrack[2]
	assert.Equal(t, int64(0), playless.TotalPlays)
	assert.Equal(t, int64(1), playless.TotalLikes)
}

func TestGetBucketTrackStatsEmptyWindow(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	stats, err := events.GetBucketTrackStats(db,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, stats)
}
