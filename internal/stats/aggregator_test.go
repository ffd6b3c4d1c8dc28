package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/events"
	"soundpulse/internal/rollups"
	"soundpulse/internal/stats"
	"soundpulse/internal/testsupport"
	"soundpulse/internal/timerange"
)

func TestAggregateEmptyTrackSet(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	agg := stats.NewAggregator(dbManager.GetConnection(), logger)

	result, err := agg.Aggregate(nil, timerange.ResolveNow("30d"))
	require.NoError(t, err)
	assert.Equal(t, stats.AggregatedStats{}, result)
}

func TestAggregateRawForUnbucketedRanges(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Raw Range Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Raw Range Track")

	now := time.Now().UTC()
	testsupport.CreatePlayEvent(t, db, track.ID, "session-a", now.Add(-1*time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "session-a", now.Add(-2*time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "session-b", now.Add(-3*time.Hour))
	// Outside the 24h window, must not be counted.
	testsupport.CreatePlayEvent(t, db, track.ID, "session-c", now.Add(-30*time.Hour))

	agg := stats.NewAggregator(db, logger)
	result, err := agg.Aggregate([]uint{track.ID}, timerange.Resolve("24h", now))
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TotalPlays)
	assert.Equal(t, int64(2), result.UniquePlays)
	assert.Equal(t, int64(0), result.TotalLikes)
}

func TestAggregatePrefersRollups(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Rollup Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Rollup Track")

	// Pinned to a Thursday so the week opened two days earlier always
	// starts inside the 7d window, regardless of when the test runs.
	now := time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)
	rng := timerange.Resolve("7d", now)
	require.Equal(t, timerange.GranularityWeekly, rng.Granularity)

	// Raw events carry different numbers than the rollup row so the
	// assertion can tell which tier answered.
	testsupport.CreatePlayEvent(t, db, track.ID, "session-x", now.Add(-48*time.Hour))

	weekStart := rollups.WeekStart(now.Add(-48 * time.Hour))
	require.NoError(t, rollups.UpsertWeekly(db, []rollups.WeeklyStat{{
		TrackID:           track.ID,
		WeekStart:         weekStart,
		TotalPlays:        40,
		UniquePlays:       25,
		TotalLikes:        6,
		AvgDuration:       150,
		AvgCompletionRate: 0.7,
		SkipRate:          0.2,
		ReplayRate:        0.1,
	}}))

	agg := stats.NewAggregator(db, logger)
	result, err := agg.Aggregate([]uint{track.ID}, rng)
	require.NoError(t, err)

	assert.Equal(t, int64(40), result.TotalPlays)
	assert.Equal(t, int64(25), result.UniquePlays)
	assert.Equal(t, int64(6), result.TotalLikes)
	assert.InDelta(t, 0.7, result.AvgCompletionRate, 0.001)
	assert.InDelta(t, 0.2, result.SkipRate, 0.001)
}

func TestAggregateTiersAgreeOnPlaylessTracks(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Tier Parity Artist")
	played := testsupport.CreateTestTrack(t, db, artist.ID, "Played Track")
	liked := testsupport.CreateTestTrack(t, db, artist.ID, "Liked Track")

	now := time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)
	rng := timerange.Resolve("7d", now)
	weekStart := rollups.WeekStart(now)

	// One play on the first track and one like on the second, both in
	// the same week. The like must survive the trip through the rollup
	// table even though its track has no plays there.
	testsupport.CreatePlayEvent(t, db, played.ID, "session-p", weekStart.Add(2*time.Hour))
	require.NoError(t, db.Create(&events.LikeEvent{
		TrackID:   liked.ID,
		SessionID: "session-l",
		Action:    events.ActionLike,
		Timestamp: weekStart.Add(3 * time.Hour),
	}).Error)

	trackIDs := []uint{played.ID, liked.ID}
	agg := stats.NewAggregator(db, logger)

	raw, err := agg.Aggregate(trackIDs, rng)
	require.NoError(t, err)

	bucketStats, err := events.GetBucketTrackStats(db, weekStart, weekStart.AddDate(0, 0, 7))
	require.NoError(t, err)
	records := make([]rollups.WeeklyStat, 0, len(bucketStats))
	for _, s := range bucketStats {
		records = append(records, rollups.WeeklyStat{
			TrackID:     s.TrackID,
			WeekStart:   weekStart,
			TotalPlays:  s.TotalPlays,
			UniquePlays: s.UniquePlays,
			TotalLikes:  s.TotalLikes,
		})
	}
	require.NoError(t, rollups.UpsertWeekly(db, records))

	rolled, err := agg.Aggregate(trackIDs, rng)
	require.NoError(t, err)

	assert.Equal(t, raw.TotalPlays, rolled.TotalPlays)
	assert.Equal(t, raw.UniquePlays, rolled.UniquePlays)
	assert.Equal(t, raw.TotalLikes, rolled.TotalLikes)
	assert.Equal(t, int64(1), rolled.TotalLikes)
}

func TestAggregateFallsBackWithoutCoverage(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Fallback Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Fallback Track")

	now := time.Now().UTC()
	rng := timerange.Resolve("7d", now)

	// Raw events only; the weekly rollup table stays empty.
	testsupport.CreatePlayEvents(t, db, track.ID, 5, now.Add(-time.Hour))

	agg := stats.NewAggregator(db, logger)
	result, err := agg.Aggregate([]uint{track.ID}, rng)
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.TotalPlays)
	assert.Equal(t, int64(5), result.UniquePlays)
}

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		want     float64
	}{
		{"normal growth", 150, 100, 50},
		{"decline", 50, 100, -50},
		{"zero baseline with activity", 10, 0, 100},
		{"zero baseline without activity", 0, 0, 0},
		{"flat", 100, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, stats.GrowthRate(tt.current, tt.previous), 0.001)
		})
	}
}

func TestGrowthComparesPrecedingWindow(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Growth Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Growth Track")

	now := time.Now().UTC()
	rng := timerange.Resolve("24h", now)

	// Four plays in the current day, two in the day before.
	testsupport.CreatePlayEvents(t, db, track.ID, 4, now.Add(-time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "prev-1", now.Add(-30*time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "prev-2", now.Add(-31*time.Hour))

	agg := stats.NewAggregator(db, logger)
	current, err := agg.Aggregate([]uint{track.ID}, rng)
	require.NoError(t, err)

	growth, err := stats.Growth(db, logger, []uint{track.ID}, current, rng)
	require.NoError(t, err)

	assert.InDelta(t, 100, growth.PlaysGrowth, 0.001)
}
