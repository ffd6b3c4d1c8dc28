package rollups_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/rollups"
	"soundpulse/internal/testsupport"
)

func TestBucketStarts(t *testing.T) {
	// Wednesday afternoon.
	ts := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), rollups.WeekStart(ts))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), rollups.MonthStart(ts))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), rollups.YearStart(ts))

	// Sunday belongs to the week opened by the previous Monday.
	sunday := time.Date(2026, 3, 22, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), rollups.WeekStart(sunday))

	// Monday midnight opens its own week.
	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, rollups.WeekStart(monday))
}

func TestUpsertWeeklyIdempotent(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	weekStart := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	record := rollups.WeeklyStat{
		TrackID:    1,
		WeekStart:  weekStart,
		TotalPlays: 10,
	}

	require.NoError(t, rollups.UpsertWeekly(db, []rollups.WeeklyStat{record}))

	// A rebuild with fresher numbers replaces the row instead of
	// duplicating the (track, week) key.
	record.ID = 0
	record.TotalPlays = 12
	require.NoError(t, rollups.UpsertWeekly(db, []rollups.WeeklyStat{record}))

	var rows []rollups.WeeklyStat
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(12), rows[0].TotalPlays)
}

func TestLatestWeekStart(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	latest, err := rollups.LatestWeekStart(db)
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	older := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rollups.UpsertWeekly(db, []rollups.WeeklyStat{
		{TrackID: 1, WeekStart: older},
		{TrackID: 1, WeekStart: newer},
	}))

	latest, err = rollups.LatestWeekStart(db)
	require.NoError(t, err)
	assert.True(t, latest.Equal(newer))
}

func TestLatestMonthStart(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	latest, err := rollups.LatestMonthStart(db)
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	older := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rollups.UpsertMonthly(db, []rollups.MonthlyStat{
		{TrackID: 1, MonthStart: older},
		{TrackID: 1, MonthStart: newer},
	}))

	latest, err = rollups.LatestMonthStart(db)
	require.NoError(t, err)
	assert.True(t, latest.Equal(newer))
}

func TestSummarizeWeeklyCountsRecords(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	weekStart := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rollups.UpsertWeekly(db, []rollups.WeeklyStat{
		{TrackID: 1, WeekStart: weekStart, TotalPlays: 10, AvgCompletionRate: 0.8},
		{TrackID: 2, WeekStart: weekStart, TotalPlays: 30, AvgCompletionRate: 0.4},
	}))

	summary, err := rollups.SummarizeWeekly(db, []uint{1, 2},
		weekStart.AddDate(0, 0, -7), weekStart.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Records)
	assert.Equal(t, int64(40), summary.TotalPlays)
	assert.InDelta(t, 0.6, summary.AvgCompletionRate, 0.001)

	// A window before the bucket matches nothing.
	summary, err = rollups.SummarizeWeekly(db, []uint{1, 2},
		weekStart.AddDate(0, 0, -14), weekStart)
	require.NoError(t, err)
	assert.Zero(t, summary.Records)
}
