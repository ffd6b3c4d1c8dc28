package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/jobs"
	"soundpulse/internal/rollups"
	"soundpulse/internal/testsupport"
)

func TestRollupBuilderBuildsElapsedWeeks(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Rollup Job Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Rollup Job Track")

	now := time.Now().UTC()
	lastWeek := rollups.WeekStart(now).AddDate(0, 0, -7)

	// Three plays in the fully-elapsed previous week, one in the
	// current partial week.
	testsupport.CreatePlayEvent(t, db, track.ID, "w1", lastWeek.Add(24*time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "w2", lastWeek.Add(48*time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "w2", lastWeek.Add(49*time.Hour))
	testsupport.CreatePlayEvent(t, db, track.ID, "current", rollups.WeekStart(now).Add(time.Hour))

	job := jobs.NewRollupBuilderJob(dbManager, logger)
	require.NoError(t, job.Run())

	var weekly []rollups.WeeklyStat
	require.NoError(t, db.Where("track_id = ?", track.ID).Find(&weekly).Error)
	require.Len(t, weekly, 1, "only the elapsed week should be built")

	row := weekly[0]
	assert.True(t, row.WeekStart.Equal(lastWeek))
	assert.Equal(t, int64(3), row.TotalPlays)
	assert.Equal(t, int64(2), row.UniquePlays)
}

func TestRollupBuilderRerunConverges(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Converge Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Converge Track")

	lastWeek := rollups.WeekStart(time.Now().UTC()).AddDate(0, 0, -7)
	testsupport.CreatePlayEvent(t, db, track.ID, "s1", lastWeek.Add(time.Hour))

	job := jobs.NewRollupBuilderJob(dbManager, logger)
	require.NoError(t, job.Run())
	require.NoError(t, job.Run())

	var count int64
	require.NoError(t, db.Model(&rollups.WeeklyStat{}).Where("track_id = ?", track.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRollupBuilderEmptyStore(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	job := jobs.NewRollupBuilderJob(dbManager, logger)
	require.NoError(t, job.Run())

	var count int64
	db := dbManager.GetConnection()
	require.NoError(t, db.Model(&rollups.WeeklyStat{}).Count(&count).Error)
	assert.Zero(t, count)
}
