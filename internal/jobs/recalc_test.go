package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/config"
	"soundpulse/internal/jobs"
	"soundpulse/internal/scoring"
	"soundpulse/internal/testsupport"
)

func TestCoordinatorRun(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Batch Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Batch Track")
	testsupport.CreatePlayEvents(t, db, track.ID, 20, time.Now().UTC().Add(-time.Hour))

	quiet := testsupport.CreateTestArtist(t, db, "Quiet Artist")
	testsupport.CreateTestTrack(t, db, quiet.ID, "Quiet Track")

	coordinator := jobs.NewCoordinator(dbManager, logger, config.GetConfig())
	require.NoError(t, coordinator.Run("7d"))

	scores, err := scoring.LoadScores(db, "7d")
	require.NoError(t, err)

	// Both artists have public tracks, so both get scored; the one
	// without plays ranks with a fully-zero score.
	require.Len(t, scores, 2)
	byArtist := make(map[uint]scoring.ArtistScore, len(scores))
	for _, s := range scores {
		byArtist[s.ArtistID] = s
	}
	assert.Greater(t, byArtist[artist.ID].OverallScore, 0.0)
	assert.Zero(t, byArtist[quiet.ID].OverallScore)
	assert.Equal(t, "Emerging", byArtist[quiet.ID].ScoreCategory)

	// A rerun supersedes the prior rows instead of duplicating them.
	require.NoError(t, coordinator.Run("7d"))
	scores, err = scoring.LoadScores(db, "7d")
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestCoordinatorTriggerTracksJob(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Tracked Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Tracked Track")
	testsupport.CreatePlayEvents(t, db, track.ID, 5, time.Now().UTC().Add(-time.Hour))

	coordinator := jobs.NewCoordinator(dbManager, logger, config.GetConfig())

	job, started := coordinator.Trigger("30d")
	assert.True(t, started)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "30d", job.TimeRange)

	// Status stays queryable after the run settles.
	require.Eventually(t, func() bool {
		snapshot, ok := coordinator.GetJob(job.ID)
		return ok && snapshot.Status == jobs.JobCompleted
	}, 10*time.Second, 50*time.Millisecond)

	snapshot, ok := coordinator.GetJob(job.ID)
	require.True(t, ok)
	assert.Equal(t, 1, snapshot.Processed)
	assert.False(t, snapshot.FinishedAt.IsZero())
}

func TestCoordinatorUnknownRangeFallsBackToAll(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	coordinator := jobs.NewCoordinator(dbManager, logger, config.GetConfig())

	job, started := coordinator.Trigger("fortnight")
	assert.True(t, started)
	assert.Equal(t, "all", job.TimeRange)
}

func TestCoordinatorGetJobUnknownID(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	coordinator := jobs.NewCoordinator(dbManager, logger, config.GetConfig())
	_, ok := coordinator.GetJob("no-such-job")
	assert.False(t, ok)
}
