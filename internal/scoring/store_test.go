package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/scoring"
	"soundpulse/internal/testsupport"
	"soundpulse/internal/timerange"
)

func TestSaveAndLoadScore(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	score := scoring.ArtistScore{
		ArtistID:        1,
		ArtistName:      "Persisted Artist",
		EngagementScore: 60.5,
		GrowthScore:     40.25,
		QualityScore:    70,
		PotentialScore:  55,
		OverallScore:    57.71,
		ScoreCategory:   "Emerging",
		Breakdown: scoring.Breakdown{
			Engagement: scoring.EngagementBreakdown{CompletionRate: 72, LikeRate: 12},
			Potential:  scoring.PotentialBreakdown{MarketPosition: 75},
		},
	}

	require.NoError(t, scoring.SaveScore(db, score, "30d", time.Now().UTC()))

	loaded, err := scoring.LoadScore(db, 1, "30d")
	require.NoError(t, err)
	assert.Equal(t, score.ArtistName, loaded.ArtistName)
	assert.Equal(t, score.OverallScore, loaded.OverallScore)
	assert.Equal(t, score.Breakdown, loaded.Breakdown)

	// Same artist, different range, is a distinct key.
	_, err = scoring.LoadScore(db, 1, "7d")
	assert.ErrorIs(t, err, scoring.ErrScoreNotFound)
}

func TestSaveScoreSupersedesPriorRun(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	first := scoring.ArtistScore{ArtistID: 7, ArtistName: "Recalc Artist", OverallScore: 42, ScoreCategory: "Emerging"}
	second := first
	second.OverallScore = 81
	second.ScoreCategory = "Strong"

	require.NoError(t, scoring.SaveScore(db, first, "7d", time.Now().UTC()))
	require.NoError(t, scoring.SaveScore(db, second, "7d", time.Now().UTC()))

	scores, err := scoring.LoadScores(db, "7d")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 81.0, scores[0].OverallScore)
	assert.Equal(t, "Strong", scores[0].ScoreCategory)
}

func TestOverallPercentile(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	for i, overall := range []float64{20, 40, 60, 80} {
		score := scoring.ArtistScore{
			ArtistID:     uint(i + 1),
			ArtistName:   "Artist",
			OverallScore: overall,
		}
		require.NoError(t, scoring.SaveScore(db, score, "90d", now))
	}

	pct, err := scoring.OverallPercentile(db, "90d", 80)
	require.NoError(t, err)
	assert.InDelta(t, 100, pct, 0.001)

	pct, err = scoring.OverallPercentile(db, "90d", 50)
	require.NoError(t, err)
	assert.InDelta(t, float64(2)/3*100, pct, 0.001)

	// A score above every persisted row caps at 100 even though it is
	// not part of the population itself.
	pct, err = scoring.OverallPercentile(db, "90d", 95)
	require.NoError(t, err)
	assert.InDelta(t, 100, pct, 0.001)

	// Unscored range has no population to compare against.
	pct, err = scoring.OverallPercentile(db, "1y", 99)
	require.NoError(t, err)
	assert.InDelta(t, 50, pct, 0.001)
}

func TestScoreArtistPlacesUnscoredAgainstPopulation(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	artist := testsupport.CreateTestArtist(t, db, "Unscored Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Unscored Track")
	testsupport.CreatePlayEvents(t, db, track.ID, 10, time.Now().UTC().Add(-time.Hour))

	// Persisted population from a prior batch, all far below anything
	// an artist with real plays can score.
	now := time.Now().UTC()
	for i, overall := range []float64{0.5, 1, 1.5} {
		score := scoring.ArtistScore{
			ArtistID:     uint(100 + i),
			ArtistName:   "Population Artist",
			OverallScore: overall,
		}
		require.NoError(t, scoring.SaveScore(db, score, "7d", now))
	}

	engine := scoring.NewEngine(defaultWeights(), defaultScales(), defaultCategories())
	service := scoring.NewService(db, logger, engine)

	score, err := service.ScoreArtist(artist, timerange.ResolveNow("7d"))
	require.NoError(t, err)
	assert.InDelta(t, 100, score.Breakdown.Potential.MarketPosition, 0.001)
}
