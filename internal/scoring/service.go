package scoring

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"soundpulse/internal/catalog"
	"soundpulse/internal/events"
	"soundpulse/internal/stats"
	"soundpulse/internal/timerange"
)

// Service gathers per-artist signals and runs them through the engine.
// Used by both the synchronous read path and batch recalculation.
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	engine *Engine
}

// NewService creates a scoring service over the given connection.
func NewService(db *gorm.DB, logger *slog.Logger, engine *Engine) *Service {
	return &Service{db: db, logger: logger, engine: engine}
}

// Engine exposes the underlying engine for direct scoring.
func (s *Service) Engine() *Engine {
	return s.engine
}

// BuildInputs collects everything needed to score one artist over a
// range: aggregated stats for the artist's public tracks, growth
// against the preceding window, and listener-geography spread. The
// caller supplies the market-position percentile since it is a
// population-relative signal.
func (s *Service) BuildInputs(artist catalog.Artist, rng timerange.Range, percentile float64) (Inputs, error) {
	trackIDs, err := catalog.GetPublicTrackIDs(s.db, artist.ID)
	if err != nil {
		return Inputs{}, err
	}

	aggregator := stats.NewAggregator(s.db, s.logger)
	aggregated, err := aggregator.Aggregate(trackIDs, rng)
	if err != nil {
		return Inputs{}, fmt.Errorf("error aggregating stats for artist %d: %w", artist.ID, err)
	}

	growth, err := stats.Growth(s.db, s.logger, trackIDs, aggregated, rng)
	if err != nil {
		return Inputs{}, fmt.Errorf("error computing growth for artist %d: %w", artist.ID, err)
	}

	regions, err := events.GetDistinctListenerCountries(s.db, trackIDs, rng.From, rng.To)
	if err != nil {
		return Inputs{}, err
	}

	windowDays, err := s.windowDays(trackIDs, rng)
	if err != nil {
		return Inputs{}, err
	}

	return Inputs{
		ArtistID:      artist.ID,
		ArtistName:    artist.Name,
		Stats:         aggregated,
		Growth:        growth,
		RegionCount:   int(regions),
		PlatformCount: artist.PlatformCount,
		GenreFit:      artist.GenreFit,
		WindowDays:    windowDays,
		Percentile:    percentile,
	}, nil
}

// windowDays returns the effective window length for velocity. The
// all-time range starts at the epoch, which would dilute plays/day to
// nothing, so it is measured from the first observed play instead.
func (s *Service) windowDays(trackIDs []uint, rng timerange.Range) (float64, error) {
	if rng.Token != timerange.TokenAllTime {
		return rng.Days(), nil
	}
	firstPlay, err := events.GetFirstPlayAt(s.db, trackIDs)
	if err != nil {
		return 0, err
	}
	if firstPlay.IsZero() {
		return 1, nil
	}
	days := rng.To.Sub(firstPlay).Hours() / 24
	if days < 1 {
		days = 1
	}
	return days, nil
}

// ScoreArtist computes one artist's score on demand. Market position
// comes from the last persisted score for the same range when one
// exists. A never-scored artist is scored provisionally at the median
// and then placed against the persisted population by overall score;
// with no population at all the median stands.
func (s *Service) ScoreArtist(artist catalog.Artist, rng timerange.Range) (ArtistScore, error) {
	persisted, err := LoadScore(s.db, artist.ID, string(rng.Token))
	if err != nil && !errors.Is(err, ErrScoreNotFound) {
		return ArtistScore{}, err
	}
	if err == nil {
		inputs, err := s.BuildInputs(artist, rng, persisted.Breakdown.Potential.MarketPosition)
		if err != nil {
			return ArtistScore{}, err
		}
		return s.engine.Score(inputs), nil
	}

	inputs, err := s.BuildInputs(artist, rng, 50)
	if err != nil {
		return ArtistScore{}, err
	}
	provisional := s.engine.Score(inputs)

	percentile, err := OverallPercentile(s.db, string(rng.Token), provisional.OverallScore)
	if err != nil {
		return ArtistScore{}, err
	}
	inputs.Percentile = percentile
	return s.engine.Score(inputs), nil
}

// RankedScores loads the persisted population for a range and ranks it.
// When no batch has run yet for the range, scores are computed on the
// fly so dashboards still get an answer.
func (s *Service) RankedScores(rng timerange.Range, minScore float64, page, limit int) ([]ArtistScore, error) {
	scores, err := LoadScores(s.db, string(rng.Token))
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		scores, err = s.computeAll(rng)
		if err != nil {
			return nil, err
		}
	}
	return Rank(scores, minScore, page, limit), nil
}

// computeAll scores the full population synchronously. Serial on
// purpose: this path only runs when no batch results exist yet, i.e.
// small or freshly-seeded populations.
func (s *Service) computeAll(rng timerange.Range) ([]ArtistScore, error) {
	artists, err := catalog.GetScorableArtists(s.db)
	if err != nil {
		return nil, err
	}

	inputs := make([]Inputs, 0, len(artists))
	for _, artist := range artists {
		in, err := s.BuildInputs(artist, rng, 0)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}

	ApplyPlayPercentiles(inputs)

	scores := make([]ArtistScore, 0, len(inputs))
	for _, in := range inputs {
		scores = append(scores, s.engine.Score(in))
	}
	return scores, nil
}

// ApplyPlayPercentiles fills each input's market-position percentile
// from its play volume relative to the rest of the population: the
// share of other artists with strictly fewer plays. Deterministic for
// a given population regardless of input order.
func ApplyPlayPercentiles(inputs []Inputs) {
	if len(inputs) <= 1 {
		for i := range inputs {
			inputs[i].Percentile = 50
		}
		return
	}
	for i := range inputs {
		below := 0
		for j := range inputs {
			if j != i && inputs[j].Stats.TotalPlays < inputs[i].Stats.TotalPlays {
				below++
			}
		}
		inputs[i].Percentile = float64(below) / float64(len(inputs)-1) * 100
	}
}
