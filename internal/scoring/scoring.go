// Package scoring turns aggregated engagement stats and artist-level
// signals into a multi-factor strength score: four normalized 0-100
// sub-scores (engagement, growth, quality, potential) blended into an
// overall score, plus ranking and persistence for batch-computed
// results.
package scoring

import (
	"math"

	"soundpulse/internal/config"
	"soundpulse/internal/stats"
)

// EngagementBreakdown holds the rate signals behind the engagement
// sub-score, all percentages.
type EngagementBreakdown struct {
	CompletionRate float64 `json:"completion_rate"`
	ReplayRate     float64 `json:"replay_rate"`
	LikeRate       float64 `json:"like_rate"`
	SaveRate       float64 `json:"save_rate"`
	ShareRate      float64 `json:"share_rate"`
}

// GrowthBreakdown holds the trajectory signals behind the growth sub-score.
type GrowthBreakdown struct {
	PlayVelocity         float64 `json:"play_velocity"`
	UniqueListenerGrowth float64 `json:"unique_listener_growth"`
	GeographicExpansion  int     `json:"geographic_expansion"`
	TimeConsistency      float64 `json:"time_consistency"`
}

// QualityBreakdown holds the retention and fit signals behind the
// quality sub-score.
type QualityBreakdown struct {
	SkipRate           float64 `json:"skip_rate"`
	RetentionRate      float64 `json:"retention_rate"`
	CrossPlatformScore float64 `json:"cross_platform_score"`
	GenreFit           float64 `json:"genre_fit"`
}

// PotentialBreakdown holds the forward-looking signals behind the
// potential sub-score.
type PotentialBreakdown struct {
	ViralCoefficient  float64 `json:"viral_coefficient"`
	MarketPosition    float64 `json:"market_position"`
	DemographicAppeal float64 `json:"demographic_appeal"`
}

// Breakdown is the full per-category signal set behind an ArtistScore.
type Breakdown struct {
	Engagement EngagementBreakdown `json:"engagement"`
	Growth     GrowthBreakdown     `json:"growth"`
	Quality    QualityBreakdown    `json:"quality"`
	Potential  PotentialBreakdown  `json:"potential"`
}

// ArtistScore is one artist's strength score for one time range.
type ArtistScore struct {
	ArtistID        uint      `json:"artist_id"`
	ArtistName      string    `json:"artist_name"`
	EngagementScore float64   `json:"engagement_score"`
	GrowthScore     float64   `json:"growth_score"`
	QualityScore    float64   `json:"quality_score"`
	PotentialScore  float64   `json:"potential_score"`
	OverallScore    float64   `json:"overall_score"`
	ScoreCategory   string    `json:"score_category"`
	Rank            int       `json:"rank,omitempty"`
	Breakdown       Breakdown `json:"breakdown,omitempty"`
}

// Inputs carries everything the engine needs to score one artist.
// All fields are plain values so scoring stays a pure function.
type Inputs struct {
	ArtistID   uint
	ArtistName string
	Stats      stats.AggregatedStats
	Growth     stats.GrowthMetrics
	// RegionCount is the number of distinct listener countries in the window.
	RegionCount int
	// PlatformCount is the artist's external platform presence count.
	PlatformCount int
	// GenreFit is the 0-100 catalog/genre affinity signal.
	GenreFit float64
	// WindowDays is the window length in days, never below 1.
	WindowDays float64
	// Percentile is the artist's 0-100 market position within the
	// scored population, by play volume.
	Percentile float64
}

// CategoryThreshold maps a minimum overall score to a tier label.
type CategoryThreshold struct {
	Min   float64
	Label string
}

// Engine computes artist strength scores. Identical inputs under
// identical configuration always produce identical output.
type Engine struct {
	weights    config.ScoreWeights
	scales     config.ScoreScales
	categories []CategoryThreshold
}

// NewEngine builds an engine from validated weight, scale and tier
// configuration. The tier table is evaluated top-down, first match wins.
func NewEngine(weights config.ScoreWeights, scales config.ScoreScales, categories config.ScoreCategories) *Engine {
	return &Engine{
		weights: weights,
		scales:  scales,
		categories: []CategoryThreshold{
			{categories.TopTier, "Top Tier"},
			{categories.Strong, "Strong"},
			{categories.Solid, "Solid"},
			{categories.Developing, "Developing"},
			{0, "Emerging"},
		},
	}
}

// Score computes the full ArtistScore for one artist. An artist with
// zero plays in the window gets a fully-populated all-zero score so it
// still ranks (at the bottom) instead of being dropped.
func (e *Engine) Score(in Inputs) ArtistScore {
	if in.Stats.TotalPlays == 0 {
		return ArtistScore{
			ArtistID:      in.ArtistID,
			ArtistName:    in.ArtistName,
			ScoreCategory: e.Categorize(0),
		}
	}

	breakdown := e.buildBreakdown(in)

	engagement := round2(mean(
		clampPct(breakdown.Engagement.CompletionRate),
		clampPct(breakdown.Engagement.ReplayRate),
		clampPct(breakdown.Engagement.LikeRate),
		clampPct(breakdown.Engagement.SaveRate),
		clampPct(breakdown.Engagement.ShareRate),
	))
	growth := round2(mean(
		e.squash(breakdown.Growth.PlayVelocity, e.scales.PlaysPerDay),
		clampPct(breakdown.Growth.UniqueListenerGrowth),
		e.squash(float64(breakdown.Growth.GeographicExpansion), e.scales.Regions),
		clampPct(breakdown.Growth.TimeConsistency),
	))
	quality := round2(mean(
		// Lower skip rate means stronger retention.
		100-clampPct(breakdown.Quality.SkipRate),
		clampPct(breakdown.Quality.RetentionRate),
		clampPct(breakdown.Quality.CrossPlatformScore),
		clampPct(breakdown.Quality.GenreFit),
	))
	potential := round2(mean(
		e.squash(breakdown.Potential.ViralCoefficient, e.scales.ViralCoefficient),
		clampPct(breakdown.Potential.MarketPosition),
		clampPct(breakdown.Potential.DemographicAppeal),
	))

	overall := round2(e.weights.Engagement*engagement +
		e.weights.Growth*growth +
		e.weights.Quality*quality +
		e.weights.Potential*potential)

	return ArtistScore{
		ArtistID:        in.ArtistID,
		ArtistName:      in.ArtistName,
		EngagementScore: engagement,
		GrowthScore:     growth,
		QualityScore:    quality,
		PotentialScore:  potential,
		OverallScore:    overall,
		ScoreCategory:   e.Categorize(overall),
		Breakdown:       breakdown,
	}
}

// Categorize maps an overall score to its tier label.
func (e *Engine) Categorize(overall float64) string {
	for _, c := range e.categories {
		if overall >= c.Min {
			return c.Label
		}
	}
	return e.categories[len(e.categories)-1].Label
}

func (e *Engine) buildBreakdown(in Inputs) Breakdown {
	plays := float64(in.Stats.TotalPlays)

	geoScore := e.squash(float64(in.RegionCount), e.scales.Regions)
	saveRate := ratePct(in.Stats.TotalSaves, plays)

	return Breakdown{
		Engagement: EngagementBreakdown{
			CompletionRate: clampPct(in.Stats.AvgCompletionRate * 100),
			ReplayRate:     clampPct(in.Stats.ReplayRate * 100),
			LikeRate:       ratePct(in.Stats.TotalLikes, plays),
			SaveRate:       saveRate,
			ShareRate:      ratePct(in.Stats.TotalShares, plays),
		},
		Growth: GrowthBreakdown{
			PlayVelocity:         plays / math.Max(in.WindowDays, 1),
			UniqueListenerGrowth: in.Growth.UniquePlaysGrowth,
			GeographicExpansion:  in.RegionCount,
			// Evenness proxy: large period-over-period swings in either
			// direction mean bursty listening, not a steady audience.
			TimeConsistency: 100 - math.Min(100, math.Abs(in.Growth.PlaysGrowth)),
		},
		Quality: QualityBreakdown{
			SkipRate:           clampPct(in.Stats.SkipRate * 100),
			RetentionRate:      clampPct(in.Stats.AvgCompletionRate * 100),
			CrossPlatformScore: e.squash(float64(in.PlatformCount), e.scales.Platforms),
			GenreFit:           clampPct(in.GenreFit),
		},
		Potential: PotentialBreakdown{
			ViralCoefficient:  float64(in.Stats.TotalShares) / plays,
			MarketPosition:    clampPct(in.Percentile),
			DemographicAppeal: clampPct((geoScore + saveRate) / 2),
		},
	}
}

// squash normalizes an unbounded non-negative value to 0-100 against a
// reference scale, so no outlier can break the score contract.
func (e *Engine) squash(value, referenceScale float64) float64 {
	if value <= 0 {
		return 0
	}
	return math.Min(100, value/referenceScale*100)
}

func ratePct(count int64, plays float64) float64 {
	if plays == 0 {
		return 0
	}
	return clampPct(float64(count) / plays * 100)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func mean(values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
