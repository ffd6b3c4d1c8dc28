package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrScoreNotFound is returned when no persisted score exists for a key.
var ErrScoreNotFound = errors.New("artist score not found")

// ArtistScoreRecord is the persisted form of an ArtistScore, keyed by
// (artist, time range). A recalculation supersedes the prior row for
// the same key in a single upsert, so readers never observe sub-scores
// from two different runs mixed in one row.
type ArtistScoreRecord struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	ArtistID        uint   `gorm:"uniqueIndex:idx_artist_score_unique;not null"`
	TimeRange       string `gorm:"uniqueIndex:idx_artist_score_unique;not null"`
	ArtistName      string `gorm:"not null"`
	EngagementScore float64
	GrowthScore     float64
	QualityScore    float64
	PotentialScore  float64
	OverallScore    float64 `gorm:"index"`
	ScoreCategory   string
	Breakdown       string `gorm:"type:text"`
	CalculatedAt    time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SaveScore upserts one score for its (artist, timeRange) key.
func SaveScore(db *gorm.DB, score ArtistScore, timeRange string, calculatedAt time.Time) error {
	breakdownJSON, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("error encoding score breakdown: %w", err)
	}

	record := ArtistScoreRecord{
		ArtistID:        score.ArtistID,
		TimeRange:       timeRange,
		ArtistName:      score.ArtistName,
		EngagementScore: score.EngagementScore,
		GrowthScore:     score.GrowthScore,
		QualityScore:    score.QualityScore,
		PotentialScore:  score.PotentialScore,
		OverallScore:    score.OverallScore,
		ScoreCategory:   score.ScoreCategory,
		Breakdown:       string(breakdownJSON),
		CalculatedAt:    calculatedAt,
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "artist_id"}, {Name: "time_range"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"artist_name", "engagement_score", "growth_score", "quality_score",
			"potential_score", "overall_score", "score_category", "breakdown",
			"calculated_at", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("error persisting score for artist %d: %w", score.ArtistID, err)
	}
	return nil
}

// LoadScore returns the persisted score for one artist and range.
func LoadScore(db *gorm.DB, artistID uint, timeRange string) (ArtistScore, error) {
	var record ArtistScoreRecord
	err := db.Where("artist_id = ? AND time_range = ?", artistID, timeRange).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ArtistScore{}, ErrScoreNotFound
		}
		return ArtistScore{}, fmt.Errorf("error loading score for artist %d: %w", artistID, err)
	}
	return record.ToScore()
}

// LoadScores returns every persisted score for a range.
func LoadScores(db *gorm.DB, timeRange string) ([]ArtistScore, error) {
	var records []ArtistScoreRecord
	err := db.Where("time_range = ?", timeRange).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("error loading scores for range %s: %w", timeRange, err)
	}

	scores := make([]ArtistScore, 0, len(records))
	for _, record := range records {
		score, err := record.ToScore()
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// OverallPercentile reports where an overall score sits within the
// persisted population for a range, as the percentage of other rows
// strictly below it, capped at 100 for scores above the whole
// population. No population yields the median.
func OverallPercentile(db *gorm.DB, timeRange string, overall float64) (float64, error) {
	var total, below int64
	if err := db.Model(&ArtistScoreRecord{}).Where("time_range = ?", timeRange).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("error counting scored population: %w", err)
	}
	if total <= 1 {
		return 50, nil
	}
	err := db.Model(&ArtistScoreRecord{}).
		Where("time_range = ? AND overall_score < ?", timeRange, overall).
		Count(&below).Error
	if err != nil {
		return 0, fmt.Errorf("error computing score percentile: %w", err)
	}
	return math.Min(100, float64(below)/float64(total-1)*100), nil
}

// ToScore decodes the record back into the API shape.
func (r ArtistScoreRecord) ToScore() (ArtistScore, error) {
	var breakdown Breakdown
	if r.Breakdown != "" {
		if err := json.Unmarshal([]byte(r.Breakdown), &breakdown); err != nil {
			return ArtistScore{}, fmt.Errorf("error decoding score breakdown for artist %d: %w", r.ArtistID, err)
		}
	}
	return ArtistScore{
		ArtistID:        r.ArtistID,
		ArtistName:      r.ArtistName,
		EngagementScore: r.EngagementScore,
		GrowthScore:     r.GrowthScore,
		QualityScore:    r.QualityScore,
		PotentialScore:  r.PotentialScore,
		OverallScore:    r.OverallScore,
		ScoreCategory:   r.ScoreCategory,
		Breakdown:       breakdown,
	}, nil
}
