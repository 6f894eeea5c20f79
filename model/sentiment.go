package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// SentimentLabel is the discrete sentiment class of an item
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// LabelForScore maps a continuous score to a label using the given threshold
func LabelForScore(score, threshold float64) SentimentLabel {
	switch {
	case score > threshold:
		return SentimentPositive
	case score < -threshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ScorerScores maps scorer name to its normalized score in [-1, 1]
type ScorerScores map[string]float64

// Value implements driver.Valuer for JSONB storage
func (s ScorerScores) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval
func (s *ScorerScores) Scan(value interface{}) error {
	if value == nil {
		*s = ScorerScores{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, s)
}

// SentimentResult is the ensemble output for one canonical item
type SentimentResult struct {
	Label            SentimentLabel `json:"label"`
	Score            float64        `json:"score"`
	PerScorerScores  ScorerScores   `json:"per_scorer_scores"`
	Agreement        bool           `json:"agreement"`
	AllScorersFailed bool           `json:"all_scorers_failed"`
}
