package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UncategorizedTopicID is the synthetic topic collecting outlier and
// unclustered items so per-bucket volume accounting still balances.
var UncategorizedTopicID = uuid.Nil

// TopItemRef is one entry of a trend window's popularity ranking
type TopItemRef struct {
	ItemRID    uuid.UUID `json:"item_rid"`
	Title      string    `json:"title"`
	Popularity float64   `json:"popularity"` // normalized, comparable across sources
}

// TopItemRefs is stored as a JSONB array
type TopItemRefs []TopItemRef

// Value implements driver.Valuer for JSONB storage
func (t TopItemRefs) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB retrieval
func (t *TopItemRefs) Scan(value interface{}) error {
	if value == nil {
		*t = TopItemRefs{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, t)
}

// TrendWindow is the aggregate for one (topic, time bucket) pair.
// Windows are derived data, recomputed and replaced wholesale per cycle.
type TrendWindow struct {
	ID              int64       `json:"id"`
	TopicID         uuid.UUID   `json:"topic_id"`
	Bucket          time.Time   `json:"bucket"`
	BucketWidth     int64       `json:"bucket_width"` // seconds
	ItemCount       int         `json:"item_count"`
	MeanSentiment   float64     `json:"mean_sentiment"`
	SentimentStddev float64     `json:"sentiment_stddev"`
	Velocity        int         `json:"velocity"`
	TopItems        TopItemRefs `json:"top_items"`
	CreatedAt       time.Time   `json:"created_at"`
}

// SourceStatus reports one source's outcome for a collection run
type SourceStatus struct {
	Source     SourceKind `json:"source"`
	OK         bool       `json:"ok"`
	ItemCount  int        `json:"item_count"`
	Error      string     `json:"error,omitempty"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
	Disabled   bool       `json:"disabled,omitempty"`
	InBackoff  bool       `json:"in_backoff,omitempty"`
}

// SourceStatuses is stored as a JSONB array
type SourceStatuses []SourceStatus

// Value implements driver.Valuer for JSONB storage
func (s SourceStatuses) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval
func (s *SourceStatuses) Scan(value interface{}) error {
	if value == nil {
		*s = SourceStatuses{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, s)
}

// CycleStatus is the persisted outcome of one pipeline cycle, readable by
// the dashboard to distinguish fresh data from a failed run
type CycleStatus struct {
	ID          int64          `json:"id"`
	State       string         `json:"state"` // final scheduler state of the cycle
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	ItemCount   int            `json:"item_count"`
	TopicCount  int            `json:"topic_count"`
	WindowCount int            `json:"window_count"`
	Sources     SourceStatuses `json:"sources"`
	Error       string         `json:"error,omitempty"`
}

// Succeeded reports whether the cycle persisted its results
func (c *CycleStatus) Succeeded() bool {
	return c.Error == "" && c.State == "idle"
}
