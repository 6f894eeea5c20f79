package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SourceKind identifies the source family an item was fetched from
type SourceKind string

const (
	SourceHackerNews SourceKind = "hackernews"
	SourceReddit     SourceKind = "reddit"
	SourceRSS        SourceKind = "rss"
)

// ValidSourceKinds lists the built-in source kinds; custom adapters may
// introduce further kinds via their config entry
var ValidSourceKinds = []SourceKind{SourceHackerNews, SourceReddit, SourceRSS}

// RawMetrics holds the per-source engagement counters in a fixed shape.
// Adapters validate and fill these at the fetch boundary; nothing downstream
// interprets source-specific blobs.
type RawMetrics struct {
	Score    int `json:"score"`
	Comments int `json:"comments"`
	Upvotes  int `json:"upvotes"`
}

// Merge combines two metric sets by per-field max
func (m RawMetrics) Merge(other RawMetrics) RawMetrics {
	return RawMetrics{
		Score:    max(m.Score, other.Score),
		Comments: max(m.Comments, other.Comments),
		Upvotes:  max(m.Upvotes, other.Upvotes),
	}
}

// Popularity returns the raw popularity proxy for ranking within one source.
// Cross-source comparison requires normalization first (see core/trend).
func (m RawMetrics) Popularity() float64 {
	return float64(m.Score + m.Upvotes + m.Comments)
}

// Value implements driver.Valuer for JSONB storage
func (m RawMetrics) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval
func (m *RawMetrics) Scan(value interface{}) error {
	if value == nil {
		*m = RawMetrics{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// RawItem is one fetched unit from a source, immutable once created
type RawItem struct {
	SourceID    SourceKind `json:"source_id"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body,omitempty"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Metrics     RawMetrics `json:"metrics"`
}

// Validate checks the invariants every adapter must uphold. Source kinds
// are not restricted to the built-ins so registered custom adapters pass.
func (r *RawItem) Validate() error {
	if r.SourceID == "" {
		return errors.New("raw item has no source id")
	}
	if r.ExternalID == "" {
		return errors.New("raw item has no external id")
	}
	if r.Title == "" {
		return errors.New("raw item has no title")
	}
	return nil
}

// CanonicalItem is the deduplicated representative of one or more raw items
// describing the same story
type CanonicalItem struct {
	ID          int64            `json:"id"`
	RID         uuid.UUID        `json:"rid"`
	SourceID    SourceKind       `json:"source_id"`
	ExternalID  string           `json:"external_id"`
	Title       string           `json:"title"`
	Body        string           `json:"body,omitempty"`
	URL         string           `json:"url"`
	Author      string           `json:"author,omitempty"`
	Fingerprint string           `json:"fingerprint"`
	DuplicateOf *uuid.UUID       `json:"duplicate_of,omitempty"`
	PublishedAt time.Time        `json:"published_at"`
	FirstSeenAt time.Time        `json:"first_seen_at"`
	Metrics     RawMetrics       `json:"metrics"`
	Sentiment   *SentimentResult `json:"sentiment,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Snippet returns the text used for scoring and embedding: the title plus a
// bounded prefix of the body.
func (c *CanonicalItem) Snippet(maxBody int) string {
	if c.Body == "" || maxBody <= 0 {
		return c.Title
	}
	body := c.Body
	if len(body) > maxBody {
		// Back up to a rune boundary so the cut never yields invalid UTF-8.
		cut := maxBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return c.Title + ". " + body
}
