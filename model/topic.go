package model

import (
	"time"

	"github.com/google/uuid"
)

// Topic is an emergent cluster of canonical items.
// Topics are recomputed per clustering run; the TopicID is reused from a
// prior run only when the new centroid is close enough (continuity), so the
// member set and centroid are authoritative, not the id.
type Topic struct {
	ID                  int64       `json:"id"`
	TopicID             uuid.UUID   `json:"topic_id"`
	RepresentativeTerms []string    `json:"representative_terms"`
	MemberRIDs          []uuid.UUID `json:"member_rids"`
	Centroid            []float32   `json:"centroid,omitempty"`
	IsOutlier           bool        `json:"is_outlier"`
	CreatedAt           time.Time   `json:"created_at"`
}

// Label returns a short human-readable name built from the top terms
func (t *Topic) Label() string {
	n := len(t.RepresentativeTerms)
	if n == 0 {
		return t.TopicID.String()
	}
	if n > 3 {
		n = 3
	}
	label := t.RepresentativeTerms[0]
	for _, term := range t.RepresentativeTerms[1:n] {
		label += " " + term
	}
	return label
}
