package dedup

import (
	"time"

	"github.com/google/uuid"

	"github.com/siherrmann/trendsense/model"
)

// entry tracks one canonical item with its normalized title tokens for
// near-duplicate comparison
type entry struct {
	item   *model.CanonicalItem
	tokens []string
}

// Resolver resolves raw items into canonical items, merging exact and
// near-duplicate headlines across sources. It holds only in-memory state;
// persisting the resolved items is the caller's responsibility.
type Resolver struct {
	similarityThreshold float64
	byFingerprint       map[string]*entry
	order               []*entry               // insertion order, for deterministic near-match scans
	seeded              int                    // leading entries of order that came from prior history
	aliases             []*model.CanonicalItem // near-duplicate fingerprints pointing at their representative
}

// NewResolver creates a resolver with the given near-duplicate similarity
// threshold. Prior canonical items (e.g. the recent history window) can be
// seeded so cross-cycle duplicates merge too.
func NewResolver(similarityThreshold float64, prior []*model.CanonicalItem) *Resolver {
	r := &Resolver{
		similarityThreshold: similarityThreshold,
		byFingerprint:       make(map[string]*entry),
	}
	for _, item := range prior {
		e := &entry{item: item, tokens: NormalizeTitle(item.Title)}
		r.byFingerprint[item.Fingerprint] = e
		r.order = append(r.order, e)
	}
	r.seeded = len(r.order)
	return r
}

// Resolve resolves a raw item to its canonical item. An exact fingerprint
// match always merges; otherwise titles within the similarity threshold
// merge as near-duplicates. A new story yields a fresh canonical item.
func (r *Resolver) Resolve(raw model.RawItem) *model.CanonicalItem {
	fingerprint := Fingerprint(raw.Title, raw.URL)
	tokens := NormalizeTitle(raw.Title)

	if target, ok := r.byFingerprint[fingerprint]; ok {
		merge(target.item, raw)
		return target.item
	}

	if target := r.nearMatch(tokens); target != nil {
		merge(target.item, raw)
		// Register the variant fingerprint so future exact matches of this
		// wording resolve directly, and keep a lookup-only alias record.
		r.byFingerprint[fingerprint] = target
		rid := target.item.RID
		r.aliases = append(r.aliases, &model.CanonicalItem{
			RID:         uuid.New(),
			SourceID:    raw.SourceID,
			ExternalID:  raw.ExternalID,
			Title:       raw.Title,
			URL:         raw.URL,
			Fingerprint: fingerprint,
			DuplicateOf: &rid,
			PublishedAt: publishedAt(raw),
			FirstSeenAt: publishedAt(raw),
		})
		return target.item
	}

	item := &model.CanonicalItem{
		RID:         uuid.New(),
		SourceID:    raw.SourceID,
		ExternalID:  raw.ExternalID,
		Title:       raw.Title,
		Body:        raw.Body,
		URL:         raw.URL,
		Author:      raw.Author,
		Fingerprint: fingerprint,
		PublishedAt: publishedAt(raw),
		FirstSeenAt: publishedAt(raw),
		Metrics:     raw.Metrics,
	}

	e := &entry{item: item, tokens: tokens}
	r.byFingerprint[fingerprint] = e
	r.order = append(r.order, e)

	return item
}

// Items returns all canonical representatives in first-seen order
func (r *Resolver) Items() []*model.CanonicalItem {
	items := make([]*model.CanonicalItem, len(r.order))
	for i, e := range r.order {
		items[i] = e.item
	}
	return items
}

// NewItems returns only the representatives first resolved in this run,
// excluding the seeded history
func (r *Resolver) NewItems() []*model.CanonicalItem {
	items := make([]*model.CanonicalItem, 0, len(r.order)-r.seeded)
	for _, e := range r.order[r.seeded:] {
		items = append(items, e.item)
	}
	return items
}

// Aliases returns the lookup-only records created for near-duplicate
// fingerprints. Each points at its representative via DuplicateOf and
// carries no metrics of its own.
func (r *Resolver) Aliases() []*model.CanonicalItem {
	return r.aliases
}

// nearMatch scans known items for a title within the similarity threshold.
// Scanned in insertion order so resolution is deterministic.
func (r *Resolver) nearMatch(tokens []string) *entry {
	if len(tokens) == 0 {
		return nil
	}
	for _, e := range r.order {
		if TokenSimilarity(tokens, e.tokens) >= r.similarityThreshold {
			return e
		}
	}
	return nil
}

// merge folds a duplicate raw item into its canonical representative:
// metrics merge by per-key max and the earliest publish time wins
func merge(canonical *model.CanonicalItem, raw model.RawItem) {
	canonical.Metrics = canonical.Metrics.Merge(raw.Metrics)

	published := publishedAt(raw)
	if published.Before(canonical.FirstSeenAt) {
		canonical.FirstSeenAt = published
	}
	if published.Before(canonical.PublishedAt) {
		canonical.PublishedAt = published
	}

	if canonical.Body == "" && raw.Body != "" {
		canonical.Body = raw.Body
	}
}

// publishedAt returns the source-reported publish time, falling back to the
// fetch time when the source did not report one
func publishedAt(raw model.RawItem) time.Time {
	if raw.PublishedAt.IsZero() {
		return raw.FetchedAt
	}
	return raw.PublishedAt
}
