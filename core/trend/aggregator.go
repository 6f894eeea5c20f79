package trend

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/siherrmann/trendsense/model"
)

// Aggregator turns scored, clustered items into per-topic trend windows.
// Windows are pure derived data: the same items and topics always produce
// the same windows.
type Aggregator struct {
	config *model.PipelineConfig
	log    *slog.Logger
}

func NewAggregator(config *model.PipelineConfig, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		config: config,
		log:    logger,
	}
}

// Windows buckets the items by publish time and topic and computes one
// trend window per (topic, bucket) pair. Items outside every regular topic,
// including members of outlier-flagged topics, are accounted to the
// uncategorized topic so bucket volumes stay conserved. Duplicate aliases
// are skipped entirely.
func (a *Aggregator) Windows(items []*model.CanonicalItem, topics []*model.Topic) []*model.TrendWindow {
	assignment := topicAssignment(topics)
	normalized := normalizePopularity(items)

	type key struct {
		topicID uuid.UUID
		bucket  time.Time
	}
	groups := make(map[key][]*model.CanonicalItem)
	for _, item := range items {
		if item.DuplicateOf != nil {
			continue
		}
		topicID, ok := assignment[item.RID]
		if !ok {
			topicID = model.UncategorizedTopicID
		}
		bucket := item.PublishedAt.UTC().Truncate(a.config.BucketWidth)
		k := key{topicID: topicID, bucket: bucket}
		groups[k] = append(groups[k], item)
	}

	now := time.Now()
	width := int64(a.config.BucketWidth / time.Second)
	windows := make([]*model.TrendWindow, 0, len(groups))
	for k, members := range groups {
		mean, stddev := sentimentMoments(members)
		windows = append(windows, &model.TrendWindow{
			TopicID:         k.topicID,
			Bucket:          k.bucket,
			BucketWidth:     width,
			ItemCount:       len(members),
			MeanSentiment:   mean,
			SentimentStddev: stddev,
			TopItems:        a.topItems(members, normalized),
			CreatedAt:       now,
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		if !windows[i].Bucket.Equal(windows[j].Bucket) {
			return windows[i].Bucket.Before(windows[j].Bucket)
		}
		return windows[i].TopicID.String() < windows[j].TopicID.String()
	})
	fillVelocity(windows, a.config.BucketWidth)

	a.log.Debug("aggregation finished", slog.Int("items", len(items)), slog.Int("windows", len(windows)))
	return windows
}

// topicAssignment maps item rids to their topic id. Members of outlier
// topics map to the uncategorized topic.
func topicAssignment(topics []*model.Topic) map[uuid.UUID]uuid.UUID {
	assignment := make(map[uuid.UUID]uuid.UUID)
	for _, topic := range topics {
		topicID := topic.TopicID
		if topic.IsOutlier {
			topicID = model.UncategorizedTopicID
		}
		for _, rid := range topic.MemberRIDs {
			assignment[rid] = topicID
		}
	}
	return assignment
}

// normalizePopularity min-max scales the raw popularity per source so the
// ranking is comparable across sources with different counter magnitudes.
// A source with uniform popularity maps to 1.0 when the counters are
// nonzero and 0.0 otherwise.
func normalizePopularity(items []*model.CanonicalItem) map[uuid.UUID]float64 {
	type bounds struct {
		min, max float64
		seen     bool
	}
	perSource := make(map[model.SourceKind]*bounds)
	for _, item := range items {
		if item.DuplicateOf != nil {
			continue
		}
		p := item.Metrics.Popularity()
		b, ok := perSource[item.SourceID]
		if !ok {
			perSource[item.SourceID] = &bounds{min: p, max: p, seen: true}
			continue
		}
		if p < b.min {
			b.min = p
		}
		if p > b.max {
			b.max = p
		}
	}

	normalized := make(map[uuid.UUID]float64, len(items))
	for _, item := range items {
		if item.DuplicateOf != nil {
			continue
		}
		b := perSource[item.SourceID]
		p := item.Metrics.Popularity()
		switch {
		case b.max == b.min && b.max > 0:
			normalized[item.RID] = 1.0
		case b.max == b.min:
			normalized[item.RID] = 0.0
		default:
			normalized[item.RID] = (p - b.min) / (b.max - b.min)
		}
	}
	return normalized
}

// sentimentMoments returns the mean and sample standard deviation of the
// member sentiment scores. Items without a sentiment are ignored; fewer
// than two scored items yield a zero stddev.
func sentimentMoments(members []*model.CanonicalItem) (float64, float64) {
	scores := make([]float64, 0, len(members))
	for _, item := range members {
		if item.Sentiment != nil {
			scores = append(scores, item.Sentiment.Score)
		}
	}
	if len(scores) == 0 {
		return 0, 0
	}
	mean := stat.Mean(scores, nil)
	if len(scores) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(scores, nil)
}

// topItems ranks the window members by normalized popularity, breaking
// ties by title so the ranking is deterministic
func (a *Aggregator) topItems(members []*model.CanonicalItem, normalized map[uuid.UUID]float64) model.TopItemRefs {
	refs := make(model.TopItemRefs, 0, len(members))
	for _, item := range members {
		refs = append(refs, model.TopItemRef{
			ItemRID:    item.RID,
			Title:      item.Title,
			Popularity: normalized[item.RID],
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Popularity != refs[j].Popularity {
			return refs[i].Popularity > refs[j].Popularity
		}
		return refs[i].Title < refs[j].Title
	})
	if len(refs) > a.config.TopItemsPerWindow {
		refs = refs[:a.config.TopItemsPerWindow]
	}
	return refs
}

// fillVelocity sets each window's velocity to its item count minus the
// count of the same topic's window one bucket earlier. A topic without a
// preceding window grows from zero.
func fillVelocity(windows []*model.TrendWindow, width time.Duration) {
	counts := make(map[uuid.UUID]map[time.Time]int)
	for _, w := range windows {
		byBucket, ok := counts[w.TopicID]
		if !ok {
			byBucket = make(map[time.Time]int)
			counts[w.TopicID] = byBucket
		}
		byBucket[w.Bucket] = w.ItemCount
	}
	for _, w := range windows {
		previous := counts[w.TopicID][w.Bucket.Add(-width)]
		w.Velocity = w.ItemCount - previous
	}
}
