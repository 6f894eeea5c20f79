package cluster

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
)

// dbscanMinPoints is the density threshold for cluster formation. It is
// deliberately lower than the configured minimum cluster size so that
// small clusters still form and get flagged as outliers instead of being
// dissolved into noise.
const dbscanMinPoints = 2

// snippetLength is how much of an item body is combined with the title
// before embedding.
const snippetLength = 300

// Engine groups canonical items into topics. A run embeds the item
// snippets, projects them onto their principal components, density-clusters
// the reduced vectors and labels each cluster with its most characteristic
// terms. Identical corpus and seed produce identical topics.
type Engine struct {
	config *model.PipelineConfig
	embed  EmbedFunc
	log    *slog.Logger
}

func NewEngine(config *model.PipelineConfig, embed EmbedFunc, logger *slog.Logger) *Engine {
	return &Engine{
		config: config,
		embed:  embed,
		log:    logger,
	}
}

// Cluster computes the topics of the given corpus. Prior topics are used
// for id continuity: a new topic whose centroid is close enough to a prior
// topic's centroid keeps that topic's id. A corpus below the configured
// minimum yields no topics and no error.
func (e *Engine) Cluster(items []*model.CanonicalItem, prior []*model.Topic) ([]*model.Topic, error) {
	corpus := make([]*model.CanonicalItem, 0, len(items))
	for _, item := range items {
		if item.DuplicateOf == nil {
			corpus = append(corpus, item)
		}
	}
	if len(corpus) < e.config.MinCorpusSize {
		e.log.Debug("corpus below minimum size, skipping clustering", slog.Int("corpus", len(corpus)), slog.Int("minimum", e.config.MinCorpusSize))
		return nil, nil
	}

	texts := make([]string, len(corpus))
	embeddings := make([][]float32, len(corpus))
	for i, item := range corpus {
		texts[i] = item.Snippet(snippetLength)
		embedding, err := e.embed(texts[i])
		if err != nil {
			return nil, helper.NewError("embed item", err)
		}
		embeddings[i] = embedding
	}

	reduced, err := reduceDimensions(embeddings, e.config.ReducedDims)
	if err != nil {
		return nil, helper.NewError("reduce embeddings", err)
	}

	labels := dbscan(reduced, e.config.ClusterEps, dbscanMinPoints)
	terms := representativeTerms(texts, labels, e.config.RepresentativeTerms)

	members := make(map[int][]int)
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		members[label] = append(members[label], i)
	}

	// Seeded id source so reruns over the same corpus mint the same ids
	// for topics that have no prior to continue.
	rng := rand.New(rand.NewSource(e.config.Seed))
	usedPrior := make(map[uuid.UUID]bool)

	now := time.Now()
	topics := make([]*model.Topic, 0, len(members))
	for label := 0; ; label++ {
		indices, ok := members[label]
		if !ok {
			break
		}
		centroid := centroidOf(embeddings, indices)
		topicID, continued := e.continueFrom(prior, centroid, usedPrior)
		if !continued {
			topicID, err = uuid.NewRandomFromReader(rng)
			if err != nil {
				return nil, helper.NewError("generate topic id", err)
			}
		}

		memberRIDs := make([]uuid.UUID, len(indices))
		for i, idx := range indices {
			memberRIDs[i] = corpus[idx].RID
		}
		topics = append(topics, &model.Topic{
			TopicID:             topicID,
			RepresentativeTerms: terms[label],
			MemberRIDs:          memberRIDs,
			Centroid:            centroid,
			IsOutlier:           len(indices) < e.config.MinClusterSize,
			CreatedAt:           now,
		})
	}

	e.log.Info("clustering finished", slog.Int("corpus", len(corpus)), slog.Int("topics", len(topics)))
	return topics, nil
}

// continueFrom finds the closest unused prior topic and reuses its id when
// the centroid cosine similarity reaches the continuity threshold.
func (e *Engine) continueFrom(prior []*model.Topic, centroid []float32, used map[uuid.UUID]bool) (uuid.UUID, bool) {
	best := -1
	bestSim := e.config.TopicContinuityThreshold
	for i, p := range prior {
		if used[p.TopicID] || len(p.Centroid) != len(centroid) {
			continue
		}
		if sim := cosineSimilarity(centroid, p.Centroid); sim >= bestSim {
			best, bestSim = i, sim
		}
	}
	if best < 0 {
		return uuid.Nil, false
	}
	used[prior[best].TopicID] = true
	return prior[best].TopicID, true
}

// centroidOf averages the full-space embeddings of the given indices
func centroidOf(embeddings [][]float32, indices []int) []float32 {
	if len(indices) == 0 {
		return nil
	}
	dim := len(embeddings[indices[0]])
	centroid := make([]float32, dim)
	for _, idx := range indices {
		for j, x := range embeddings[idx] {
			centroid[j] += x
		}
	}
	for j := range centroid {
		centroid[j] /= float32(len(indices))
	}
	return centroid
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
