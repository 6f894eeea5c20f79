package cluster

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siherrmann/trendsense/model"
)

// stubEmbedder maps each text to a fixed vector so clustering tests are
// fully deterministic without a model download.
func stubEmbedder(vectors map[string][]float32) EmbedFunc {
	return func(text string) ([]float32, error) {
		v, ok := vectors[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		return v, nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func testItem(title string) *model.CanonicalItem {
	return &model.CanonicalItem{RID: uuid.New(), Title: title}
}

func TestReduceDimensions(t *testing.T) {
	vectors := [][]float32{
		{1.0, 0.1, 0.0, 0.0},
		{0.9, 0.0, 0.1, 0.0},
		{0.0, 1.0, 0.0, 0.1},
		{0.1, 0.9, 0.0, 0.0},
	}

	t.Run("preserves separation between groups", func(t *testing.T) {
		reduced, err := reduceDimensions(vectors, 2)
		require.NoError(t, err)
		require.Len(t, reduced, 4)
		require.Len(t, reduced[0], 2)

		within := euclidean(reduced[0], reduced[1])
		across := euclidean(reduced[0], reduced[2])
		assert.Less(t, within, across)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		first, err := reduceDimensions(vectors, 2)
		require.NoError(t, err)
		second, err := reduceDimensions(vectors, 2)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("caps dimensions at input size", func(t *testing.T) {
		reduced, err := reduceDimensions(vectors, 32)
		require.NoError(t, err)
		assert.Len(t, reduced[0], 4)
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := reduceDimensions(nil, 2)
		assert.Error(t, err)
	})

	t.Run("mismatched dimensions fail", func(t *testing.T) {
		_, err := reduceDimensions([][]float32{{1, 0}, {1, 0, 0}}, 2)
		assert.Error(t, err)
	})
}

func TestDBSCAN(t *testing.T) {
	points := [][]float64{
		{0.0, 0.0},
		{0.1, 0.0},
		{0.0, 0.1},
		{5.0, 5.0},
		{5.1, 5.0},
		{10.0, 0.0},
	}

	labels := dbscan(points, 0.5, 2)
	require.Len(t, labels, 6)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.NotEqual(t, labels[0], labels[3])
	assert.Equal(t, noiseLabel, labels[5])

	t.Run("deterministic labels", func(t *testing.T) {
		assert.Equal(t, labels, dbscan(points, 0.5, 2))
	})

	t.Run("all noise when radius too small", func(t *testing.T) {
		for _, label := range dbscan(points, 0.01, 2) {
			assert.Equal(t, noiseLabel, label)
		}
	})
}

func TestRepresentativeTerms(t *testing.T) {
	texts := []string{
		"rust compiler speeds up builds",
		"rust compiler gets new backend",
		"central bank raises interest rates",
		"interest rates climb after bank meeting",
		"noise entry about gardening",
	}
	labels := []int{0, 0, 1, 1, noiseLabel}

	terms := representativeTerms(texts, labels, 3)
	require.Len(t, terms, 2)

	assert.Contains(t, terms[0], "rust")
	assert.Contains(t, terms[0], "compiler")
	assert.Contains(t, terms[1], "rates")
	assert.NotContains(t, terms[0], "gardening")

	t.Run("limit respected", func(t *testing.T) {
		for _, clusterTerms := range terms {
			assert.LessOrEqual(t, len(clusterTerms), 3)
		}
	})

	t.Run("no clusters yields nil", func(t *testing.T) {
		assert.Nil(t, representativeTerms(texts, []int{noiseLabel, noiseLabel, noiseLabel, noiseLabel, noiseLabel}, 3))
	})
}

func clusterTestConfig() *model.PipelineConfig {
	config := model.DefaultPipelineConfig()
	config.MinCorpusSize = 4
	config.MinClusterSize = 3
	config.ReducedDims = 2
	config.ClusterEps = 0.35
	return &config
}

func clusterTestVectors() map[string][]float32 {
	return map[string][]float32{
		"ai model beats benchmark":       {1.0, 0.05, 0.0, 0.0},
		"new ai model released":          {0.95, 0.0, 0.05, 0.0},
		"ai benchmark results published": {0.9, 0.05, 0.05, 0.0},
		"stock market drops sharply":     {0.0, 1.0, 0.0, 0.05},
		"market selloff continues":       {0.05, 0.95, 0.0, 0.0},
		"lone unrelated story":           {0.0, 0.0, 0.0, 1.0},
	}
}

func TestEngineCluster(t *testing.T) {
	titles := []string{
		"ai model beats benchmark",
		"new ai model released",
		"ai benchmark results published",
		"stock market drops sharply",
		"market selloff continues",
		"lone unrelated story",
	}

	newItems := func() []*model.CanonicalItem {
		items := make([]*model.CanonicalItem, len(titles))
		for i, title := range titles {
			items[i] = testItem(title)
		}
		return items
	}

	engine := NewEngine(clusterTestConfig(), stubEmbedder(clusterTestVectors()), testLogger())

	t.Run("groups similar items into topics", func(t *testing.T) {
		topics, err := engine.Cluster(newItems(), nil)
		require.NoError(t, err)
		require.Len(t, topics, 2)

		var large, small *model.Topic
		for _, topic := range topics {
			if len(topic.MemberRIDs) == 3 {
				large = topic
			} else {
				small = topic
			}
		}
		require.NotNil(t, large)
		require.NotNil(t, small)

		assert.False(t, large.IsOutlier)
		assert.True(t, small.IsOutlier, "cluster below minimum size should be flagged")
		assert.Len(t, small.MemberRIDs, 2)
		assert.Contains(t, large.RepresentativeTerms, "ai")
		assert.NotEmpty(t, large.Centroid)
	})

	t.Run("identical corpus and seed yield identical topic ids", func(t *testing.T) {
		items := newItems()
		first, err := engine.Cluster(items, nil)
		require.NoError(t, err)
		second, err := engine.Cluster(items, nil)
		require.NoError(t, err)
		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].TopicID, second[i].TopicID)
			assert.Equal(t, first[i].MemberRIDs, second[i].MemberRIDs)
		}
	})

	t.Run("prior topic id continues when centroid matches", func(t *testing.T) {
		items := newItems()
		first, err := engine.Cluster(items, nil)
		require.NoError(t, err)

		second, err := engine.Cluster(items, first)
		require.NoError(t, err)
		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].TopicID, second[i].TopicID)
		}
	})

	t.Run("distant prior centroid gets a fresh id", func(t *testing.T) {
		distant := &model.Topic{
			TopicID:  uuid.New(),
			Centroid: []float32{0, 0, -1, 0},
		}
		topics, err := engine.Cluster(newItems(), []*model.Topic{distant})
		require.NoError(t, err)
		for _, topic := range topics {
			assert.NotEqual(t, distant.TopicID, topic.TopicID)
		}
	})

	t.Run("corpus below minimum yields no topics", func(t *testing.T) {
		topics, err := engine.Cluster(newItems()[:2], nil)
		require.NoError(t, err)
		assert.Nil(t, topics)
	})

	t.Run("duplicate aliases are excluded from the corpus", func(t *testing.T) {
		items := newItems()
		rep := items[0].RID
		items[5].DuplicateOf = &rep
		topics, err := engine.Cluster(items, nil)
		require.NoError(t, err)
		for _, topic := range topics {
			assert.NotContains(t, topic.MemberRIDs, items[5].RID)
		}
	})

	t.Run("embedder failure is returned", func(t *testing.T) {
		failing := NewEngine(clusterTestConfig(), stubEmbedder(nil), testLogger())
		_, err := failing.Cluster(newItems(), nil)
		assert.Error(t, err)
	})
}
