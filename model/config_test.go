package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPipelineConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultPipelineConfig()

		assert.Equal(t, 15*time.Minute, config.FetchInterval, "Default FetchInterval should be 15m")
		assert.Equal(t, 10*time.Second, config.FetchTimeout, "Default FetchTimeout should be 10s")
		assert.Equal(t, 100, config.MaxItemsPerSource, "Default MaxItemsPerSource should be 100")
		assert.Equal(t, 30*time.Second, config.BackoffBase, "Default BackoffBase should be 30s")
		assert.Equal(t, 15*time.Minute, config.BackoffCap, "Default BackoffCap should be 15m")
		assert.False(t, config.AllowEmptyCycle, "Default AllowEmptyCycle should be false")
		assert.Equal(t, 0.75, config.DedupSimilarityThreshold, "Default DedupSimilarityThreshold should be 0.75")
		assert.Equal(t, 0.1, config.SentimentThreshold, "Default SentimentThreshold should be 0.1")
		assert.Equal(t, 10, config.MinCorpusSize, "Default MinCorpusSize should be 10")
		assert.Equal(t, 5, config.MinClusterSize, "Default MinClusterSize should be 5")
		assert.Equal(t, 0.35, config.ClusterEps, "Default ClusterEps should be 0.35")
		assert.Equal(t, 8, config.ReducedDims, "Default ReducedDims should be 8")
		assert.Equal(t, 0.8, config.TopicContinuityThreshold, "Default TopicContinuityThreshold should be 0.8")
		assert.Equal(t, 24*time.Hour, config.HistoryWindow, "Default HistoryWindow should be 24h")
		assert.Equal(t, time.Hour, config.BucketWidth, "Default BucketWidth should be 1h")
		assert.Equal(t, 5, config.TopItemsPerWindow, "Default TopItemsPerWindow should be 5")
	})

	t.Run("All known sources are enabled by default", func(t *testing.T) {
		config := DefaultPipelineConfig()

		for _, kind := range ValidSourceKinds {
			assert.True(t, config.SourceEnabled(kind), "Expected source %s to be enabled by default", kind)
		}
	})

	t.Run("Can be modified after creation", func(t *testing.T) {
		config := DefaultPipelineConfig()

		config.FetchInterval = 5 * time.Minute
		config.MinCorpusSize = 3
		config.ClusterEps = 0.5

		assert.Equal(t, 5*time.Minute, config.FetchInterval)
		assert.Equal(t, 3, config.MinCorpusSize)
		assert.Equal(t, 0.5, config.ClusterEps)
	})
}

func TestSourceEnabled(t *testing.T) {
	t.Run("Unknown source is disabled", func(t *testing.T) {
		config := DefaultPipelineConfig()
		assert.False(t, config.SourceEnabled(SourceKind("telegraph")), "Unknown sources should be disabled")
	})

	t.Run("Explicitly disabled source", func(t *testing.T) {
		config := DefaultPipelineConfig()
		config.Sources[SourceReddit] = SourceConfig{Enabled: false}
		assert.False(t, config.SourceEnabled(SourceReddit))
	})

	t.Run("Nil sources map", func(t *testing.T) {
		config := PipelineConfig{}
		assert.False(t, config.SourceEnabled(SourceHackerNews))
	})
}
