package model

import "time"

// SourceConfig holds the per-source settings.
// Credentials are opaque to the pipeline and only handed to the adapter.
type SourceConfig struct {
	Enabled     bool              `json:"enabled"`
	Endpoints   []string          `json:"endpoints,omitempty"` // feed URLs, subreddits etc.
	Credentials map[string]string `json:"-"`
}

// PipelineConfig holds every tunable of the trend pipeline.
// All thresholds referenced in the component docs live here so they are
// documented constants rather than magic numbers.
type PipelineConfig struct {
	// Collection
	FetchInterval     time.Duration `json:"fetch_interval"`
	FetchTimeout      time.Duration `json:"fetch_timeout"`
	MaxItemsPerSource int           `json:"max_items_per_source"`
	BackoffBase       time.Duration `json:"backoff_base"`
	BackoffCap        time.Duration `json:"backoff_cap"`
	AllowEmptyCycle   bool          `json:"allow_empty_cycle"`

	// Dedup. Exact fingerprint matches always merge; near matches merge when
	// the token Jaccard similarity of the normalized titles reaches this
	// threshold.
	DedupSimilarityThreshold float64 `json:"dedup_similarity_threshold"`

	// Sentiment. Scores above +threshold are positive, below -threshold
	// negative, otherwise neutral. Applied per scorer for agreement and to
	// the ensemble mean for the final label.
	SentimentThreshold float64 `json:"sentiment_threshold"`

	// Clustering
	MinCorpusSize            int           `json:"min_corpus_size"`  // below this the cycle emits no topics
	MinClusterSize           int           `json:"min_cluster_size"` // smaller clusters are flagged outliers
	ClusterEps               float64       `json:"cluster_eps"`      // DBSCAN radius in the reduced space
	ReducedDims              int           `json:"reduced_dims"`
	RepresentativeTerms      int           `json:"representative_terms"`
	TopicContinuityThreshold float64       `json:"topic_continuity_threshold"` // centroid cosine for id reuse
	HistoryWindow            time.Duration `json:"history_window"`             // recent-item context fed to clustering
	Seed                     int64         `json:"seed"`

	// Aggregation
	BucketWidth       time.Duration `json:"bucket_width"`
	TopItemsPerWindow int           `json:"top_items_per_window"`

	// Sources
	Sources map[SourceKind]SourceConfig `json:"sources"`
}

// DefaultPipelineConfig returns the documented default configuration
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FetchInterval:     15 * time.Minute,
		FetchTimeout:      10 * time.Second,
		MaxItemsPerSource: 100,
		BackoffBase:       30 * time.Second,
		BackoffCap:        15 * time.Minute,
		AllowEmptyCycle:   false,

		DedupSimilarityThreshold: 0.75,

		SentimentThreshold: 0.1,

		MinCorpusSize:            10,
		MinClusterSize:           5,
		ClusterEps:               0.35,
		ReducedDims:              8,
		RepresentativeTerms:      8,
		TopicContinuityThreshold: 0.8,
		HistoryWindow:            24 * time.Hour,
		Seed:                     1,

		BucketWidth:       time.Hour,
		TopItemsPerWindow: 5,

		Sources: map[SourceKind]SourceConfig{
			SourceHackerNews: {Enabled: true},
			SourceReddit:     {Enabled: true, Endpoints: []string{"singapore", "technology"}},
			SourceRSS:        {Enabled: true},
		},
	}
}

// SourceEnabled reports whether a source kind is enabled in the config
func (c *PipelineConfig) SourceEnabled(kind SourceKind) bool {
	sc, ok := c.Sources[kind]
	return ok && sc.Enabled
}
