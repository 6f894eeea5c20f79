package trendsense

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/trendsense/core/cluster"
	"github.com/siherrmann/trendsense/core/collect"
	"github.com/siherrmann/trendsense/core/dedup"
	"github.com/siherrmann/trendsense/core/scheduler"
	"github.com/siherrmann/trendsense/core/sentiment"
	"github.com/siherrmann/trendsense/core/trend"
	"github.com/siherrmann/trendsense/database"
	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
	loadSql "github.com/siherrmann/trendsense/sql"
	"github.com/siherrmann/trendsense/sources"
)

// snippetLength is how much of an item body is combined with the title for
// sentiment scoring
const snippetLength = 300

// TrendSense provides a unified interface to the trend pipeline and all
// database handlers
type TrendSense struct {
	DB     *helper.Database
	Items  *database.ItemsDBHandler
	Topics *database.TopicsDBHandler
	Trends *database.TrendsDBHandler
	Cycles *database.CyclesDBHandler

	Config    *model.PipelineConfig
	Sentiment *sentiment.Ensemble
	Scheduler *scheduler.Scheduler

	adapters     []collect.SourceAdapter
	orchestrator *collect.Orchestrator
	engine       *cluster.Engine
	aggregator   *trend.Aggregator
	// Logging
	log *slog.Logger
}

// NewTrendSense creates a new TrendSense instance with all handlers initialized
func NewTrendSense(dbConfig *helper.DatabaseConfiguration, config *model.PipelineConfig) (*TrendSense, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	if config == nil {
		defaults := model.DefaultPipelineConfig()
		config = &defaults
	}

	// Initialize database
	db := helper.NewDatabase("trendsense", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers, force=false to not reload if functions already exist
	items, err := database.NewItemsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create items handler", err)
	}

	topics, err := database.NewTopicsDBHandler(db, cluster.EmbeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create topics handler", err)
	}

	trends, err := database.NewTrendsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create trends handler", err)
	}

	cycles, err := database.NewCyclesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create cycles handler", err)
	}

	ts := &TrendSense{
		DB:         db,
		Items:      items,
		Topics:     topics,
		Trends:     trends,
		Cycles:     cycles,
		Config:     config,
		Sentiment:  sentiment.NewEnsemble(sentiment.DefaultScorers(), config.SentimentThreshold, logger),
		aggregator: trend.NewAggregator(config, logger),
		log:        logger,
	}
	ts.orchestrator = collect.NewOrchestrator(*config, nil, logger)
	ts.Scheduler = scheduler.NewScheduler(config, scheduler.Stages{
		Collect: ts.collectStage,
		Analyze: ts.analyzeStage,
		Persist: ts.persistStage,
		Record:  ts.recordStage,
	}, logger)

	return ts, nil
}

// Close closes the database connection
func (t *TrendSense) Close() error {
	if t.DB != nil && t.DB.Instance != nil {
		return t.DB.Instance.Close()
	}
	return nil
}

// RegisterSource adds a source adapter to the collection orchestrator
func (t *TrendSense) RegisterSource(adapter collect.SourceAdapter) {
	t.adapters = append(t.adapters, adapter)
	t.orchestrator = collect.NewOrchestrator(*t.Config, t.adapters, t.log)
}

// UseDefaultSources registers the built-in adapters for every source kind
// enabled in the configuration
func (t *TrendSense) UseDefaultSources() {
	if t.Config.SourceEnabled(model.SourceHackerNews) {
		t.RegisterSource(sources.NewHackerNews())
	}
	if t.Config.SourceEnabled(model.SourceReddit) {
		t.RegisterSource(sources.NewReddit(t.Config.Sources[model.SourceReddit].Endpoints))
	}
	if t.Config.SourceEnabled(model.SourceRSS) {
		feeds := t.Config.Sources[model.SourceRSS].Endpoints
		if len(feeds) == 0 {
			t.log.Warn("RSS source enabled but no feed URLs configured, skipping")
		} else {
			t.RegisterSource(sources.NewRSS(feeds))
		}
	}
}

// SetEmbedder sets the embedding function used for topic clustering
func (t *TrendSense) SetEmbedder(embed cluster.EmbedFunc) {
	t.engine = cluster.NewEngine(t.Config, embed, t.log)
}

// UseDefaultPipeline sets up the default clustering pipeline.
// This uses DefaultEmbedder with the all-MiniLM-L6-v2 model (384 dimensions).
func (t *TrendSense) UseDefaultPipeline() error {
	embedder, err := cluster.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	t.SetEmbedder(embedder)
	return nil
}

// Start runs the pipeline on the configured interval until the context is
// cancelled
func (t *TrendSense) Start(ctx context.Context) error {
	return t.Scheduler.Run(ctx)
}

// RunCycle runs one pipeline cycle immediately. Returns
// scheduler.ErrCycleInProgress when a cycle is already running.
func (t *TrendSense) RunCycle(ctx context.Context) (*model.CycleStatus, error) {
	return t.Scheduler.TriggerNow(ctx)
}

// collectStage fetches from all sources, deduplicates against the recent
// history and scores the sentiment of new items
func (t *TrendSense) collectStage(ctx context.Context, since time.Time) (*scheduler.CollectResult, error) {
	raw, statuses := t.orchestrator.Collect(ctx, since)

	prior, err := t.Items.SelectRecentItems(time.Now().Add(-t.Config.HistoryWindow))
	if err != nil {
		return &scheduler.CollectResult{Sources: statuses}, helper.NewError("load recent items", err)
	}

	resolver := dedup.NewResolver(t.Config.DedupSimilarityThreshold, prior)
	for _, rawItem := range raw {
		resolver.Resolve(rawItem)
	}

	items := resolver.Items()
	newCount := len(resolver.NewItems())
	for _, item := range items {
		if item.Sentiment == nil {
			item.Sentiment = t.Sentiment.Score(item.Snippet(snippetLength))
		}
	}

	// Aliases ride along for persistence; everything downstream skips them
	// via DuplicateOf.
	items = append(items, resolver.Aliases()...)

	t.log.Info("Collection finished",
		slog.Int("raw", len(raw)),
		slog.Int("new", newCount),
		slog.Int("corpus", len(items)))
	return &scheduler.CollectResult{
		Items:    items,
		NewCount: newCount,
		Sources:  statuses,
	}, nil
}

// analyzeStage clusters the corpus into topics and aggregates the trend
// windows
func (t *TrendSense) analyzeStage(ctx context.Context, items []*model.CanonicalItem) ([]*model.Topic, []*model.TrendWindow, error) {
	if t.engine == nil {
		return nil, nil, helper.NewError("cluster items", fmt.Errorf("embedder not set, use UseDefaultPipeline() or SetEmbedder() first"))
	}

	prior, err := t.Topics.SelectRecentTopics(time.Now().Add(-t.Config.HistoryWindow))
	if err != nil {
		return nil, nil, helper.NewError("load recent topics", err)
	}

	topics, err := t.engine.Cluster(items, prior)
	if err != nil {
		return nil, nil, helper.NewError("cluster items", err)
	}

	windows := t.aggregator.Windows(items, topics)
	return topics, windows, nil
}

// persistStage commits one cycle's results. Representatives are written
// before aliases so the duplicate back-references resolve.
func (t *TrendSense) persistStage(ctx context.Context, result *scheduler.CycleResult) error {
	for _, item := range result.Items {
		if err := t.Items.UpsertItem(item); err != nil {
			return helper.NewError("upsert item", err)
		}
	}

	for _, topic := range result.Topics {
		if err := t.Topics.InsertTopic(topic); err != nil {
			return helper.NewError("insert topic", err)
		}
	}

	if len(result.Windows) > 0 {
		// Clear the recomputed bucket range first. Topic continuity is best
		// effort, so a re-aggregated bucket may land under a fresh topic id;
		// without the sweep the old id's row would keep inflating the bucket.
		from, to := result.Windows[0].Bucket, result.Windows[0].Bucket
		for _, window := range result.Windows[1:] {
			if window.Bucket.Before(from) {
				from = window.Bucket
			}
			if window.Bucket.After(to) {
				to = window.Bucket
			}
		}
		if _, err := t.Trends.DeleteWindowsInRange(from, to); err != nil {
			return helper.NewError("clear recomputed trend windows", err)
		}
	}

	for _, window := range result.Windows {
		if err := t.Trends.UpsertWindow(window); err != nil {
			return helper.NewError("upsert trend window", err)
		}
	}

	return nil
}

// recordStage stores the cycle outcome, best effort
func (t *TrendSense) recordStage(ctx context.Context, status *model.CycleStatus) {
	if err := t.Cycles.InsertCycleStatus(status); err != nil {
		t.log.Error("Failed to record cycle status", slog.String("error", err.Error()))
	}
}

// TrendWindows retrieves all trend windows with buckets since the given time
func (t *TrendSense) TrendWindows(since time.Time) ([]*model.TrendWindow, error) {
	return t.Trends.SelectWindows(since)
}

// TopicTrend retrieves one topic's windows since the given time
func (t *TrendSense) TopicTrend(topicID uuid.UUID, since time.Time) ([]*model.TrendWindow, error) {
	return t.Trends.SelectWindowsByTopic(topicID, since)
}

// TopItems retrieves a topic's most popular items since the given time,
// merged across windows and ranked by normalized popularity
func (t *TrendSense) TopItems(topicID uuid.UUID, since time.Time, limit int) ([]model.TopItemRef, error) {
	windows, err := t.Trends.SelectWindowsByTopic(topicID, since)
	if err != nil {
		return nil, err
	}

	best := map[uuid.UUID]model.TopItemRef{}
	for _, window := range windows {
		for _, ref := range window.TopItems {
			if seen, ok := best[ref.ItemRID]; !ok || ref.Popularity > seen.Popularity {
				best[ref.ItemRID] = ref
			}
		}
	}

	refs := make([]model.TopItemRef, 0, len(best))
	for _, ref := range best {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Popularity != refs[j].Popularity {
			return refs[i].Popularity > refs[j].Popularity
		}
		return refs[i].Title < refs[j].Title
	})
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// RecentTopics retrieves the latest snapshot of every topic seen since the
// given time
func (t *TrendSense) RecentTopics(since time.Time) ([]*model.Topic, error) {
	return t.Topics.SelectRecentTopics(since)
}

// SentimentDistribution counts the scored items per sentiment label since
// the given time
func (t *TrendSense) SentimentDistribution(since time.Time) (map[model.SentimentLabel]int, error) {
	return t.Items.SelectSentimentDistribution(since)
}

// LastCycleStatus retrieves the most recent persisted cycle outcome, nil
// when no cycle has run yet
func (t *TrendSense) LastCycleStatus() (*model.CycleStatus, error) {
	return t.Cycles.SelectLastCycle()
}

// Cleanup removes items, topic snapshots and windows older than the given
// retention period
func (t *TrendSense) Cleanup(retention time.Duration) error {
	cutoff := time.Now().Add(-retention)

	if _, err := t.Trends.DeleteWindowsBefore(cutoff); err != nil {
		return helper.NewError("delete trend windows", err)
	}
	if _, err := t.Topics.DeleteTopicsBefore(cutoff); err != nil {
		return helper.NewError("delete topics", err)
	}
	if _, err := t.Items.DeleteItemsBefore(cutoff); err != nil {
		return helper.NewError("delete items", err)
	}

	return nil
}
