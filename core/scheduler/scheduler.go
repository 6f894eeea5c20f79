package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/siherrmann/trendsense/model"
)

// ErrCycleInProgress is returned by TriggerNow while a cycle is running
var ErrCycleInProgress = errors.New("cycle already in progress")

// CollectFunc fetches and deduplicates new items from all enabled sources
// since the given time
type CollectFunc func(ctx context.Context, since time.Time) (*CollectResult, error)

// CollectResult carries one collection's output. Items is the full analysis
// corpus (including seeded history and alias records); NewCount is how many
// representatives were first resolved by this collection.
type CollectResult struct {
	Items    []*model.CanonicalItem
	NewCount int
	Sources  []model.SourceStatus
}

// AnalyzeFunc scores, clusters and aggregates the collected items
type AnalyzeFunc func(ctx context.Context, items []*model.CanonicalItem) ([]*model.Topic, []*model.TrendWindow, error)

// PersistFunc commits a completed cycle's results
type PersistFunc func(ctx context.Context, result *CycleResult) error

// RecordFunc stores the cycle outcome for the dashboard, best effort
type RecordFunc func(ctx context.Context, status *model.CycleStatus)

// CycleResult is everything one cycle produced
type CycleResult struct {
	Items   []*model.CanonicalItem
	Topics  []*model.Topic
	Windows []*model.TrendWindow
	Sources []model.SourceStatus
}

// Stages are the pipeline steps a scheduler drives. Collect, Analyze and
// Persist are required; Record is optional.
type Stages struct {
	Collect CollectFunc
	Analyze AnalyzeFunc
	Persist PersistFunc
	Record  RecordFunc
}

// Scheduler runs the pipeline on a fixed interval with capped exponential
// backoff after failed cycles. At most one cycle runs at a time; manual
// triggers and the interval loop share the same gate.
type Scheduler struct {
	config *model.PipelineConfig
	stages Stages
	log    *slog.Logger

	gate sync.Mutex

	mu          sync.RWMutex
	state       CycleState
	failures    int
	lastSuccess time.Time
	lastStatus  *model.CycleStatus
}

func NewScheduler(config *model.PipelineConfig, stages Stages, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		config: config,
		stages: stages,
		log:    logger,
		state:  StateIdle,
	}
}

// Run executes cycles on the configured interval until the context is
// cancelled. The first cycle starts immediately. A failed cycle shortens
// the wait to the current backoff delay instead of the full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		var delay time.Duration
		if s.gate.TryLock() {
			s.runCycle(ctx)
			s.gate.Unlock()
			delay = s.nextDelay()
		} else {
			// A manual trigger holds the gate, check back after the
			// regular interval.
			delay = s.config.FetchInterval
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		timer.Reset(delay)
	}
}

// TriggerNow runs one cycle immediately. Returns ErrCycleInProgress when
// another cycle holds the gate.
func (s *Scheduler) TriggerNow(ctx context.Context) (*model.CycleStatus, error) {
	if !s.gate.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.gate.Unlock()
	return s.runCycle(ctx), nil
}

// State returns the current cycle state
func (s *Scheduler) State() CycleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastStatus returns the outcome of the most recent cycle, nil before the
// first cycle finished
func (s *Scheduler) LastStatus() *model.CycleStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}

// runCycle drives one full cycle through the state machine. The caller
// must hold the gate.
func (s *Scheduler) runCycle(ctx context.Context) *model.CycleStatus {
	started := time.Now()
	status := &model.CycleStatus{StartedAt: started}

	s.advance(StateCollecting)
	collected, err := s.stages.Collect(ctx, s.since())
	if collected != nil {
		status.Sources = collected.Sources
	}
	if err != nil {
		return s.fail(ctx, status, err)
	}
	// The corpus carries seeded history and alias records; the cycle reports
	// only what this collection newly resolved.
	items := collected.Items
	status.ItemCount = collected.NewCount
	if collected.NewCount == 0 && !s.config.AllowEmptyCycle {
		return s.fail(ctx, status, errors.New("no items collected from any source"))
	}

	s.advance(StateAnalyzing)
	topics, windows, err := s.stages.Analyze(ctx, items)
	if err != nil {
		return s.fail(ctx, status, err)
	}
	status.TopicCount = len(topics)
	status.WindowCount = len(windows)

	s.advance(StatePersisting)
	err = s.stages.Persist(ctx, &CycleResult{
		Items:   items,
		Topics:  topics,
		Windows: windows,
		Sources: collected.Sources,
	})
	if err != nil {
		return s.fail(ctx, status, err)
	}

	s.advance(StateIdle)
	status.State = string(StateIdle)
	status.FinishedAt = time.Now()

	s.mu.Lock()
	s.failures = 0
	s.lastSuccess = started
	s.lastStatus = status
	s.mu.Unlock()

	s.record(ctx, status)
	s.log.Info("cycle finished",
		slog.Int("items", status.ItemCount),
		slog.Int("topics", status.TopicCount),
		slog.Int("windows", status.WindowCount),
		slog.Duration("took", status.FinishedAt.Sub(status.StartedAt)))
	return status
}

// fail finalizes a broken cycle. Cancellation discards the partial work
// and returns to idle without counting as a failure; everything else moves
// to backoff with an increased delay.
func (s *Scheduler) fail(ctx context.Context, status *model.CycleStatus, err error) *model.CycleStatus {
	status.Error = err.Error()
	status.FinishedAt = time.Now()

	if ctx.Err() != nil {
		s.advance(StateIdle)
		status.State = string(StateIdle)
		s.log.Warn("cycle cancelled", slog.Any("error", err))
		return status
	}

	s.advance(StateBackoff)
	status.State = string(StateBackoff)

	s.mu.Lock()
	s.failures++
	s.lastStatus = status
	failures := s.failures
	s.mu.Unlock()

	s.record(ctx, status)
	s.log.Error("cycle failed",
		slog.Any("error", err),
		slog.Int("consecutive_failures", failures),
		slog.Duration("retry_in", s.nextDelay()))
	return status
}

func (s *Scheduler) record(ctx context.Context, status *model.CycleStatus) {
	if s.stages.Record != nil {
		s.stages.Record(ctx, status)
	}
}

// advance moves the state machine, logging and keeping the current state
// on an invalid transition
func (s *Scheduler) advance(to CycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ValidateStateTransition(s.state, to); err != nil {
		s.log.Error("state transition rejected", slog.Any("error", err))
		return
	}
	s.state = to
}

// since returns the lower bound for the next collection. Before the first
// successful cycle the configured history window is used.
func (s *Scheduler) since() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSuccess.IsZero() {
		return time.Now().Add(-s.config.HistoryWindow)
	}
	return s.lastSuccess
}

// nextDelay returns the wait until the next cycle: the fetch interval
// after success, the capped exponential backoff after failures
func (s *Scheduler) nextDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failures == 0 {
		return s.config.FetchInterval
	}
	delay := s.config.BackoffBase << (s.failures - 1)
	if delay > s.config.BackoffCap || delay <= 0 {
		delay = s.config.BackoffCap
	}
	return delay
}
