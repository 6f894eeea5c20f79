package collect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/siherrmann/trendsense/model"
)

// Orchestrator runs all registered source adapters under a shared
// rate-limit/failure policy. Adapter failures never propagate as errors;
// they become per-source status values so the caller can tell "zero
// results" from "source failed".
type Orchestrator struct {
	config   model.PipelineConfig
	adapters []SourceAdapter
	log      *slog.Logger

	mu      sync.Mutex
	backoff map[model.SourceKind]*backoffState
}

// NewOrchestrator creates an orchestrator for the given adapters
func NewOrchestrator(config model.PipelineConfig, adapters []SourceAdapter, logger *slog.Logger) *Orchestrator {
	backoff := make(map[model.SourceKind]*backoffState, len(adapters))
	for _, adapter := range adapters {
		backoff[adapter.Kind()] = &backoffState{}
	}
	return &Orchestrator{
		config:   config,
		adapters: adapters,
		log:      logger,
		backoff:  backoff,
	}
}

// Collect fetches from every enabled, non-suspended source concurrently,
// one task per source, and returns the union of successful results plus a
// status per source. Invalid raw items are dropped at this boundary.
func (o *Orchestrator) Collect(ctx context.Context, since time.Time) ([]model.RawItem, []model.SourceStatus) {
	now := time.Now()

	statuses := make([]model.SourceStatus, len(o.adapters))
	results := make([][]model.RawItem, len(o.adapters))

	g, gctx := errgroup.WithContext(ctx)

	for i, adapter := range o.adapters {
		kind := adapter.Kind()

		if !o.config.SourceEnabled(kind) {
			statuses[i] = model.SourceStatus{Source: kind, Disabled: true}
			continue
		}
		if status, skip := o.checkSuspended(kind, now); skip {
			statuses[i] = status
			continue
		}

		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, o.config.FetchTimeout)
			defer cancel()

			items, err := adapter.Fetch(fetchCtx, since, o.config.MaxItemsPerSource)
			if err != nil {
				statuses[i] = o.recordError(kind, err)
				return nil
			}

			valid := items[:0]
			for _, item := range items {
				if verr := item.Validate(); verr != nil {
					o.log.Warn("Dropping invalid raw item", slog.String("source", string(kind)), slog.String("error", verr.Error()))
					continue
				}
				valid = append(valid, item)
			}

			o.recordSuccess(kind)
			results[i] = valid
			statuses[i] = model.SourceStatus{Source: kind, OK: true, ItemCount: len(valid)}
			return nil
		})
	}

	// Adapter errors are captured as statuses, never returned
	_ = g.Wait()

	var all []model.RawItem
	for _, items := range results {
		all = append(all, items...)
	}

	return all, statuses
}

// checkSuspended returns a skip status when the source is in backoff
func (o *Orchestrator) checkSuspended(kind model.SourceKind, now time.Time) (model.SourceStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.backoff[kind]
	if state == nil || !state.suspended(now) {
		return model.SourceStatus{}, false
	}

	status := model.SourceStatus{Source: kind, InBackoff: true}
	if state.disabled {
		status.InBackoff = false
		status.Disabled = true
		status.Error = "disabled after permanent failure"
	} else {
		next := state.nextAttempt
		status.RetryAfter = &next
	}
	return status, true
}

func (o *Orchestrator) recordSuccess(kind model.SourceKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backoff[kind].recordSuccess()
}

// recordError updates the source's backoff state according to the error
// taxonomy and returns the matching status value
func (o *Orchestrator) recordError(kind model.SourceKind, err error) model.SourceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	state := o.backoff[kind]
	status := model.SourceStatus{Source: kind, Error: err.Error()}

	var rateLimited *RateLimitedError
	var unavailable *SourceUnavailableError

	switch {
	case errors.As(err, &rateLimited):
		state.recordRateLimit(now, rateLimited.RetryAfter, o.config.BackoffCap)
		next := state.nextAttempt
		status.RetryAfter = &next
		o.log.Warn("Source rate limited", slog.String("source", string(kind)), slog.Time("retry_after", next))
	case errors.As(err, &unavailable) && unavailable.Permanent:
		state.recordPermanentFailure()
		status.Disabled = true
		o.log.Error("Source disabled after permanent failure", slog.String("source", string(kind)), slog.String("reason", unavailable.Reason))
	default:
		state.recordFailure(now, o.config.BackoffBase, o.config.BackoffCap)
		next := state.nextAttempt
		status.RetryAfter = &next
		o.log.Warn("Source fetch failed", slog.String("source", string(kind)), slog.String("error", err.Error()))
	}

	return status
}
