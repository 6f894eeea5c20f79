package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siherrmann/trendsense/model"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *model.PipelineConfig {
	config := model.DefaultPipelineConfig()
	config.FetchInterval = 10 * time.Millisecond
	config.BackoffBase = 5 * time.Millisecond
	config.BackoffCap = 20 * time.Millisecond
	return &config
}

func passingStages() Stages {
	return Stages{
		Collect: func(ctx context.Context, since time.Time) (*CollectResult, error) {
			items := []*model.CanonicalItem{{RID: uuid.New(), Title: "item"}}
			statuses := []model.SourceStatus{{Source: model.SourceHackerNews, OK: true, ItemCount: 1}}
			return &CollectResult{Items: items, NewCount: 1, Sources: statuses}, nil
		},
		Analyze: func(ctx context.Context, items []*model.CanonicalItem) ([]*model.Topic, []*model.TrendWindow, error) {
			return []*model.Topic{{TopicID: uuid.New()}}, []*model.TrendWindow{{TopicID: model.UncategorizedTopicID}}, nil
		},
		Persist: func(ctx context.Context, result *CycleResult) error {
			return nil
		},
	}
}

func TestValidateStateTransition(t *testing.T) {
	valid := [][2]CycleState{
		{StateIdle, StateCollecting},
		{StateCollecting, StateAnalyzing},
		{StateAnalyzing, StatePersisting},
		{StatePersisting, StateIdle},
		{StateCollecting, StateBackoff},
		{StateAnalyzing, StateBackoff},
		{StatePersisting, StateBackoff},
		{StateBackoff, StateCollecting},
		{StateBackoff, StateIdle},
		{StateCollecting, StateIdle},
		{StateAnalyzing, StateIdle},
	}
	for _, pair := range valid {
		assert.NoError(t, ValidateStateTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	invalid := [][2]CycleState{
		{StateIdle, StateAnalyzing},
		{StateIdle, StatePersisting},
		{StateIdle, StateBackoff},
		{StateCollecting, StatePersisting},
		{StateBackoff, StateAnalyzing},
		{StatePersisting, StateCollecting},
	}
	for _, pair := range invalid {
		assert.Error(t, ValidateStateTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	assert.Error(t, ValidateStateTransition(CycleState("bogus"), StateIdle))
}

func TestIsActiveState(t *testing.T) {
	assert.True(t, IsActiveState(StateCollecting))
	assert.True(t, IsActiveState(StateAnalyzing))
	assert.True(t, IsActiveState(StatePersisting))
	assert.False(t, IsActiveState(StateIdle))
	assert.False(t, IsActiveState(StateBackoff))
}

func TestTriggerNow(t *testing.T) {
	t.Run("runs a full cycle", func(t *testing.T) {
		var recorded *model.CycleStatus
		stages := passingStages()
		stages.Record = func(ctx context.Context, status *model.CycleStatus) {
			recorded = status
		}
		s := NewScheduler(testConfig(), stages, testLogger())

		status, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		require.NotNil(t, status)

		assert.True(t, status.Succeeded())
		assert.Equal(t, 1, status.ItemCount)
		assert.Equal(t, 1, status.TopicCount)
		assert.Equal(t, 1, status.WindowCount)
		assert.Len(t, status.Sources, 1)
		assert.Equal(t, StateIdle, s.State())
		assert.Equal(t, status, recorded)
		assert.Equal(t, status, s.LastStatus())
	})

	t.Run("reports only newly resolved items", func(t *testing.T) {
		stages := passingStages()
		stages.Collect = func(ctx context.Context, since time.Time) (*CollectResult, error) {
			// Corpus of five: three seeded from history, two fresh.
			items := make([]*model.CanonicalItem, 5)
			for i := range items {
				items[i] = &model.CanonicalItem{RID: uuid.New(), Title: "item"}
			}
			return &CollectResult{Items: items, NewCount: 2}, nil
		}
		s := NewScheduler(testConfig(), stages, testLogger())

		status, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Succeeded())
		assert.Equal(t, 2, status.ItemCount, "history corpus must not inflate the cycle's item count")
	})

	t.Run("rejects a concurrent trigger", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		stages := passingStages()
		stages.Collect = func(ctx context.Context, since time.Time) (*CollectResult, error) {
			close(started)
			<-release
			items := []*model.CanonicalItem{{RID: uuid.New(), Title: "item"}}
			return &CollectResult{Items: items, NewCount: 1}, nil
		}
		s := NewScheduler(testConfig(), stages, testLogger())

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TriggerNow(context.Background())
			assert.NoError(t, err)
		}()

		<-started
		assert.True(t, IsActiveState(s.State()))
		_, err := s.TriggerNow(context.Background())
		assert.ErrorIs(t, err, ErrCycleInProgress)

		close(release)
		wg.Wait()
	})
}

func TestCycleFailure(t *testing.T) {
	t.Run("failed persistence moves to backoff", func(t *testing.T) {
		stages := passingStages()
		stages.Persist = func(ctx context.Context, result *CycleResult) error {
			return errors.New("connection refused")
		}
		s := NewScheduler(testConfig(), stages, testLogger())

		status, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.False(t, status.Succeeded())
		assert.Contains(t, status.Error, "connection refused")
		assert.Equal(t, string(StateBackoff), status.State)
		assert.Equal(t, StateBackoff, s.State())
	})

	t.Run("backoff delay grows to the cap and resets on success", func(t *testing.T) {
		fail := true
		stages := passingStages()
		stages.Analyze = func(ctx context.Context, items []*model.CanonicalItem) ([]*model.Topic, []*model.TrendWindow, error) {
			if fail {
				return nil, nil, errors.New("boom")
			}
			return nil, nil, nil
		}
		config := testConfig()
		s := NewScheduler(config, stages, testLogger())

		for i := 0; i < 4; i++ {
			_, err := s.TriggerNow(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, config.BackoffCap, s.nextDelay())

		fail = false
		status, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Succeeded())
		assert.Equal(t, config.FetchInterval, s.nextDelay())
	})

	t.Run("empty collection fails unless allowed", func(t *testing.T) {
		stages := passingStages()
		stages.Collect = func(ctx context.Context, since time.Time) (*CollectResult, error) {
			statuses := []model.SourceStatus{{Source: model.SourceRSS, OK: false, Error: "offline"}}
			return &CollectResult{Sources: statuses}, nil
		}

		s := NewScheduler(testConfig(), stages, testLogger())
		status, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.False(t, status.Succeeded())
		assert.Contains(t, status.Error, "no items collected")

		config := testConfig()
		config.AllowEmptyCycle = true
		s = NewScheduler(config, stages, testLogger())
		status, err = s.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Succeeded())
	})

	t.Run("cancellation returns to idle without backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		recorded := 0
		stages := passingStages()
		stages.Collect = func(ctx context.Context, since time.Time) (*CollectResult, error) {
			cancel()
			return nil, ctx.Err()
		}
		stages.Record = func(ctx context.Context, status *model.CycleStatus) {
			recorded++
		}
		s := NewScheduler(testConfig(), stages, testLogger())

		status, err := s.TriggerNow(ctx)
		require.NoError(t, err)
		assert.False(t, status.Succeeded())
		assert.Equal(t, StateIdle, s.State())
		assert.Zero(t, recorded, "cancelled cycles are discarded, not recorded")
		assert.Nil(t, s.LastStatus())
	})
}

func TestRun(t *testing.T) {
	t.Run("cycles repeat on the interval until cancelled", func(t *testing.T) {
		var cycles atomic.Int32
		stages := passingStages()
		stages.Record = func(ctx context.Context, status *model.CycleStatus) {
			cycles.Add(1)
		}
		s := NewScheduler(testConfig(), stages, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- s.Run(ctx)
		}()

		require.Eventually(t, func() bool {
			return cycles.Load() >= 2
		}, 2*time.Second, time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("first collection uses the history window", func(t *testing.T) {
		var since time.Time
		stages := passingStages()
		collect := stages.Collect
		stages.Collect = func(ctx context.Context, from time.Time) (*CollectResult, error) {
			since = from
			return collect(ctx, from)
		}
		config := testConfig()
		s := NewScheduler(config, stages, testLogger())

		_, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		expected := time.Now().Add(-config.HistoryWindow)
		assert.WithinDuration(t, expected, since, time.Minute)
	})
}
