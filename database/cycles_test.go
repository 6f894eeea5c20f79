package database

import (
	"testing"
	"time"

	"github.com/siherrmann/trendsense/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCyclesNewCyclesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewCyclesDBHandler", func(t *testing.T) {
		cyclesDbHandler, err := NewCyclesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewCyclesDBHandler to not return an error")
		require.NotNil(t, cyclesDbHandler, "Expected NewCyclesDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewCyclesDBHandler with nil database", func(t *testing.T) {
		_, err := NewCyclesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating CyclesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestCyclesInsertAndSelectLast(t *testing.T) {
	database := initDB(t)

	cyclesDbHandler, err := NewCyclesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Insert cycle status", func(t *testing.T) {
		status := &model.CycleStatus{
			State:       "idle",
			StartedAt:   time.Now().Add(-time.Minute),
			FinishedAt:  time.Now(),
			ItemCount:   42,
			TopicCount:  5,
			WindowCount: 12,
			Sources: model.SourceStatuses{
				{Source: model.SourceHackerNews, OK: true, ItemCount: 30},
				{Source: model.SourceRSS, OK: false, Error: "connection refused"},
			},
		}

		err := cyclesDbHandler.InsertCycleStatus(status)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotZero(t, status.ID, "Expected inserted status to have an ID")
	})

	t.Run("Select last cycle returns the newest row", func(t *testing.T) {
		older := &model.CycleStatus{
			State:      "backoff",
			StartedAt:  time.Now().Add(-2 * time.Hour),
			FinishedAt: time.Now().Add(-2 * time.Hour),
			Error:      "all sources failed",
		}
		require.NoError(t, cyclesDbHandler.InsertCycleStatus(older))

		newest := &model.CycleStatus{
			State:      "idle",
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			ItemCount:  7,
			Sources:    model.SourceStatuses{{Source: model.SourceReddit, OK: true, ItemCount: 7}},
		}
		require.NoError(t, cyclesDbHandler.InsertCycleStatus(newest))

		last, err := cyclesDbHandler.SelectLastCycle()
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, newest.ID, last.ID)
		assert.True(t, last.Succeeded())
		require.Len(t, last.Sources, 1)
		assert.Equal(t, model.SourceReddit, last.Sources[0].Source)
	})
}
