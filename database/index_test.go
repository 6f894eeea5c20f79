package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsChangeIndexType(t *testing.T) {
	database := initDB(t)

	topicsDbHandler, err := NewTopicsDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	t.Run("Change index to HNSW", func(t *testing.T) {
		err := topicsDbHandler.ChangeIndexType(context.Background(), "hnsw", map[string]interface{}{"m": 8, "ef_construction": 32})
		assert.NoError(t, err)

		var exists bool
		err = database.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_topics_centroid');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "Expected centroid index to exist")
	})

	t.Run("Change index to IVFFlat", func(t *testing.T) {
		err := topicsDbHandler.ChangeIndexType(context.Background(), "ivfflat", map[string]interface{}{"lists": 10})
		assert.NoError(t, err)
	})

	t.Run("Unsupported index type fails", func(t *testing.T) {
		err := topicsDbHandler.ChangeIndexType(context.Background(), "btree", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported index type")
	})
}
