package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/trendsense/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 4

func testTopic() *model.Topic {
	return &model.Topic{
		TopicID:             uuid.New(),
		RepresentativeTerms: []string{"ai", "model", "benchmark"},
		MemberRIDs:          []uuid.UUID{uuid.New(), uuid.New()},
		Centroid:            []float32{0.1, 0.2, 0.3, 0.4},
	}
}

func TestTopicsNewTopicsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewTopicsDBHandler", func(t *testing.T) {
		topicsDbHandler, err := NewTopicsDBHandler(database, testEmbeddingDim, true)
		assert.NoError(t, err, "Expected NewTopicsDBHandler to not return an error")
		require.NotNil(t, topicsDbHandler, "Expected NewTopicsDBHandler to return a non-nil instance")
		require.NotNil(t, topicsDbHandler.db, "Expected NewTopicsDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewTopicsDBHandler with nil database", func(t *testing.T) {
		_, err := NewTopicsDBHandler(nil, testEmbeddingDim, false)
		assert.Error(t, err, "Expected error when creating TopicsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestTopicsInsert(t *testing.T) {
	database := initDB(t)

	topicsDbHandler, err := NewTopicsDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	t.Run("Insert topic", func(t *testing.T) {
		topic := testTopic()

		err := topicsDbHandler.InsertTopic(topic)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotZero(t, topic.ID, "Expected inserted topic to have an ID")
		assert.WithinDuration(t, topic.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")
		assert.Equal(t, []string{"ai", "model", "benchmark"}, topic.RepresentativeTerms)
		assert.Len(t, topic.Centroid, testEmbeddingDim, "Expected centroid to round trip")
	})

	t.Run("Insert outlier topic", func(t *testing.T) {
		topic := testTopic()
		topic.IsOutlier = true

		err := topicsDbHandler.InsertTopic(topic)
		assert.NoError(t, err)
		assert.True(t, topic.IsOutlier, "Expected outlier flag to round trip")
	})
}

func TestTopicsSelectRecent(t *testing.T) {
	database := initDB(t)

	topicsDbHandler, err := NewTopicsDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	topic := testTopic()
	require.NoError(t, topicsDbHandler.InsertTopic(topic))

	// A second snapshot of the same topic from a later run
	later := &model.Topic{
		TopicID:             topic.TopicID,
		RepresentativeTerms: []string{"ai", "model", "update"},
		MemberRIDs:          []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		Centroid:            []float32{0.2, 0.2, 0.3, 0.3},
	}
	require.NoError(t, topicsDbHandler.InsertTopic(later))

	topics, err := topicsDbHandler.SelectRecentTopics(time.Now().Add(-time.Minute))
	require.NoError(t, err)

	var found *model.Topic
	for _, candidate := range topics {
		if candidate.TopicID == topic.TopicID {
			found = candidate
		}
	}
	require.NotNil(t, found, "Expected the topic to be returned")
	assert.Equal(t, later.ID, found.ID, "Expected the latest snapshot to win")
	assert.Len(t, found.MemberRIDs, 3)
}

func TestTopicsDeleteBefore(t *testing.T) {
	database := initDB(t)

	topicsDbHandler, err := NewTopicsDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	topic := testTopic()
	require.NoError(t, topicsDbHandler.InsertTopic(topic))

	deleted, err := topicsDbHandler.DeleteTopicsBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted, "Expected no fresh snapshots to be deleted")

	deleted, err = topicsDbHandler.DeleteTopicsBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1), "Expected the snapshot to be deleted")
}
