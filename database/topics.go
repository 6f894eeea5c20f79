package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
	loadSql "github.com/siherrmann/trendsense/sql"
)

// TopicsDBHandlerFunctions defines the interface for Topics database operations.
type TopicsDBHandlerFunctions interface {
	InsertTopic(topic *model.Topic) error
	SelectRecentTopics(since time.Time) ([]*model.Topic, error)
	DeleteTopicsBefore(cutoff time.Time) (int64, error)
}

// TopicsDBHandler handles topic-related database operations
type TopicsDBHandler struct {
	db *helper.Database
}

// NewTopicsDBHandler creates a new topics database handler.
// It initializes the database connection and loads topic-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewTopicsDBHandler(db *helper.Database, embeddingDim int, force bool) (*TopicsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	topicsDbHandler := &TopicsDBHandler{
		db: db,
	}

	err := loadSql.LoadTopicsSql(topicsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load topics sql", err)
	}

	err = topicsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized TopicsDBHandler")

	return topicsDbHandler, nil
}

// CreateTable creates the 'topics' table in the database.
// If the table already exists, it does not create it again.
func (h *TopicsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_topics($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing topics table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table topics")

	return nil
}

// InsertTopic inserts a new topic snapshot
func (h *TopicsDBHandler) InsertTopic(topic *model.Topic) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_topic($1, $2, $3, $4, $5)`,
		topic.TopicID,
		pq.Array(topic.RepresentativeTerms),
		pq.Array(topic.MemberRIDs),
		pgvector.NewVector(topic.Centroid),
		topic.IsOutlier,
	)

	return scanTopicInto(row, topic)
}

// SelectRecentTopics retrieves the latest snapshot of every topic created
// since the given time
func (h *TopicsDBHandler) SelectRecentTopics(since time.Time) ([]*model.Topic, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_topics($1)`,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var topics []*model.Topic
	for rows.Next() {
		topic := &model.Topic{}
		err := scanTopicInto(rows, topic)
		if err != nil {
			return nil, err
		}

		topics = append(topics, topic)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return topics, nil
}

// DeleteTopicsBefore removes topic snapshots created before the cutoff and
// returns the number of deleted rows
func (h *TopicsDBHandler) DeleteTopicsBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := h.db.Instance.QueryRow(
		`SELECT delete_topics_before($1)`,
		cutoff,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

func scanTopicInto(row rowScanner, topic *model.Topic) error {
	var memberRIDs []uuid.UUID
	var centroid pgvector.Vector
	err := row.Scan(
		&topic.ID,
		&topic.TopicID,
		pq.Array(&topic.RepresentativeTerms),
		pq.Array(&memberRIDs),
		&centroid,
		&topic.IsOutlier,
		&topic.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	topic.MemberRIDs = memberRIDs
	topic.Centroid = centroid.Slice()

	return nil
}
