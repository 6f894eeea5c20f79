package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
	loadSql "github.com/siherrmann/trendsense/sql"
)

// TrendsDBHandlerFunctions defines the interface for TrendWindow database operations.
type TrendsDBHandlerFunctions interface {
	UpsertWindow(window *model.TrendWindow) error
	SelectWindows(since time.Time) ([]*model.TrendWindow, error)
	SelectWindowsByTopic(topicID uuid.UUID, since time.Time) ([]*model.TrendWindow, error)
	DeleteWindowsInRange(from time.Time, to time.Time) (int64, error)
	DeleteWindowsBefore(cutoff time.Time) (int64, error)
}

// TrendsDBHandler handles trend-window database operations
type TrendsDBHandler struct {
	db *helper.Database
}

// NewTrendsDBHandler creates a new trends database handler.
// It initializes the database connection and loads trend-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewTrendsDBHandler(db *helper.Database, force bool) (*TrendsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	trendsDbHandler := &TrendsDBHandler{
		db: db,
	}

	err := loadSql.LoadTrendsSql(trendsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load trends sql", err)
	}

	err = trendsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized TrendsDBHandler")

	return trendsDbHandler, nil
}

// CreateTable creates the 'trend_windows' table in the database.
// If the table already exists, it does not create it again.
func (h *TrendsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_trends();`)
	if err != nil {
		log.Panicf("error initializing trend_windows table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table trend_windows")

	return nil
}

// UpsertWindow inserts or replaces the window for a (topic, bucket) pair
func (h *TrendsDBHandler) UpsertWindow(window *model.TrendWindow) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_trend_window($1, $2, $3, $4, $5, $6, $7, $8)`,
		window.TopicID,
		window.Bucket,
		window.BucketWidth,
		window.ItemCount,
		window.MeanSentiment,
		window.SentimentStddev,
		window.Velocity,
		window.TopItems,
	)

	return scanWindowInto(row, window)
}

// SelectWindows retrieves all windows with buckets since the given time,
// ordered by bucket then topic
func (h *TrendsDBHandler) SelectWindows(since time.Time) ([]*model.TrendWindow, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_trend_windows($1)`,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var windows []*model.TrendWindow
	for rows.Next() {
		window := &model.TrendWindow{}
		err := scanWindowInto(rows, window)
		if err != nil {
			return nil, err
		}

		windows = append(windows, window)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return windows, nil
}

// SelectWindowsByTopic retrieves one topic's windows since the given time
func (h *TrendsDBHandler) SelectWindowsByTopic(topicID uuid.UUID, since time.Time) ([]*model.TrendWindow, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_trend_windows_by_topic($1, $2)`,
		topicID,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var windows []*model.TrendWindow
	for rows.Next() {
		window := &model.TrendWindow{}
		err := scanWindowInto(rows, window)
		if err != nil {
			return nil, err
		}

		windows = append(windows, window)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return windows, nil
}

// DeleteWindowsInRange removes all windows with buckets inside the inclusive
// range, regardless of topic. Called before persisting a cycle's windows so
// rows left under retired topic ids do not survive a re-aggregation of the
// same buckets.
func (h *TrendsDBHandler) DeleteWindowsInRange(from time.Time, to time.Time) (int64, error) {
	var deleted int64
	err := h.db.Instance.QueryRow(
		`SELECT delete_trend_windows_in_range($1, $2)`,
		from,
		to,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// DeleteWindowsBefore removes windows with buckets before the cutoff and
// returns the number of deleted rows
func (h *TrendsDBHandler) DeleteWindowsBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := h.db.Instance.QueryRow(
		`SELECT delete_trend_windows_before($1)`,
		cutoff,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

func scanWindowInto(row rowScanner, window *model.TrendWindow) error {
	err := row.Scan(
		&window.ID,
		&window.TopicID,
		&window.Bucket,
		&window.BucketWidth,
		&window.ItemCount,
		&window.MeanSentiment,
		&window.SentimentStddev,
		&window.Velocity,
		&window.TopItems,
		&window.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}
