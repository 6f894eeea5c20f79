package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
	loadSql "github.com/siherrmann/trendsense/sql"
)

// ItemsDBHandlerFunctions defines the interface for Items database operations.
type ItemsDBHandlerFunctions interface {
	UpsertItem(item *model.CanonicalItem) error
	SelectItem(rid uuid.UUID) (*model.CanonicalItem, error)
	SelectRecentItems(since time.Time) ([]*model.CanonicalItem, error)
	SelectSentimentDistribution(since time.Time) (map[model.SentimentLabel]int, error)
	DeleteItemsBefore(cutoff time.Time) (int64, error)
}

// ItemsDBHandler handles canonical-item database operations
type ItemsDBHandler struct {
	db *helper.Database
}

// NewItemsDBHandler creates a new items database handler.
// It initializes the database connection and loads item-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewItemsDBHandler(db *helper.Database, force bool) (*ItemsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	itemsDbHandler := &ItemsDBHandler{
		db: db,
	}

	err := loadSql.LoadItemsSql(itemsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load items sql", err)
	}

	err = itemsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ItemsDBHandler")

	return itemsDbHandler, nil
}

// CreateTable creates the 'items' table in the database.
// If the table already exists, it does not create it again.
func (h *ItemsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_items();`)
	if err != nil {
		log.Panicf("error initializing items table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table items")

	return nil
}

// UpsertItem inserts a canonical item or refreshes the stored row when the
// fingerprint is already known
func (h *ItemsDBHandler) UpsertItem(item *model.CanonicalItem) error {
	if item.RID == uuid.Nil {
		item.RID = uuid.New()
	}

	var sentimentJSON interface{}
	if item.Sentiment != nil {
		b, err := json.Marshal(item.Sentiment)
		if err != nil {
			return helper.NewError("marshal sentiment", err)
		}
		sentimentJSON = b
	}

	var duplicateOf interface{}
	if item.DuplicateOf != nil {
		duplicateOf = *item.DuplicateOf
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_canonical_item($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.RID,
		item.SourceID,
		item.ExternalID,
		item.Title,
		item.Body,
		item.URL,
		item.Author,
		item.Fingerprint,
		duplicateOf,
		item.PublishedAt,
		item.FirstSeenAt,
		item.Metrics,
		sentimentJSON,
	)

	return scanItemInto(row, item)
}

// SelectItem retrieves a canonical item by RID
func (h *ItemsDBHandler) SelectItem(rid uuid.UUID) (*model.CanonicalItem, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_item($1)`,
		rid,
	)

	item := &model.CanonicalItem{}
	err := scanItemInto(row, item)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// SelectRecentItems retrieves the canonical representatives published since
// the given time, aliases excluded
func (h *ItemsDBHandler) SelectRecentItems(since time.Time) ([]*model.CanonicalItem, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_items($1)`,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var items []*model.CanonicalItem
	for rows.Next() {
		item := &model.CanonicalItem{}
		err := scanItemInto(rows, item)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return items, nil
}

// SelectSentimentDistribution counts the scored representatives per
// sentiment label since the given time
func (h *ItemsDBHandler) SelectSentimentDistribution(since time.Time) (map[model.SentimentLabel]int, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_sentiment_distribution($1)`,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	distribution := map[model.SentimentLabel]int{}
	for rows.Next() {
		var label string
		var count int
		err := rows.Scan(&label, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		distribution[model.SentimentLabel(label)] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return distribution, nil
}

// DeleteItemsBefore removes items published before the cutoff and returns
// the number of deleted rows
func (h *ItemsDBHandler) DeleteItemsBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := h.db.Instance.QueryRow(
		`SELECT delete_items_before($1)`,
		cutoff,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItemInto(row rowScanner, item *model.CanonicalItem) error {
	var duplicateOf uuid.NullUUID
	var sentimentJSON []byte
	err := row.Scan(
		&item.ID,
		&item.RID,
		&item.SourceID,
		&item.ExternalID,
		&item.Title,
		&item.Body,
		&item.URL,
		&item.Author,
		&item.Fingerprint,
		&duplicateOf,
		&item.PublishedAt,
		&item.FirstSeenAt,
		&item.Metrics,
		&sentimentJSON,
		&item.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	if duplicateOf.Valid {
		item.DuplicateOf = &duplicateOf.UUID
	} else {
		item.DuplicateOf = nil
	}

	if len(sentimentJSON) > 0 {
		sentiment := &model.SentimentResult{}
		if err := json.Unmarshal(sentimentJSON, sentiment); err != nil {
			return helper.NewError("unmarshaling sentiment", err)
		}
		item.Sentiment = sentiment
	} else {
		item.Sentiment = nil
	}

	return nil
}
