package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
	loadSql "github.com/siherrmann/trendsense/sql"
)

// CyclesDBHandlerFunctions defines the interface for CycleStatus database operations.
type CyclesDBHandlerFunctions interface {
	InsertCycleStatus(status *model.CycleStatus) error
	SelectLastCycle() (*model.CycleStatus, error)
}

// CyclesDBHandler handles cycle-status database operations
type CyclesDBHandler struct {
	db *helper.Database
}

// NewCyclesDBHandler creates a new cycles database handler.
// It initializes the database connection and loads cycle-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCyclesDBHandler(db *helper.Database, force bool) (*CyclesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	cyclesDbHandler := &CyclesDBHandler{
		db: db,
	}

	err := loadSql.LoadCyclesSql(cyclesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load cycles sql", err)
	}

	err = cyclesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CyclesDBHandler")

	return cyclesDbHandler, nil
}

// CreateTable creates the 'cycles' table in the database.
// If the table already exists, it does not create it again.
func (h *CyclesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_cycles();`)
	if err != nil {
		log.Panicf("error initializing cycles table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table cycles")

	return nil
}

// InsertCycleStatus appends one cycle outcome to the log
func (h *CyclesDBHandler) InsertCycleStatus(status *model.CycleStatus) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_cycle_status($1, $2, $3, $4, $5, $6, $7, $8)`,
		status.State,
		status.StartedAt,
		status.FinishedAt,
		status.ItemCount,
		status.TopicCount,
		status.WindowCount,
		status.Sources,
		status.Error,
	)

	err := row.Scan(
		&status.ID,
		&status.State,
		&status.StartedAt,
		&status.FinishedAt,
		&status.ItemCount,
		&status.TopicCount,
		&status.WindowCount,
		&status.Sources,
		&status.Error,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectLastCycle retrieves the most recent cycle outcome, nil when no
// cycle has run yet
func (h *CyclesDBHandler) SelectLastCycle() (*model.CycleStatus, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_last_cycle()`,
	)

	status := &model.CycleStatus{}
	err := row.Scan(
		&status.ID,
		&status.State,
		&status.StartedAt,
		&status.FinishedAt,
		&status.ItemCount,
		&status.TopicCount,
		&status.WindowCount,
		&status.Sources,
		&status.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return status, nil
}
