package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed items.sql
var itemsSQL string

//go:embed topics.sql
var topicsSQL string

//go:embed trends.sql
var trendsSQL string

//go:embed cycles.sql
var cyclesSQL string

// Function lists for verification
var ItemsFunctions = []string{
	"init_items",
	"upsert_canonical_item",
	"select_item",
	"select_recent_items",
	"select_sentiment_distribution",
	"delete_items_before",
}

var TopicsFunctions = []string{
	"init_topics",
	"insert_topic",
	"select_recent_topics",
	"delete_topics_before",
}

var TrendsFunctions = []string{
	"init_trends",
	"upsert_trend_window",
	"select_trend_windows",
	"select_trend_windows_by_topic",
	"delete_trend_windows_in_range",
	"delete_trend_windows_before",
}

var CyclesFunctions = []string{
	"init_cycles",
	"insert_cycle_status",
	"select_last_cycle",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadItemsSql loads item-related SQL functions
func LoadItemsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ItemsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing items functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(itemsSQL)
	if err != nil {
		return fmt.Errorf("error executing items SQL: %w", err)
	}

	exist, err := checkFunctions(db, ItemsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL items functions loaded successfully")
	return nil
}

// LoadTopicsSql loads topic-related SQL functions
func LoadTopicsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, TopicsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing topics functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(topicsSQL)
	if err != nil {
		return fmt.Errorf("error executing topics SQL: %w", err)
	}

	exist, err := checkFunctions(db, TopicsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL topics functions loaded successfully")
	return nil
}

// LoadTrendsSql loads trend-window-related SQL functions
func LoadTrendsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, TrendsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing trends functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(trendsSQL)
	if err != nil {
		return fmt.Errorf("error executing trends SQL: %w", err)
	}

	exist, err := checkFunctions(db, TrendsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL trends functions loaded successfully")
	return nil
}

// LoadCyclesSql loads cycle-status-related SQL functions
func LoadCyclesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, CyclesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing cycles functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(cyclesSQL)
	if err != nil {
		return fmt.Errorf("error executing cycles SQL: %w", err)
	}

	exist, err := checkFunctions(db, CyclesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL cycles functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadItemsSql(db, force); err != nil {
		return err
	}

	if err := LoadTopicsSql(db, force); err != nil {
		return err
	}

	if err := LoadTrendsSql(db, force); err != nil {
		return err
	}

	if err := LoadCyclesSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
