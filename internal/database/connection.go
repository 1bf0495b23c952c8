package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the database and makes sure the schema exists.
// driver is either "sqlite3" (default) or "postgres".
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	logIDColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		logIDColumn = "id BIGSERIAL PRIMARY KEY"
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			chat_id BIGINT PRIMARY KEY,
			user_name TEXT,
			full_name TEXT,
			daily_catalog_requests_limit INTEGER DEFAULT 5,
			catalog_requests_blocked BOOLEAN DEFAULT false,
			subscribed_to_categories_updates BOOLEAN DEFAULT false,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS command_log (
			` + logIDColumn + `,
			chat_id BIGINT NOT NULL,
			command TEXT NOT NULL,
			message TEXT,
			status TEXT DEFAULT '',
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create command_log table: %v", err)
	}

	// The quota check is a range scan over this exact tuple, keep it indexed.
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_command_log_quota
		ON command_log (chat_id, command, status, created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create command_log index: %v", err)
	}

	return nil
}
