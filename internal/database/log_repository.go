package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/wildsearch/pkg/models"
)

// LogRepository handles the append-only command log.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new repository instance.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append records one issued command. The status starts empty and is settled
// exactly once, later, via SetStatus. created_at is immutable after this.
func (r *LogRepository) Append(chatID int64, command models.Command, message string) (*models.LogCommandItem, error) {
	entry := &models.LogCommandItem{
		ChatID:    chatID,
		Command:   command.Slug(),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if r.db.DriverName() == "postgres" {
		query := r.db.Rebind(`
			INSERT INTO command_log (chat_id, command, message, status, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id
		`)
		if err := r.db.QueryRow(query,
			entry.ChatID, entry.Command, entry.Message, entry.Status, entry.CreatedAt,
		).Scan(&entry.ID); err != nil {
			return nil, fmt.Errorf("failed to append log entry: %v", err)
		}
		return entry, nil
	}

	res, err := r.db.Exec(`
		INSERT INTO command_log (chat_id, command, message, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ChatID, entry.Command, entry.Message, entry.Status, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append log entry: %v", err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get log entry id: %v", err)
	}
	return entry, nil
}

// SetStatus settles the entry's outcome. Only the status column changes.
func (r *LogRepository) SetStatus(id int64, status models.LogStatus) error {
	query := r.db.Rebind("UPDATE command_log SET status = ? WHERE id = ?")
	if _, err := r.db.Exec(query, string(status), id); err != nil {
		return fmt.Errorf("failed to set log entry status: %v", err)
	}
	return nil
}

// CountSince counts entries of one user/command/status created at or after since.
func (r *LogRepository) CountSince(chatID int64, command models.Command, status models.LogStatus, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM command_log
		WHERE chat_id = ? AND command = ? AND status = ? AND created_at >= ?
	`)
	if err := r.db.Get(&count, query, chatID, command.Slug(), string(status), since); err != nil {
		return 0, fmt.Errorf("failed to count log entries: %v", err)
	}
	return count, nil
}

// OldestSince returns the oldest qualifying entry inside the window, or nil
// when the user has no qualifying history.
func (r *LogRepository) OldestSince(chatID int64, command models.Command, status models.LogStatus, since time.Time) (*models.LogCommandItem, error) {
	var entry models.LogCommandItem
	query := r.db.Rebind(`
		SELECT * FROM command_log
		WHERE chat_id = ? AND command = ? AND status = ? AND created_at >= ?
		ORDER BY created_at ASC
		LIMIT 1
	`)
	if err := r.db.Get(&entry, query, chatID, command.Slug(), string(status), since); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get oldest log entry: %v", err)
	}
	return &entry, nil
}
