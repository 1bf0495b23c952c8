package models

import "time"

// LogStatus is the terminal outcome of one logged command.
type LogStatus string

const (
	// LogStatusPending marks an entry whose asynchronous outcome is not known yet.
	LogStatusPending LogStatus = "pending"
	// LogStatusSuccess marks a successfully submitted catalog request.
	// Only these entries count against the daily quota.
	LogStatusSuccess LogStatus = "success"
	// LogStatusTooLongQueue marks a request rejected because the crawl queue was saturated.
	LogStatusTooLongQueue LogStatus = "too_long_queue"
)

// LogCommandItem is one row of the append-only command log. The log is the
// single source of truth for quota counting, there is no separate counter.
type LogCommandItem struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Command   string    `json:"command" db:"command"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
