package models

import "time"

// User represents a Telegram user interacting with the bot.
// The Telegram chat ID doubles as the primary key.
type User struct {
	ChatID                      int64     `json:"chat_id" db:"chat_id"`
	UserName                    string    `json:"user_name" db:"user_name"`
	FullName                    string    `json:"full_name" db:"full_name"`
	DailyCatalogRequestsLimit   int       `json:"daily_catalog_requests_limit" db:"daily_catalog_requests_limit"`
	CatalogRequestsBlocked      bool      `json:"catalog_requests_blocked" db:"catalog_requests_blocked"`
	SubscribedToCategoryUpdates bool      `json:"subscribed_to_categories_updates" db:"subscribed_to_categories_updates"`
	CreatedAt                   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at" db:"updated_at"`
}
