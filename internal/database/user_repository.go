package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/wildsearch/pkg/models"
)

// UserRepository handles database operations for users.
type UserRepository struct {
	db           *sqlx.DB
	defaultLimit int
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB, defaultLimit int) *UserRepository {
	return &UserRepository{db: db, defaultLimit: defaultLimit}
}

// GetByChatID returns a user by Telegram chat ID.
func (r *UserRepository) GetByChatID(chatID int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT * FROM users WHERE chat_id = ?")
	if err := r.db.Get(&user, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by chat id: %v", err)
	}
	return &user, nil
}

// FindOrCreate returns the user with the given chat ID, creating it with
// defaults on first contact. A changed username or display name refreshes
// the stored record; created_at is never touched after the first save.
func (r *UserRepository) FindOrCreate(chatID int64, userName, fullName string) (*models.User, error) {
	user, err := r.GetByChatID(chatID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		now := time.Now().UTC()
		user = &models.User{
			ChatID:                    chatID,
			UserName:                  userName,
			FullName:                  fullName,
			DailyCatalogRequestsLimit: r.defaultLimit,
			CreatedAt:                 now,
			UpdatedAt:                 now,
		}

		query := r.db.Rebind(`
			INSERT INTO users (
				chat_id, user_name, full_name, daily_catalog_requests_limit,
				catalog_requests_blocked, subscribed_to_categories_updates,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if _, err := r.db.Exec(query,
			user.ChatID, user.UserName, user.FullName, user.DailyCatalogRequestsLimit,
			user.CatalogRequestsBlocked, user.SubscribedToCategoryUpdates,
			user.CreatedAt, user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to create user: %v", err)
		}
		return user, nil
	}

	if user.UserName != userName || user.FullName != fullName {
		user.UserName = userName
		user.FullName = fullName
		if err := r.Save(user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// Save persists every mutable field and refreshes updated_at.
func (r *UserRepository) Save(user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE users SET
			user_name = ?,
			full_name = ?,
			daily_catalog_requests_limit = ?,
			catalog_requests_blocked = ?,
			subscribed_to_categories_updates = ?,
			updated_at = ?
		WHERE chat_id = ?
	`)
	if _, err := r.db.Exec(query,
		user.UserName, user.FullName, user.DailyCatalogRequestsLimit,
		user.CatalogRequestsBlocked, user.SubscribedToCategoryUpdates,
		user.UpdatedAt, user.ChatID,
	); err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	return nil
}

// SubscribedToCategoryUpdates returns users who opted into category update broadcasts.
func (r *UserRepository) SubscribedToCategoryUpdates() ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind("SELECT * FROM users WHERE subscribed_to_categories_updates = ? ORDER BY created_at")
	if err := r.db.Select(&users, query, true); err != nil {
		return nil, fmt.Errorf("failed to get subscribed users: %v", err)
	}
	return users, nil
}
