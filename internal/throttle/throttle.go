// Package throttle decides whether a user's catalog request may proceed.
// Quota is derived from the command log over a sliding 24-hour window, so
// recovery is continuous instead of resetting at midnight.
package throttle

import (
	"time"

	"github.com/example/wildsearch/pkg/models"
)

// Window is the trailing period successful requests are counted over.
const Window = 24 * time.Hour

// LogStore is the slice of the command log the guard reads. It never writes.
type LogStore interface {
	CountSince(chatID int64, command models.Command, status models.LogStatus, since time.Time) (int, error)
	OldestSince(chatID int64, command models.Command, status models.LogStatus, since time.Time) (*models.LogCommandItem, error)
}

// Guard answers admission questions for one request at a time.
type Guard struct {
	logs LogStore
	now  func() time.Time
}

// NewGuard creates a guard over the given log store.
func NewGuard(logs LogStore) *Guard {
	return &Guard{logs: logs, now: time.Now}
}

// CanAdmit reports whether the user may issue another catalog request.
// Blocked users are always rejected. Only success-status entries consume
// quota: failed and too_long_queue attempts never count, and neither do
// entries whose status is still unset.
func (g *Guard) CanAdmit(user *models.User) (bool, error) {
	if user.CatalogRequestsBlocked {
		return false, nil
	}

	count, err := g.windowCount(user)
	if err != nil {
		return false, err
	}

	return count < user.DailyCatalogRequestsLimit, nil
}

// Remaining returns limit minus the windowed count. The result can be
// negative when the limit was lowered after requests were logged; callers
// clamp for display.
func (g *Guard) Remaining(user *models.User) (int, error) {
	count, err := g.windowCount(user)
	if err != nil {
		return 0, err
	}
	return user.DailyCatalogRequestsLimit - count, nil
}

// NextFreeAt returns the moment the next request slot frees up: now when a
// slot is already free, otherwise the instant the oldest counted request
// ages out of the window.
func (g *Guard) NextFreeAt(user *models.User) (time.Time, error) {
	now := g.now()

	remaining, err := g.Remaining(user)
	if err != nil {
		return time.Time{}, err
	}
	if remaining > 0 {
		return now, nil
	}

	oldest, err := g.logs.OldestSince(user.ChatID, models.CommandWBCatalog, models.LogStatusSuccess, now.Add(-Window))
	if err != nil {
		return time.Time{}, err
	}
	if oldest == nil {
		// Over quota with no windowed history can only mean a zero or
		// negative limit; the slot frees whenever the limit changes.
		return now, nil
	}

	return oldest.CreatedAt.Add(Window), nil
}

func (g *Guard) windowCount(user *models.User) (int, error) {
	return g.logs.CountSince(user.ChatID, models.CommandWBCatalog, models.LogStatusSuccess, g.now().Add(-Window))
}
