package diff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/example/wildsearch/pkg/models"
)

// SnapshotLoader yields the two most recent category listings, older first.
type SnapshotLoader interface {
	LoadRecentCategorySnapshots(ctx context.Context) (old, latest []models.Category, err error)
}

// UserSource lists users subscribed to category update broadcasts.
type UserSource interface {
	SubscribedToCategoryUpdates() ([]models.User, error)
}

// Notifier delivers text and files to a chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendFile(ctx context.Context, chatID int64, path, filename string) error
}

// Broadcaster runs one category diff and fans the report out to all
// subscribed users. It is triggered both by the daily timer and by the
// category_list crawl callback; running it twice for the same snapshot pair
// just re-sends the same report, which is acceptable.
type Broadcaster struct {
	loader   SnapshotLoader
	users    UserSource
	notifier Notifier
	log      zerolog.Logger
}

// NewBroadcaster wires a broadcaster.
func NewBroadcaster(loader SnapshotLoader, users UserSource, notifier Notifier, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		loader:   loader,
		users:    users,
		notifier: notifier,
		log:      log.With().Str("component", "category_updates").Logger(),
	}
}

// Run loads, diffs and broadcasts. Per-user delivery failures are logged
// and skipped so one unreachable chat doesn't starve the rest.
func (b *Broadcaster) Run(ctx context.Context) error {
	old, latest, err := b.loader.LoadRecentCategorySnapshots(ctx)
	if err != nil {
		return fmt.Errorf("load category snapshots: %w", err)
	}

	result := Compare(old, latest)

	users, err := b.users.SubscribedToCategoryUpdates()
	if err != nil {
		return fmt.Errorf("list subscribed users: %w", err)
	}
	if len(users) == 0 {
		b.log.Info().Msg("no subscribers, skipping category update broadcast")
		return nil
	}

	if result.Added.Count() == 0 {
		for _, user := range users {
			if err := b.notifier.SendText(ctx, user.ChatID, "За последние сутки категории на Wildberries не обновились"); err != nil {
				b.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to send no-updates message")
			}
		}
		return nil
	}

	text := fmt.Sprintf(
		"Обновились данные по категориям на Wildberries. С последнего обновления добавилось %d категорий, из них %d уникальных",
		result.Added.Count(), len(result.Added.Records),
	)

	path, err := result.Added.ExportXLSX("")
	if err != nil {
		return fmt.Errorf("export added categories: %w", err)
	}
	defer os.Remove(path)

	for _, user := range users {
		if err := b.notifier.SendText(ctx, user.ChatID, text); err != nil {
			b.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to send update message")
			continue
		}
		if err := b.notifier.SendFile(ctx, user.ChatID, path, filepath.Base(path)); err != nil {
			b.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to send update file")
		}
	}

	b.log.Info().
		Int("added", result.Added.Count()).
		Int("removed", result.Removed.Count()).
		Int("subscribers", len(users)).
		Msg("category update broadcast sent")
	return nil
}
