package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/example/wildsearch/internal/crawler"
	"github.com/example/wildsearch/internal/stats"
	"github.com/example/wildsearch/pkg/models"
)

const (
	msgBadDataSet = "❌ Мы не смогли обработать ссылку. Скорее всего, вы указали неправильную страницу, либо категория оказалась пустой."
	msgRecovered  = "🤘 Рок-н-ролл! Вам доступно %d новых запросов категорий Wildberries для анализа.\n%s"
	msgNoRequests = "У вас больше нет доступных запросов.\n%s\nВы можете подождать 24 часа с момента последнего анализа, либо снять ограничения."
)

// Quota display never renders more than this many emoji per message.
const maxQuotaEmoji = 10

// UserSource looks users up by chat.
type UserSource interface {
	GetByChatID(chatID int64) (*models.User, error)
}

// Quota answers how much of the daily limit is left.
type Quota interface {
	Remaining(user *models.User) (int, error)
}

// ItemSource fetches a finished job's items.
type ItemSource interface {
	Items(ctx context.Context, jobID string) ([]models.Item, error)
}

// Notifier sends results to the chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTextWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error
	SendFile(ctx context.Context, chatID int64, path, filename string) error
}

// Tracker records analytics events.
type Tracker interface {
	Track(ctx context.Context, chatID int64, event string, userProps map[string]interface{})
}

// App builds and enqueues the application's background tasks.
type App struct {
	queue    *Queue
	users    UserSource
	quota    Quota
	items    ItemSource
	notifier Notifier
	tracker  Tracker

	maxAttempts int
	retryDelay  time.Duration
	log         zerolog.Logger
}

// NewApp wires the task constructors.
func NewApp(queue *Queue, users UserSource, quota Quota, items ItemSource, notifier Notifier, tracker Tracker, maxAttempts int, retryDelay time.Duration, log zerolog.Logger) *App {
	return &App{
		queue:       queue,
		users:       users,
		quota:       quota,
		items:       items,
		notifier:    notifier,
		tracker:     tracker,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		log:         log.With().Str("component", "tasks").Logger(),
	}
}

// EnqueueCalculateStats schedules stat calculation for a finished crawl
// job. The crawl backend marks jobs finished slightly before items become
// readable, so the task retries on a fixed delay until the data is there.
func (a *App) EnqueueCalculateStats(jobID string, chatID int64) {
	a.queue.Enqueue(&Task{
		Name:        "calculate_category_stats",
		MaxAttempts: a.maxAttempts,
		RetryDelay:  a.retryDelay,
		Run: func(ctx context.Context) error {
			return a.calculateStats(ctx, jobID, chatID)
		},
		OnExhausted: func(ctx context.Context) {
			a.send(ctx, chatID, msgBadDataSet)
		},
	})
}

func (a *App) calculateStats(ctx context.Context, jobID string, chatID int64) error {
	items, err := a.items.Items(ctx, jobID)
	if errors.Is(err, crawler.ErrNotReady) {
		return fmt.Errorf("%w: job %s: %v", ErrRetryLater, jobID, err)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch items for job %s: %v", jobID, err)
	}

	st, err := stats.New(items)
	if errors.Is(err, stats.ErrEmptyDataSet) {
		a.send(ctx, chatID, msgBadDataSet)
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.notifier.SendText(ctx, chatID, st.SummaryMessage()); err != nil {
		return fmt.Errorf("failed to send summary: %v", err)
	}

	path, err := st.ExportXLSX("")
	if err != nil {
		a.log.Error().Err(err).Str("job_id", jobID).Msg("failed to export category file")
	} else {
		defer os.Remove(path)
		filename := fmt.Sprintf("%s на Wildberries.xlsx", st.CategoryName())
		if err := a.notifier.SendFile(ctx, chatID, path, filename); err != nil {
			a.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send category file")
		}
	}

	a.tracker.Track(ctx, chatID, "Received WB category analyses", nil)
	a.EnqueueSendRequestsCount(chatID)
	return nil
}

// EnqueueSendRequestsCount schedules the remaining-quota notice.
func (a *App) EnqueueSendRequestsCount(chatID int64) {
	a.queue.Enqueue(&Task{
		Name: "send_requests_count",
		Run: func(ctx context.Context) error {
			return a.SendRequestsCount(ctx, chatID)
		},
	})
}

// SendRequestsCount tells the user how many requests they have left today.
func (a *App) SendRequestsCount(ctx context.Context, chatID int64) error {
	user, remaining, err := a.remaining(chatID)
	if err != nil {
		return err
	}

	if remaining <= 0 {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🚀 Снять ограничения", "keyboard_no_limits"),
			),
		)
		text := fmt.Sprintf(msgNoRequests, quotaEmoji(0, user.DailyCatalogRequestsLimit))
		return a.notifier.SendTextWithMarkup(ctx, chatID, text, markup)
	}

	text := fmt.Sprintf("Вам доступно %d из %d запросов.\n%s\nЛимит восстановится через 24 часа с момента каждого анализа.",
		remaining, user.DailyCatalogRequestsLimit, quotaEmoji(remaining, user.DailyCatalogRequestsLimit))
	return a.send(ctx, chatID, text)
}

// CheckRequestsCountRecovered fires a day after a request was spent. It
// messages the user only when the whole quota is back, so a user who kept
// requesting during the day is not spammed with partial notices.
func (a *App) CheckRequestsCountRecovered(chatID int64) {
	a.queue.Enqueue(&Task{
		Name: "check_requests_count_recovered",
		Run: func(ctx context.Context) error {
			user, remaining, err := a.remaining(chatID)
			if err != nil {
				return err
			}
			if remaining < user.DailyCatalogRequestsLimit {
				return nil
			}

			text := fmt.Sprintf(msgRecovered, user.DailyCatalogRequestsLimit,
				quotaEmoji(remaining, user.DailyCatalogRequestsLimit))
			if err := a.send(ctx, chatID, text); err != nil {
				return err
			}
			a.tracker.Track(ctx, chatID, `Received "Recovered requests" message`, nil)
			return nil
		},
	})
}

func (a *App) remaining(chatID int64) (*models.User, int, error) {
	user, err := a.users.GetByChatID(chatID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load user %d: %v", chatID, err)
	}
	if user == nil {
		return nil, 0, fmt.Errorf("user %d not found", chatID)
	}

	remaining, err := a.quota.Remaining(user)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count remaining requests for %d: %v", chatID, err)
	}
	if remaining < 0 {
		remaining = 0
	}
	return user, remaining, nil
}

func (a *App) send(ctx context.Context, chatID int64, text string) error {
	if err := a.notifier.SendText(ctx, chatID, text); err != nil {
		a.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
		return err
	}
	return nil
}

// quotaEmoji renders the limit as moons: 🌕 per free slot, 🌑 per used
// one. Large limits would flood the message, so the row is skipped past
// the cap.
func quotaEmoji(remaining, limit int) string {
	if limit > maxQuotaEmoji {
		return ""
	}
	if remaining > limit {
		remaining = limit
	}
	return strings.Repeat("🌕", remaining) + strings.Repeat("🌑", limit-remaining)
}
