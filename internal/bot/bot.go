// Package bot runs the Telegram chat surface: command routing, quota
// checks and handoff of category links to the export pipeline.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/example/wildsearch/internal/tasks"
	"github.com/example/wildsearch/pkg/models"
)

// Sender delivers outbound messages.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTextWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error
}

// UserStore resolves the sender of each update.
type UserStore interface {
	FindOrCreate(chatID int64, userName, fullName string) (*models.User, error)
}

// LogStore records every understood command.
type LogStore interface {
	Append(chatID int64, command models.Command, message string) (*models.LogCommandItem, error)
}

// Admission answers whether a catalog request may proceed.
type Admission interface {
	CanAdmit(user *models.User) (bool, error)
	Remaining(user *models.User) (int, error)
	NextFreeAt(user *models.User) (time.Time, error)
}

// Exporter submits admitted category requests to the crawl backend.
type Exporter interface {
	Schedule(ctx context.Context, categoryURL string, user *models.User, entry *models.LogCommandItem)
}

// Dispatcher moves slow work off the update loop.
type Dispatcher interface {
	Enqueue(t *tasks.Task)
}

// Bot is the Telegram bot application.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	users    UserStore
	logs     LogStore
	guard    Admission
	exporter Exporter
	queue    Dispatcher
	log      zerolog.Logger
}

// New creates a new bot instance.
func New(api *tgbotapi.BotAPI, sender Sender, users UserStore, logs LogStore, guard Admission, exporter Exporter, queue Dispatcher, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		sender:   sender,
		users:    users,
		logs:     logs,
		guard:    guard,
		exporter: exporter,
		queue:    queue,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// Start consumes the update stream until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info().Str("account", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// mainMenuKeyboard is the persistent reply keyboard under the input field.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonInfo),
			tgbotapi.NewKeyboardButton(buttonNoLimits),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func catalogHelpKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💁 Как правильно указать категорию?", callbackHelpCatalogLink),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Что такое анализ категории?", callbackAnalyseCategory),
		),
	)
}

func noLimitsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👨‍🚀 Чат с поддержкой", "https://t.me/wildsearch_support"),
		),
	)
}
