package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wildsearch/internal/tasks"
	"github.com/example/wildsearch/pkg/models"
)

// Reply keyboard labels double as routing keys: pressing a button sends
// its label back as a plain message.
const (
	buttonInfo     = "ℹ️ О сервисе"
	buttonNoLimits = "🚀 Увеличить лимит запросов"
)

const (
	callbackHelpCatalogLink = "keyboard_help_catalog_link"
	callbackAnalyseCategory = "keyboard_analyse_category"
	callbackNoLimits        = "keyboard_no_limits"
)

const (
	msgInfo = `📊 Этот бот анализирует категории Wildberries.

Пришлите ссылку на интересующую вас категорию, и бот соберет по ней свежие данные: количество товаров, цены, продажи и выручку. Вместе с краткой сводкой вы получите Excel-файл со всеми товарами категории.`

	msgHelpCatalogLink = `☝️ Чтобы провести анализ категории, откройте [wildberries.ru](https://www.wildberries.ru) в браузере, выберите нужную категорию или поисковый запрос и пришлите сюда ссылку на нее из адресной строки.

Например: https://www.wildberries.ru/catalog/dom-i-dacha/kuhnya/posuda-i-inventar`

	msgAnalyseCategory = `📊 Анализ категории показывает, что продается внутри нее: количество товаров, максимальную и среднюю цену, общее число продаж и выручку. Это помогает оценить, стоит ли заходить в категорию со своим товаром.`

	msgNoLimits = `Если вы хотите увеличить или снять лимит запросов, напишите нам в чат поддержки сообщение с фразой «Снимите лимит запросов».`

	msgUnknown = `⚠️🤷 Непонятная команда.
Скорее всего, вы указали неправильную команду. Сейчас бот умеет анализировать только ссылки на категории Wildberries.`

	msgLimitReached = `💫 Ваш лимит запросов закончился. Лимит восстанавливается в течение 24 часов с момента каждого анализа.

Новый запрос станет доступен %s.`
)

// catalogLinkRe matches category, brand and search pages of the
// marketplace. Query strings and fragments after the path are fine.
var catalogLinkRe = regexp.MustCompile(`(?i)wildberries\.ru/(catalog/|brands/|[^ ]*search\.aspx)`)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		user, err := b.resolveUser(update.CallbackQuery.From)
		if err != nil {
			b.log.Error().Err(err).Msg("failed to resolve user")
			return
		}
		b.handleCallback(ctx, user, update.CallbackQuery.Data)
		// Answering stops the button spinner even when the data was stale.
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			b.log.Warn().Err(err).Msg("failed to answer callback query")
		}
	case update.Message != nil && update.Message.From != nil:
		user, err := b.resolveUser(update.Message.From)
		if err != nil {
			b.log.Error().Err(err).Msg("failed to resolve user")
			return
		}
		b.handleText(ctx, user, update.Message.Text)
	}
}

func (b *Bot) resolveUser(from *tgbotapi.User) (*models.User, error) {
	fullName := strings.TrimSpace(from.FirstName + " " + from.LastName)
	return b.users.FindOrCreate(from.ID, from.UserName, fullName)
}

// handleText routes one plain message. Every recognized route is logged
// before it is handled; the log is what quota counting runs on.
func (b *Bot) handleText(ctx context.Context, user *models.User, text string) {
	switch {
	case text == "/start" || text == "/help":
		b.appendLog(user, models.CommandStart, text)
		b.handleStart(ctx, user)
	case text == buttonInfo || text == "/info":
		b.appendLog(user, models.CommandInfo, text)
		b.send(ctx, user.ChatID, msgInfo, noLimitsKeyboard())
	case text == buttonNoLimits:
		b.appendLog(user, models.CommandNoLimits, text)
		b.send(ctx, user.ChatID, msgNoLimits, noLimitsKeyboard())
	case catalogLinkRe.MatchString(text):
		b.handleCatalogLink(ctx, user, text)
	default:
		b.appendLog(user, models.CommandUnknown, text)
		b.send(ctx, user.ChatID, msgUnknown, catalogHelpKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, user *models.User, data string) {
	switch data {
	case callbackHelpCatalogLink:
		b.appendLog(user, models.CommandHelpCatalogLink, data)
		b.send(ctx, user.ChatID, msgHelpCatalogLink, nil)
	case callbackAnalyseCategory:
		b.appendLog(user, models.CommandAnalyseCategory, data)
		b.send(ctx, user.ChatID, msgAnalyseCategory, catalogHelpKeyboard())
	case callbackNoLimits:
		b.appendLog(user, models.CommandNoLimits, data)
		b.send(ctx, user.ChatID, msgNoLimits, noLimitsKeyboard())
	default:
		b.log.Warn().Str("data", data).Msg("unknown callback data")
	}
}

func (b *Bot) handleStart(ctx context.Context, user *models.User) {
	greeting := "Приветствую!"
	if user.FullName != "" {
		greeting = fmt.Sprintf("Приветствую, %s!", user.FullName)
	}
	b.send(ctx, user.ChatID, greeting, mainMenuKeyboard())
	b.send(ctx, user.ChatID, msgInfo, catalogHelpKeyboard())
}

// handleCatalogLink is the quota-guarded path. The log entry is appended
// unconditionally with an unresolved status; only the export scheduler
// settles it, so a rejected request never consumes a slot.
func (b *Bot) handleCatalogLink(ctx context.Context, user *models.User, text string) {
	entry, err := b.logs.Append(user.ChatID, models.CommandWBCatalog, text)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to append log entry")
		return
	}

	ok, err := b.guard.CanAdmit(user)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to check quota")
		return
	}

	if !ok {
		at, err := b.guard.NextFreeAt(user)
		if err != nil {
			b.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to compute next free slot")
			return
		}
		text := fmt.Sprintf(msgLimitReached, at.Format("02.01.2006 в 15:04"))
		b.send(ctx, user.ChatID, text, noLimitsKeyboard())
		return
	}

	// The depth check and submission talk to the crawl backend, keep them
	// off the update loop.
	b.queue.Enqueue(&tasks.Task{
		Name: "schedule_category_export",
		Run: func(ctx context.Context) error {
			b.exporter.Schedule(ctx, text, user, entry)
			return nil
		},
	})
}

func (b *Bot) appendLog(user *models.User, command models.Command, message string) {
	if _, err := b.logs.Append(user.ChatID, command, message); err != nil {
		b.log.Error().Err(err).Int64("chat_id", user.ChatID).Str("command", command.Slug()).Msg("failed to append log entry")
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup interface{}) {
	var err error
	if markup != nil {
		err = b.sender.SendTextWithMarkup(ctx, chatID, text, markup)
	} else {
		err = b.sender.SendText(ctx, chatID, text)
	}
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
