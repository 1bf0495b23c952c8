// Package notify delivers texts and files to Telegram chats. All outbound
// sends pass a shared rate limiter to stay under Telegram's flood limits.
package notify

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier wraps the Telegram API client.
type Notifier struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a notifier. Telegram allows roughly 30 messages per second
// per bot, the limiter stays a bit under that.
func New(api *tgbotapi.BotAPI, log zerolog.Logger) *Notifier {
	return &Notifier{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// SendText sends a Markdown message without link previews.
func (n *Notifier) SendText(ctx context.Context, chatID int64, text string) error {
	return n.SendTextWithMarkup(ctx, chatID, text, nil)
}

// SendTextWithMarkup sends a Markdown message with an optional keyboard.
func (n *Notifier) SendTextWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendFile uploads a local file as a document under the given filename.
func (n *Notifier) SendFile(ctx context.Context, chatID int64, path, filename string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: filename, Reader: f})
	if _, err := n.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send file to chat %d: %w", chatID, err)
	}
	return nil
}
