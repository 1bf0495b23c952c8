// Package export submits category export jobs to the crawl backend and
// reports the outcome back to the requesting chat.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/wildsearch/pkg/models"
)

// Chat texts for the three submission outcomes.
const (
	msgQueueTooLong = "Извините, мы сейчас не можем обработать ваш запрос – у нас образовалась слишком большая очередь на анализ категорий. Пожалуйста, подождите немного и отправьте запрос снова."
	msgProcessing   = "⏳ Мы обрабатываем ваш запрос. Когда все будет готово, вы получите результат.\n\nБольшие категории (свыше 1 тыс. товаров) могут обрабатываться до одного часа.\n\nМаленькие категории обрабатываются в течение нескольких минут."
	msgSubmitError  = "Произошла ошибка при запросе каталога, попробуйте запросить его позже"
)

// The quota entry ages out of the 24h window before the recheck fires,
// so the recovery message never reports a still-consumed slot.
const recheckDelay = 24*time.Hour + time.Minute

// JobQueue is the crawl backend surface the scheduler needs.
type JobQueue interface {
	ScheduledJobsCount(ctx context.Context, spider string) (int, error)
	RunJob(ctx context.Context, spider string, args map[string]string) (string, error)
}

// StatusStore resolves the pending quota entry for the request.
type StatusStore interface {
	SetStatus(id int64, status models.LogStatus) error
}

// Notifier sends outcome messages to the chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Tracker records analytics events.
type Tracker interface {
	Track(ctx context.Context, chatID int64, event string, userProps map[string]interface{})
}

// Deferred runs a function once at a future moment.
type Deferred interface {
	At(t time.Time, fn func())
}

// Config carries the submission parameters.
type Config struct {
	Spider      string
	Threshold   int
	CallbackURL string
}

// Scheduler decides whether a category export may enter the crawl queue
// and submits it when it may.
type Scheduler struct {
	jobs     JobQueue
	logs     StatusStore
	notifier Notifier
	tracker  Tracker
	deferred Deferred
	recheck  func(chatID int64)
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a scheduler. recheck is invoked roughly a day after a
// successful submission to tell the user their quota slot is back.
func New(jobs JobQueue, logs StatusStore, notifier Notifier, tracker Tracker, deferred Deferred, recheck func(chatID int64), cfg Config, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		logs:     logs,
		notifier: notifier,
		tracker:  tracker,
		deferred: deferred,
		recheck:  recheck,
		cfg:      cfg,
		log:      log.With().Str("component", "export").Logger(),
		now:      time.Now,
	}
}

// Schedule checks the crawl queue depth and either submits the export job
// or rejects the request. The entry's status records the outcome: success,
// too_long_queue, or left unresolved on a backend error so the slot is
// never consumed by a failed attempt. Errors never propagate to the chat
// flow; the user always gets a message instead.
//
// The depth check and the submission are two separate backend calls, so
// two concurrent requests can both pass the check. The threshold is a soft
// bound on queue growth, not a hard cap.
func (s *Scheduler) Schedule(ctx context.Context, categoryURL string, user *models.User, entry *models.LogCommandItem) {
	count, err := s.jobs.ScheduledJobsCount(ctx, s.cfg.Spider)
	if err != nil {
		s.log.Error().Err(err).Int64("chat_id", user.ChatID).Msg("failed to check crawl queue depth")
		s.send(ctx, user.ChatID, msgSubmitError)
		return
	}

	if count > s.cfg.Threshold {
		if err := s.logs.SetStatus(entry.ID, models.LogStatusTooLongQueue); err != nil {
			s.log.Error().Err(err).Int64("entry_id", entry.ID).Msg("failed to mark entry too_long_queue")
		}
		s.send(ctx, user.ChatID, msgQueueTooLong)
		s.tracker.Track(ctx, user.ChatID, `Received "Too long queue" error`, nil)
		return
	}

	jobID, err := s.jobs.RunJob(ctx, s.cfg.Spider, map[string]string{
		"category_url":    categoryURL,
		"callback_url":    s.cfg.CallbackURL + "/wb_category_export",
		"callback_params": fmt.Sprintf("chat_id=%d", user.ChatID),
	})
	if err != nil {
		s.log.Error().Err(err).Int64("chat_id", user.ChatID).Str("category_url", categoryURL).Msg("failed to submit export job")
		s.send(ctx, user.ChatID, msgSubmitError)
		return
	}

	if err := s.logs.SetStatus(entry.ID, models.LogStatusSuccess); err != nil {
		s.log.Error().Err(err).Int64("entry_id", entry.ID).Msg("failed to mark entry success")
	}

	s.log.Info().Str("job_id", jobID).Int64("chat_id", user.ChatID).Str("category_url", categoryURL).Msg("export job submitted")
	s.send(ctx, user.ChatID, msgProcessing)

	chatID := user.ChatID
	s.deferred.At(s.now().Add(recheckDelay), func() {
		s.recheck(chatID)
	})
}

func (s *Scheduler) send(ctx context.Context, chatID int64, text string) {
	if err := s.notifier.SendText(ctx, chatID, text); err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
