// Package scheduler runs time-based jobs: the daily category diff and
// one-shot deferred rechecks.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler manages scheduled tasks for the application.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       zerolog.Logger
}

// New creates a new scheduler instance.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// DailyAt registers a job running every day at the given "HH:MM" time.
func (s *Scheduler) DailyAt(at, name string, fn func()) {
	if _, err := s.scheduler.Every(1).Day().At(at).Do(fn); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("failed to schedule daily job")
		return
	}
	s.log.Info().Str("job", name).Str("at", at).Msg("daily job scheduled")
}

// At registers a one-shot job fired at the given moment. The job runs even
// if it has become moot by then; it is expected to notice that itself.
func (s *Scheduler) At(t time.Time, fn func()) {
	if _, err := s.scheduler.Every(1).Day().StartAt(t).LimitRunsTo(1).Do(fn); err != nil {
		s.log.Error().Err(err).Time("at", t).Msg("failed to schedule one-shot job")
	}
}

// Start begins running all scheduled tasks in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
