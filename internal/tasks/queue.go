// Package tasks runs background work off the chat flow: stat calculation
// over finished crawl jobs, quota notices, and the daily category diff.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrRetryLater marks a transient condition: the task goes back on the
// queue after a delay instead of failing.
var ErrRetryLater = errors.New("tasks: retry later")

// Task is one unit of background work. Run is retried while it returns
// ErrRetryLater, up to MaxAttempts; any other error fails the task.
type Task struct {
	Name        string
	Run         func(ctx context.Context) error
	MaxAttempts int
	RetryDelay  time.Duration
	// OnExhausted fires once when the last retryable attempt fails.
	OnExhausted func(ctx context.Context)

	attempt int
}

// Queue is a fixed-size worker pool over a buffered channel.
type Queue struct {
	ch      chan *Task
	workers int
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	log     zerolog.Logger
}

// NewQueue creates a queue with the given worker count and buffer size.
func NewQueue(workers, buffer int, log zerolog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	return &Queue{
		ch:      make(chan *Task, buffer),
		workers: workers,
		log:     log.With().Str("component", "tasks").Logger(),
	}
}

// Start launches the workers. They run until Stop or ctx cancellation.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.log.Info().Int("workers", q.workers).Msg("task queue started")
}

// Stop cancels the workers and waits for in-flight tasks to finish.
// Queued tasks that no worker picked up are dropped.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Enqueue puts a task on the queue. Blocks when the buffer is full.
func (q *Queue) Enqueue(t *Task) {
	q.ch <- t
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.ch:
			q.process(ctx, t)
		}
	}
}

// process runs one attempt. A worker never dies on a task error.
func (q *Queue) process(ctx context.Context, t *Task) {
	t.attempt++

	err := t.Run(ctx)
	if err == nil {
		return
	}

	if !errors.Is(err, ErrRetryLater) {
		q.log.Error().Err(err).Str("task", t.Name).Int("attempt", t.attempt).Msg("task failed")
		return
	}

	maxAttempts := t.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if t.attempt >= maxAttempts {
		q.log.Error().Str("task", t.Name).Int("attempts", t.attempt).Msg("task retries exhausted")
		if t.OnExhausted != nil {
			t.OnExhausted(ctx)
		}
		return
	}

	q.log.Warn().Str("task", t.Name).Int("attempt", t.attempt).Dur("delay", t.RetryDelay).Msg("task not ready, retrying")
	time.AfterFunc(t.RetryDelay, func() {
		select {
		case q.ch <- t:
		case <-ctx.Done():
		}
	})
}
