package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestQueue_RunsTasks(t *testing.T) {
	q := NewQueue(2, 16, zerolog.Nop())
	q.Start(context.Background())
	defer q.Stop()

	var done int32
	for i := 0; i < 5; i++ {
		q.Enqueue(&Task{
			Name: "noop",
			Run: func(ctx context.Context) error {
				atomic.AddInt32(&done, 1)
				return nil
			},
		})
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&done) == 5 })
}

func TestQueue_WorkerSurvivesFailure(t *testing.T) {
	q := NewQueue(1, 16, zerolog.Nop())
	q.Start(context.Background())
	defer q.Stop()

	var done int32
	q.Enqueue(&Task{
		Name: "broken",
		Run: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})
	q.Enqueue(&Task{
		Name: "after",
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		},
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&done) == 1 })
}

func TestQueue_RetriesUntilReady(t *testing.T) {
	q := NewQueue(1, 16, zerolog.Nop())
	q.Start(context.Background())
	defer q.Stop()

	var attempts int32
	var done int32
	q.Enqueue(&Task{
		Name:        "flaky",
		MaxAttempts: 6,
		RetryDelay:  5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return fmt.Errorf("%w: not yet", ErrRetryLater)
			}
			atomic.AddInt32(&done, 1)
			return nil
		},
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&done) == 1 })
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestQueue_ExhaustionFiresCallback(t *testing.T) {
	q := NewQueue(1, 16, zerolog.Nop())
	q.Start(context.Background())
	defer q.Stop()

	var attempts int32
	var exhausted int32
	q.Enqueue(&Task{
		Name:        "never-ready",
		MaxAttempts: 3,
		RetryDelay:  5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return ErrRetryLater
		},
		OnExhausted: func(ctx context.Context) {
			atomic.AddInt32(&exhausted, 1)
		},
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&exhausted) == 1 })
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	// No further retries after exhaustion.
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts after exhaustion = %d, want 3", got)
	}
}

func TestQueue_PermanentErrorSkipsCallback(t *testing.T) {
	q := NewQueue(1, 16, zerolog.Nop())
	q.Start(context.Background())
	defer q.Stop()

	var exhausted int32
	var done int32
	q.Enqueue(&Task{
		Name:        "fatal",
		MaxAttempts: 6,
		RetryDelay:  5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return errors.New("bad data")
		},
		OnExhausted: func(ctx context.Context) {
			atomic.AddInt32(&exhausted, 1)
		},
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&done) == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&done); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if atomic.LoadInt32(&exhausted) != 0 {
		t.Error("OnExhausted fired for a permanent error")
	}
}
