package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/queue"
)

func newLocalJob(t *testing.T, opts ...queue.JobOption) *queue.Job {
	t.Helper()
	options := queue.DefaultJobOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return queue.NewJob(queue.QueueEmail, json.RawMessage(`{"to":"user@example.com"}`), options)
}

func waitLocal(t *testing.T, b *queue.LocalBackend) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Wait(ctx))
}

func TestLocalBackend_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("runs the job after the dispatch delay", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail, queue.WithDispatchDelay(5*time.Millisecond))
		var calls atomic.Int32
		require.NoError(t, b.Consume(1, func(ctx context.Context, job *queue.Job) error {
			calls.Add(1)
			job.ReportProgress(50)
			return nil
		}))

		job := newLocalJob(t)
		require.NoError(t, b.Enqueue(context.Background(), job))
		assert.True(t, strings.HasPrefix(job.ID, "local-"), job.ID)
		assert.Equal(t, queue.ModeLocal, b.Mode())

		waitLocal(t, b)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, queue.StatusCompleted, job.Status())
		assert.Equal(t, 100, job.Progress())
		assert.Equal(t, 1, job.AttemptsMade())
		assert.NotNil(t, job.FinishedAt())
	})

	t.Run("failed jobs are not retried", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail, queue.WithDispatchDelay(0))
		var calls atomic.Int32
		require.NoError(t, b.Consume(1, func(context.Context, *queue.Job) error {
			calls.Add(1)
			return errors.New("smtp unavailable")
		}))

		job := newLocalJob(t, queue.WithAttempts(5))
		require.NoError(t, b.Enqueue(context.Background(), job))
		waitLocal(t, b)

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, queue.StatusFailed, job.Status())
		assert.Equal(t, "smtp unavailable", job.FailedReason())
	})

	t.Run("no processor fails the job", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail, queue.WithDispatchDelay(0))
		job := newLocalJob(t)
		require.NoError(t, b.Enqueue(context.Background(), job))
		waitLocal(t, b)

		assert.Equal(t, queue.StatusFailed, job.Status())
		assert.Equal(t, queue.ErrNoProcessor.Error(), job.FailedReason())
	})

	t.Run("keeps an existing id", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail)
		job := newLocalJob(t)
		job.ID = "custom"
		require.NoError(t, b.Enqueue(context.Background(), job))
		assert.Equal(t, "custom", job.ID)
		require.NoError(t, b.Close())
	})

	t.Run("closed backend rejects jobs", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail)
		require.NoError(t, b.Close())
		assert.ErrorIs(t, b.Enqueue(context.Background(), newLocalJob(t)), queue.ErrBackendClosed)
	})
}

func TestLocalBackend_Consume(t *testing.T) {
	t.Parallel()

	t.Run("handlers accumulate and run in order", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueNotifications, queue.WithDispatchDelay(0))
		var mu sync.Mutex
		var order []string
		record := func(name string) queue.HandlerFunc {
			return func(context.Context, *queue.Job) error {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil
			}
		}
		require.NoError(t, b.Consume(1, record("first")))
		require.NoError(t, b.Consume(4, record("second")))
		assert.Equal(t, 2, b.HandlerCount())

		job := newLocalJob(t)
		require.NoError(t, b.Enqueue(context.Background(), job))
		waitLocal(t, b)

		assert.Equal(t, []string{"first", "second"}, order)
		assert.Equal(t, queue.StatusCompleted, job.Status())
	})

	t.Run("concurrency is fixed by the first registration", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueDataImport, queue.WithDispatchDelay(0))
		var running, peak atomic.Int32
		require.NoError(t, b.Consume(1, func(context.Context, *queue.Job) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
		require.NoError(t, b.Consume(10, func(context.Context, *queue.Job) error { return nil }))

		for range 4 {
			require.NoError(t, b.Enqueue(context.Background(), newLocalJob(t)))
		}
		waitLocal(t, b)
		assert.Equal(t, int32(1), peak.Load())
	})

	t.Run("rejects invalid registrations", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail)
		assert.ErrorIs(t, b.Consume(1, nil), queue.ErrHandlerNil)
		assert.ErrorIs(t, b.Consume(0, func(context.Context, *queue.Job) error { return nil }), queue.ErrInvalidConcurrent)
	})
}

func TestLocalBackend_Execution(t *testing.T) {
	t.Parallel()

	t.Run("timeout fails the job", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueReportGeneration, queue.WithDispatchDelay(0))
		require.NoError(t, b.Consume(1, func(ctx context.Context, _ *queue.Job) error {
			<-ctx.Done()
			return ctx.Err()
		}))

		job := newLocalJob(t, queue.WithTimeout(20*time.Millisecond))
		require.NoError(t, b.Enqueue(context.Background(), job))
		waitLocal(t, b)

		assert.Equal(t, queue.StatusFailed, job.Status())
		assert.Contains(t, job.FailedReason(), "timed out")
	})

	t.Run("panic fails the job", func(t *testing.T) {
		t.Parallel()

		b := queue.NewLocalBackend(queue.QueueEmail, queue.WithDispatchDelay(0))
		require.NoError(t, b.Consume(1, func(context.Context, *queue.Job) error {
			panic("nil map")
		}))

		job := newLocalJob(t)
		require.NoError(t, b.Enqueue(context.Background(), job))
		waitLocal(t, b)

		assert.Equal(t, queue.StatusFailed, job.Status())
		assert.Contains(t, job.FailedReason(), "panicked")
	})

	t.Run("typed handler rejects invalid payload", func(t *testing.T) {
		t.Parallel()

		type payload struct {
			To string `json:"to" validate:"required,email"`
		}
		var called atomic.Bool
		b := queue.NewLocalBackend(queue.QueueEmail, queue.WithDispatchDelay(0))
		require.NoError(t, b.Consume(1, queue.Typed(func(context.Context, *queue.Job, payload) error {
			called.Store(true)
			return nil
		})))

		job := queue.NewJob(queue.QueueEmail, json.RawMessage(`{"to":"not-an-email"}`), queue.DefaultJobOptions())
		require.NoError(t, b.Enqueue(context.Background(), job))
		waitLocal(t, b)

		assert.False(t, called.Load())
		assert.Equal(t, queue.StatusFailed, job.Status())
	})
}

func TestLocalBackend_Lookup(t *testing.T) {
	t.Parallel()

	b := queue.NewLocalBackend(queue.QueueEmail)
	jobs, err := b.Jobs(context.Background(), queue.StatusCompleted)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	_, err = b.Jobs(context.Background(), "paused")
	assert.ErrorIs(t, err, queue.ErrInvalidStatus)

	_, err = b.Job(context.Background(), "local-1")
	assert.ErrorIs(t, err, queue.ErrJobNotFound)
}
