package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/queue"
)

func newTestManager(t *testing.T, broker *queue.MemoryBroker, opts ...queue.ManagerOption) *queue.Manager {
	t.Helper()
	opts = append([]queue.ManagerOption{
		queue.WithWorkerPollInterval(5 * time.Millisecond),
		queue.WithLocalDispatchDelay(time.Millisecond),
		queue.WithBackendShutdownTimeout(time.Second),
	}, opts...)
	m, err := queue.NewManager(queue.MemoryConnector(broker), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func noop(context.Context, *queue.Job) error { return nil }

func TestWaitJob(t *testing.T) {
	t.Parallel()

	t.Run("kept job returns its final state", func(t *testing.T) {
		t.Parallel()

		m := newTestManager(t, queue.NewMemoryBroker())
		require.NoError(t, m.RegisterProcessor(context.Background(), queue.QueueEmail, 1, noop))

		job, err := m.AddJob(context.Background(), queue.QueueEmail, map[string]string{"to": "a@example.com"},
			queue.WithRemoveOnComplete(false))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		res, err := waitJob(ctx, m, job, 5*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, res.Removed)
		assert.Equal(t, queue.StatusCompleted, res.Job.Status())
	})

	t.Run("removed job is reported as removed", func(t *testing.T) {
		t.Parallel()

		m := newTestManager(t, queue.NewMemoryBroker())
		require.NoError(t, m.RegisterProcessor(context.Background(), queue.QueueEmail, 1, noop))

		job, err := m.AddJob(context.Background(), queue.QueueEmail, map[string]string{"to": "a@example.com"})
		require.NoError(t, err)
		require.True(t, job.Options.RemoveOnComplete)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		res, err := waitJob(ctx, m, job, 5*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, res.Removed)
	})

	t.Run("fallback during the wait is an error", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		m := newTestManager(t, broker, queue.WithHealthOptions(queue.WithMaxFailures(1)))

		job, err := m.AddJob(context.Background(), queue.QueueEmail, map[string]string{"to": "a@example.com"})
		require.NoError(t, err)
		require.False(t, job.Local())

		broker.FailWith(errors.New("connection refused"))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err = waitJob(ctx, m, job, 5*time.Millisecond)
		assert.ErrorIs(t, err, errJobUnobservable)
	})

	t.Run("local job is followed through its handle", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		broker.FailWith(errors.New("connection refused"))
		m := newTestManager(t, broker)
		require.NoError(t, m.RegisterProcessor(context.Background(), queue.QueueEmail, 1, noop))

		job, err := m.AddJob(context.Background(), queue.QueueEmail, map[string]string{"to": "a@example.com"})
		require.NoError(t, err)
		require.True(t, job.Local())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		res, err := waitJob(ctx, m, job, 5*time.Millisecond)
		require.NoError(t, err)
		assert.Same(t, job, res.Job)
		assert.Equal(t, queue.StatusCompleted, res.Job.Status())
	})

	t.Run("wait timeout", func(t *testing.T) {
		t.Parallel()

		m := newTestManager(t, queue.NewMemoryBroker())
		job, err := m.AddJob(context.Background(), queue.QueueEmail, map[string]string{"to": "a@example.com"})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = waitJob(ctx, m, job, 5*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
