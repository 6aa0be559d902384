package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("nil metrics record nothing", func(t *testing.T) {
		t.Parallel()

		var m *Metrics
		assert.NotPanics(t, func() {
			m.jobEnqueued(QueueEmail, ModeLocal)
			m.jobCompleted(QueueEmail, ModeLocal, time.Second)
			m.jobFailed(QueueEmail, ModeLocal)
			m.jobRetried(QueueEmail)
			m.connectionFailed()
			m.modeChanged(ModeLocal)
		})
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()
		_, err := NewMetrics(reg)
		require.NoError(t, err)
		_, err = NewMetrics(reg)
		assert.Error(t, err)
	})

	t.Run("breaker and local jobs", func(t *testing.T) {
		t.Parallel()

		m, err := NewMetrics(prometheus.NewRegistry())
		require.NoError(t, err)

		connector := func(context.Context) (Broker, error) {
			return nil, errors.New("connection refused")
		}
		manager, err := NewManager(connector,
			WithMetrics(m),
			WithLocalDispatchDelay(0))
		require.NoError(t, err)
		t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

		assert.Zero(t, testutil.ToFloat64(m.localMode))

		require.NoError(t, manager.RegisterProcessor(context.Background(), QueueEmail, 1,
			func(context.Context, *Job) error { return nil }))
		job, err := manager.AddJob(context.Background(), QueueEmail, map[string]string{"to": "a@b.c"})
		require.NoError(t, err)
		require.Eventually(t, job.Done, time.Second, 5*time.Millisecond)

		assert.Equal(t, float64(3), testutil.ToFloat64(m.connFailed))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.localMode))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues(string(ModeLocal))))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.enqueued.WithLabelValues(string(QueueEmail), string(ModeLocal))))
		require.Eventually(t, func() bool {
			return testutil.ToFloat64(m.completed.WithLabelValues(string(QueueEmail), string(ModeLocal))) == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("distributed retries", func(t *testing.T) {
		t.Parallel()

		m, err := NewMetrics(nil)
		require.NoError(t, err)

		b, err := NewDistributedBackend(QueueEmail, NewMemoryBroker(),
			WithPollInterval(5*time.Millisecond),
			WithDistributedMetrics(m))
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })

		require.NoError(t, b.Consume(1, func(context.Context, *Job) error {
			return errors.New("boom")
		}))

		opts := DefaultJobOptions()
		opts.Attempts = 2
		opts.Backoff = Backoff{Type: BackoffFixed, Delay: time.Millisecond}
		require.NoError(t, b.Enqueue(context.Background(), NewJob(QueueEmail, []byte(`{}`), opts)))

		require.Eventually(t, func() bool {
			return testutil.ToFloat64(m.failed.WithLabelValues(string(QueueEmail), string(ModeDistributed))) == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.retried.WithLabelValues(string(QueueEmail))))
	})
}
