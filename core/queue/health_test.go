package queue_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/queue"
)

var errRefused = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func okProbe(context.Context) error { return nil }

func TestHealthMonitor_RecordFailure(t *testing.T) {
	t.Parallel()

	t.Run("trips exactly at the threshold", func(t *testing.T) {
		t.Parallel()

		h := queue.NewHealthMonitor(okProbe)
		assert.False(t, h.RecordFailure(errRefused))
		assert.False(t, h.RecordFailure(errRefused))
		assert.Equal(t, queue.ModeDistributed, h.Mode())

		assert.True(t, h.RecordFailure(errRefused))
		assert.Equal(t, queue.ModeLocal, h.Mode())

		assert.False(t, h.RecordFailure(errRefused), "already tripped")

		state := h.State()
		assert.Equal(t, 4, state.ConsecutiveFailures)
		assert.Equal(t, 3, state.MaxFailuresBeforeFallback)
		assert.Equal(t, errRefused.Error(), state.LastError)
	})

	t.Run("concurrent failures trip once", func(t *testing.T) {
		t.Parallel()

		h := queue.NewHealthMonitor(okProbe, queue.WithMaxFailures(5))
		var trips atomic.Int32
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if h.RecordFailure(errRefused) {
					trips.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), trips.Load())
		assert.Equal(t, queue.ModeLocal, h.Mode())
	})

	t.Run("success resets only in distributed mode", func(t *testing.T) {
		t.Parallel()

		h := queue.NewHealthMonitor(okProbe)
		h.RecordFailure(errRefused)
		h.RecordFailure(errRefused)
		h.RecordSuccess()
		assert.Zero(t, h.State().ConsecutiveFailures)

		for range 3 {
			h.RecordFailure(errRefused)
		}
		h.RecordSuccess()
		assert.Equal(t, queue.ModeLocal, h.Mode())
		assert.Equal(t, 3, h.State().ConsecutiveFailures)
	})
}

func TestHealthMonitor_LogThrottle(t *testing.T) {
	t.Parallel()

	countFailureLogs := func(t *testing.T, opts ...queue.HealthOption) int {
		t.Helper()
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))
		h := queue.NewHealthMonitor(okProbe, append(opts,
			queue.WithMaxFailures(100),
			queue.WithHealthLogger(log))...)
		for range 5 {
			h.RecordFailure(errRefused)
		}
		return strings.Count(buf.String(), "queue broker connection failure")
	}

	t.Run("zero interval logs every failure", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 5, countFailureLogs(t, queue.WithLogThrottle(0)))
	})

	t.Run("interval suppresses repeats", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1, countFailureLogs(t, queue.WithLogThrottle(time.Hour)))
	})

	t.Run("default interval suppresses repeats", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1, countFailureLogs(t))
	})
}

func TestHealthMonitor_Probe(t *testing.T) {
	t.Parallel()

	t.Run("no-op in distributed mode", func(t *testing.T) {
		t.Parallel()

		var probes atomic.Int32
		h := queue.NewHealthMonitor(func(context.Context) error {
			probes.Add(1)
			return nil
		})
		require.NoError(t, h.Probe(context.Background()))
		assert.Zero(t, probes.Load())
		assert.True(t, h.State().LastProbeAt.IsZero())
	})

	t.Run("failed probe stays local", func(t *testing.T) {
		t.Parallel()

		h := queue.NewHealthMonitor(func(context.Context) error { return errRefused }, queue.WithMaxFailures(1))
		h.RecordFailure(errRefused)

		assert.ErrorIs(t, h.Probe(context.Background()), errRefused)
		assert.Equal(t, queue.ModeLocal, h.Mode())
		assert.False(t, h.State().LastProbeAt.IsZero())
	})

	t.Run("successful probe recovers", func(t *testing.T) {
		t.Parallel()

		h := queue.NewHealthMonitor(okProbe, queue.WithMaxFailures(2))
		transitions := h.Subscribe()

		h.RecordFailure(errRefused)
		require.True(t, h.RecordFailure(errRefused))

		down := <-transitions
		assert.Equal(t, queue.ModeDistributed, down.From)
		assert.Equal(t, queue.ModeLocal, down.To)
		assert.Equal(t, 2, down.Failures)
		assert.ErrorIs(t, down.Err, errRefused)

		require.NoError(t, h.Probe(context.Background()))
		up := <-transitions
		assert.Equal(t, queue.ModeLocal, up.From)
		assert.Equal(t, queue.ModeDistributed, up.To)

		state := h.State()
		assert.Equal(t, queue.ModeDistributed, state.Mode)
		assert.Zero(t, state.ConsecutiveFailures)
		assert.Empty(t, state.LastError)
	})

	t.Run("run probes on the interval", func(t *testing.T) {
		t.Parallel()

		var healthy atomic.Bool
		h := queue.NewHealthMonitor(func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errRefused
		}, queue.WithMaxFailures(1), queue.WithProbeInterval(5*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go h.Run(ctx)

		h.RecordFailure(errRefused)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, queue.ModeLocal, h.Mode())

		healthy.Store(true)
		require.Eventually(t, func() bool {
			return h.Mode() == queue.ModeDistributed
		}, time.Second, 5*time.Millisecond)
	})
}
