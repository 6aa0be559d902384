package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/pkg/async"
)

func TestExec(t *testing.T) {
	t.Parallel()

	t.Run("returns the function error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		future := async.Exec(context.Background(), 42, func(_ context.Context, n int) error {
			if n == 42 {
				return errBoom
			}
			return nil
		})
		assert.ErrorIs(t, future.Await(), errBoom)
		assert.True(t, future.IsComplete())
	})

	t.Run("cancelled context skips the function", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		future := async.Exec(ctx, "x", func(context.Context, string) error {
			called.Store(true)
			return nil
		})
		assert.ErrorIs(t, future.Await(), context.Canceled)
		assert.False(t, called.Load())
	})

	t.Run("await with timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		future := async.Exec(context.Background(), struct{}{}, func(context.Context, struct{}) error {
			<-release
			return nil
		})

		assert.ErrorIs(t, future.AwaitWithTimeout(10*time.Millisecond), async.ErrTimeout)
		assert.False(t, future.IsComplete())

		close(release)
		require.NoError(t, future.AwaitWithTimeout(time.Second))
	})
}

func TestExecAll(t *testing.T) {
	t.Parallel()

	errEmail := errors.New("email down")
	errPush := errors.New("push down")

	var ran atomic.Int32
	send := func(err error) func(context.Context, error) error {
		return func(context.Context, error) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return err
		}
	}

	ctx := context.Background()
	err := async.ExecAll(
		async.Exec(ctx, errEmail, send(errEmail)),
		async.Exec(ctx, error(nil), send(nil)),
		async.Exec(ctx, errPush, send(errPush)),
	)

	assert.ErrorIs(t, err, errEmail)
	assert.ErrorIs(t, err, errPush)
	assert.Equal(t, int32(3), ran.Load())
	assert.NoError(t, async.ExecAll())
}
