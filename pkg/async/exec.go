package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by AwaitWithTimeout when the function is still running.
var ErrTimeout = errors.New("async: timeout waiting for result")

// ExecFuture is the pending result of a function that only returns an error.
type ExecFuture struct {
	err  error
	done chan struct{}
}

// Await blocks until the function returns and yields its error.
func (f *ExecFuture) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits at most timeout for the function to return.
func (f *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// IsComplete reports whether the function has returned, without blocking.
func (f *ExecFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec runs fn(ctx, param) on its own goroutine. A context that is already
// done short-circuits fn and becomes the future's error.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	f := &ExecFuture{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.err = fn(ctx, param)
	}()

	return f
}

// ExecAll waits for every future and joins their errors.
// Unlike a fail-fast wait, a failing future never hides the others' results.
func ExecAll(futures ...*ExecFuture) error {
	errs := make([]error, 0, len(futures))
	for _, future := range futures {
		errs = append(errs, future.Await())
	}
	return errors.Join(errs...)
}
