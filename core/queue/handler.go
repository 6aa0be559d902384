package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type (
	// HandlerFunc processes a single job. Returning an error fails the current
	// execution; wrap it with Permanent to skip the remaining attempts.
	HandlerFunc func(ctx context.Context, job *Job) error

	// TypedHandlerFunc is a type-safe handler that receives the decoded payload.
	TypedHandlerFunc[T any] func(ctx context.Context, job *Job, payload T) error
)

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// Typed adapts a TypedHandlerFunc into a HandlerFunc. The payload is decoded
// and validated using `validate` struct tags; decoding or validation failures
// are permanent because retrying a malformed payload cannot succeed.
func Typed[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx context.Context, job *Job) error {
		var payload T
		if err := job.Decode(&payload); err != nil {
			return Permanent(err)
		}
		if err := ValidatePayload(payload); err != nil {
			return Permanent(err)
		}
		return handler(ctx, job, payload)
	}
}

// ValidatePayload runs struct tag validation on v.
// Non-struct values are accepted as is.
func ValidatePayload(v any) error {
	err := payloadValidator.Struct(v)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
}

// execute runs handler for job and classifies the outcome.
// The execution context is isolated from the caller so backend shutdown does
// not interrupt a running job; only the job timeout bounds it.
func execute(job *Job, handler HandlerFunc) error {
	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	timeout := job.Options.Timeout
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
		}()
		done <- handler(ctx, job)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		// The handler ignored its context; it keeps running but the job fails.
		err = ctx.Err()
	}

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError(timeout, err)
	}
	return err
}

func timeoutError(timeout time.Duration, cause error) error {
	if errors.Is(cause, ErrJobTimeout) {
		return cause
	}
	return fmt.Errorf("%w after %s: %w", ErrJobTimeout, timeout, cause)
}
