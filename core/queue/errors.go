package queue

import (
	"errors"
	"fmt"
)

// Configuration and usage errors.
var (
	ErrConnectorNil      = errors.New("queue: broker connector is nil")
	ErrBrokerNil         = errors.New("queue: broker is nil")
	ErrHandlerNil        = errors.New("queue: handler is nil")
	ErrUnknownQueue      = errors.New("queue: unknown queue name")
	ErrInvalidOptions    = errors.New("queue: invalid job options")
	ErrInvalidPayload    = errors.New("queue: invalid job payload")
	ErrInvalidStatus     = errors.New("queue: invalid job status")
	ErrInvalidConcurrent = errors.New("queue: concurrency must be at least 1")
	ErrManagerClosed     = errors.New("queue: manager is shut down")
	ErrBackendClosed     = errors.New("queue: backend is closed")
)

// Broker and lookup errors.
var (
	ErrBrokerUnavailable = errors.New("queue: broker unavailable")
	ErrNoJob             = errors.New("queue: no job ready")
	ErrJobNotFound       = errors.New("queue: job not found")
)

// Execution errors.
var (
	ErrJobTimeout   = errors.New("queue: job timed out")
	ErrHandlerPanic = errors.New("queue: handler panicked")
	ErrNoProcessor  = errors.New("queue: no processor registered")
)

// Health errors.
var (
	ErrHealthcheckFailed = errors.New("queue: healthcheck failed")
	ErrFallbackMode      = errors.New("queue: running in local fallback mode")
)

// PermanentError marks a failure that must not be retried, such as a malformed
// payload. Retrying it would only burn the job's retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so backends fail the job without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// brokerError wraps a broker failure as connection-class.
func brokerError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrBrokerUnavailable, op, err)
}
