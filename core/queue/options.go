package queue

import (
	"fmt"
	"time"
)

// Bounds for JobOptions.Attempts.
const (
	MinAttempts = 1
	MaxAttempts = 10
)

// JobOptions are producer-supplied execution settings for a single job.
type JobOptions struct {
	Attempts         int           `json:"attempts"`
	Backoff          Backoff       `json:"backoff"`
	RemoveOnComplete bool          `json:"remove_on_complete"`
	RemoveOnFail     bool          `json:"remove_on_fail"`
	Timeout          time.Duration `json:"timeout,omitempty"`
}

// DefaultJobOptions returns the defaults applied before any JobOption.
// Completed jobs are removed to bound storage; failed jobs are kept for inspection.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		Attempts:         3,
		Backoff:          Backoff{Type: BackoffExponential, Delay: 2 * time.Second},
		RemoveOnComplete: true,
		RemoveOnFail:     false,
	}
}

// Validate checks the options against the allowed ranges.
func (o JobOptions) Validate() error {
	if o.Attempts < MinAttempts || o.Attempts > MaxAttempts {
		return fmt.Errorf("%w: attempts must be between %d and %d, got %d",
			ErrInvalidOptions, MinAttempts, MaxAttempts, o.Attempts)
	}
	if !o.Backoff.valid() {
		return fmt.Errorf("%w: backoff %q with delay %s", ErrInvalidOptions, o.Backoff.Type, o.Backoff.Delay)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidOptions, o.Timeout)
	}
	return nil
}

// JobOption is a functional option for configuring a job at enqueue time.
type JobOption func(*JobOptions)

// WithAttempts sets the maximum number of executions for the job.
func WithAttempts(n int) JobOption {
	return func(o *JobOptions) {
		o.Attempts = n
	}
}

// WithBackoff sets the retry delay policy.
func WithBackoff(t BackoffType, delay time.Duration) JobOption {
	return func(o *JobOptions) {
		o.Backoff = Backoff{Type: t, Delay: delay}
	}
}

// WithRemoveOnComplete controls whether a completed job is deleted from the broker.
func WithRemoveOnComplete(remove bool) JobOption {
	return func(o *JobOptions) {
		o.RemoveOnComplete = remove
	}
}

// WithRemoveOnFail controls whether a terminally failed job is deleted from the broker.
func WithRemoveOnFail(remove bool) JobOption {
	return func(o *JobOptions) {
		o.RemoveOnFail = remove
	}
}

// WithTimeout bounds a single execution of the job.
func WithTimeout(d time.Duration) JobOption {
	return func(o *JobOptions) {
		o.Timeout = d
	}
}
