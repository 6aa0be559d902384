package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dealqueue/core/logger"
)

// LocalBackend executes jobs in-process. It keeps no persistent state, is not
// visible to other processes, and does not retry failed jobs.
type LocalBackend struct {
	queue         QueueName
	dispatchDelay time.Duration
	logger        *slog.Logger
	metrics       *Metrics

	mu       sync.RWMutex
	handlers []HandlerFunc
	sem      chan struct{}

	closed  atomic.Bool
	pending sync.WaitGroup
}

// LocalOption configures a LocalBackend.
type LocalOption func(*LocalBackend)

// WithDispatchDelay sets the deferral between Enqueue and execution.
func WithDispatchDelay(d time.Duration) LocalOption {
	return func(b *LocalBackend) {
		if d >= 0 {
			b.dispatchDelay = d
		}
	}
}

// WithLocalLogger sets the logger for execution failures.
func WithLocalLogger(logger *slog.Logger) LocalOption {
	return func(b *LocalBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithLocalMetrics attaches a metrics collector.
func WithLocalMetrics(m *Metrics) LocalOption {
	return func(b *LocalBackend) {
		b.metrics = m
	}
}

// NewLocalBackend creates a fallback backend for the queue.
func NewLocalBackend(queue QueueName, opts ...LocalOption) *LocalBackend {
	b := &LocalBackend{
		queue:         queue,
		dispatchDelay: 10 * time.Millisecond,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mode implements Backend.
func (b *LocalBackend) Mode() Mode {
	return ModeLocal
}

// Enqueue schedules the job on a deferred callback and returns immediately.
func (b *LocalBackend) Enqueue(_ context.Context, job *Job) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}

	if job.ID == "" {
		job.ID = "local-" + uuid.NewString()
	}
	job.Queue = b.queue
	job.markLocal()
	b.metrics.jobEnqueued(b.queue, ModeLocal)

	b.pending.Add(1)
	time.AfterFunc(b.dispatchDelay, func() {
		defer b.pending.Done()
		b.run(job)
	})
	return nil
}

// Consume appends the handler. Handlers accumulate and all of them run for
// every job, in registration order.
func (b *LocalBackend) Consume(concurrency int, handler HandlerFunc) error {
	if handler == nil {
		return ErrHandlerNil
	}
	if concurrency < 1 {
		return ErrInvalidConcurrent
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sem == nil {
		b.sem = make(chan struct{}, concurrency)
	}
	b.handlers = append(b.handlers, handler)
	return nil
}

// Jobs returns nothing: the fallback keeps no job list.
func (b *LocalBackend) Jobs(_ context.Context, status JobStatus) ([]*Job, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return []*Job{}, nil
}

// Job always reports ErrJobNotFound: the fallback keeps no job index.
func (b *LocalBackend) Job(context.Context, string) (*Job, error) {
	return nil, ErrJobNotFound
}

// Close drops registered handlers. Callbacks that fire afterwards are no-ops.
func (b *LocalBackend) Close() error {
	b.closed.Store(true)

	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
	return nil
}

// HandlerCount returns the number of registered handlers.
func (b *LocalBackend) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Wait blocks until every scheduled callback has returned or ctx is done.
func (b *LocalBackend) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBackend) run(job *Job) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers...)
	sem := b.sem
	b.mu.RUnlock()

	if len(handlers) == 0 {
		job.markFailed(ErrNoProcessor, time.Now())
		b.metrics.jobFailed(b.queue, ModeLocal)
		b.logger.Warn("no processor registered for local job",
			logger.Queue(b.queue.String()),
			logger.JobID(job.ID))
		return
	}

	sem <- struct{}{}
	defer func() { <-sem }()

	start := time.Now()
	job.markActive(start)

	for _, h := range handlers {
		if err := execute(job, h); err != nil {
			job.markFailed(err, time.Now())
			b.metrics.jobFailed(b.queue, ModeLocal)
			b.logger.Error("local job failed",
				logger.Queue(b.queue.String()),
				logger.JobID(job.ID),
				logger.Duration(time.Since(start)),
				logger.Error(err))
			return
		}
	}

	job.markCompleted(time.Now())
	b.metrics.jobCompleted(b.queue, ModeLocal, time.Since(start))
	b.logger.Debug("local job completed",
		logger.Queue(b.queue.String()),
		logger.JobID(job.ID),
		logger.Duration(time.Since(start)))
}
