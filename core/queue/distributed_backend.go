package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dealqueue/core/logger"
)

// DistributedBackend delegates storage and scheduling to a Broker and runs a
// pool of polling workers for the registered handler. Retries and backoff are
// applied here, on top of the broker's delayed scheduling.
type DistributedBackend struct {
	queue  QueueName
	broker Broker

	pollInterval    time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	metrics         *Metrics
	onError         func(error)
	onSuccess       func()

	mu      sync.RWMutex
	handler HandlerFunc
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// DistributedOption configures a DistributedBackend.
type DistributedOption func(*DistributedBackend)

// WithPollInterval sets how often idle workers ask the broker for a job.
func WithPollInterval(d time.Duration) DistributedOption {
	return func(b *DistributedBackend) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for running jobs.
func WithShutdownTimeout(d time.Duration) DistributedOption {
	return func(b *DistributedBackend) {
		if d > 0 {
			b.shutdownTimeout = d
		}
	}
}

// WithDistributedLogger sets the logger.
func WithDistributedLogger(logger *slog.Logger) DistributedOption {
	return func(b *DistributedBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDistributedMetrics attaches a metrics collector.
func WithDistributedMetrics(m *Metrics) DistributedOption {
	return func(b *DistributedBackend) {
		b.metrics = m
	}
}

// WithBrokerErrorReporter receives runtime broker failures, typically the
// health monitor's failure counter.
func WithBrokerErrorReporter(fn func(error)) DistributedOption {
	return func(b *DistributedBackend) {
		if fn != nil {
			b.onError = fn
		}
	}
}

// WithBrokerSuccessReporter is called after successful broker round trips.
func WithBrokerSuccessReporter(fn func()) DistributedOption {
	return func(b *DistributedBackend) {
		if fn != nil {
			b.onSuccess = fn
		}
	}
}

// NewDistributedBackend wraps an open broker connection for the queue.
func NewDistributedBackend(queue QueueName, broker Broker, opts ...DistributedOption) (*DistributedBackend, error) {
	if broker == nil {
		return nil, ErrBrokerNil
	}

	b := &DistributedBackend{
		queue:           queue,
		broker:          broker,
		pollInterval:    time.Second,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.DiscardHandler),
		onError:         func(error) {},
		onSuccess:       func() {},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b, nil
}

// Mode implements Backend.
func (b *DistributedBackend) Mode() Mode {
	return ModeDistributed
}

// Enqueue pushes the job to the broker. Broker failures come back wrapped in
// ErrBrokerUnavailable; the caller decides how to degrade.
func (b *DistributedBackend) Enqueue(ctx context.Context, job *Job) error {
	if b.isClosed() {
		return ErrBackendClosed
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Queue = b.queue

	if err := b.broker.Push(ctx, job); err != nil {
		return brokerError("push", err)
	}
	b.onSuccess()
	b.metrics.jobEnqueued(b.queue, ModeDistributed)
	return nil
}

// Consume starts the worker pool on the first call. Later calls replace the
// handler; the pool size stays as first configured.
func (b *DistributedBackend) Consume(concurrency int, handler HandlerFunc) error {
	if handler == nil {
		return ErrHandlerNil
	}
	if concurrency < 1 {
		return ErrInvalidConcurrent
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}

	b.handler = handler
	if b.started {
		return nil
	}
	b.started = true

	for i := 0; i < concurrency; i++ {
		b.wg.Add(1)
		go b.work()
	}

	b.logger.Info("queue consumer started",
		logger.Queue(b.queue.String()),
		slog.Int("concurrency", concurrency))
	return nil
}

// Jobs lists jobs known to the broker.
func (b *DistributedBackend) Jobs(ctx context.Context, status JobStatus) ([]*Job, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	jobs, err := b.broker.List(ctx, b.queue, status)
	if err != nil {
		return nil, brokerError("list", err)
	}
	return jobs, nil
}

// Job loads one job from the broker.
func (b *DistributedBackend) Job(ctx context.Context, id string) (*Job, error) {
	job, err := b.broker.Get(ctx, b.queue, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, brokerError("get", err)
	}
	return job, nil
}

// Close stops the workers, waits for running jobs up to the shutdown timeout
// and closes the broker connection. Queued jobs remain in the broker.
func (b *DistributedBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-time.After(b.shutdownTimeout):
		b.logger.Warn("queue consumer shutdown timeout exceeded - some jobs may be abandoned",
			logger.Queue(b.queue.String()),
			slog.Duration("timeout", b.shutdownTimeout))
		waitErr = fmt.Errorf("shutdown timeout exceeded after %s", b.shutdownTimeout)
	}

	return errors.Join(waitErr, b.broker.Close())
}

func (b *DistributedBackend) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *DistributedBackend) currentHandler() HandlerFunc {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler
}

// work is a single consumer loop. It polls while idle and drains jobs
// back-to-back while the broker has work.
func (b *DistributedBackend) work() {
	defer b.wg.Done()

	for {
		if b.ctx.Err() != nil {
			return
		}

		job, err := b.broker.Reserve(b.ctx, b.queue)
		switch {
		case err == nil:
			b.onSuccess()
			b.process(job)
			continue
		case errors.Is(err, ErrNoJob):
			b.onSuccess()
		case b.ctx.Err() != nil:
			return
		default:
			b.onError(brokerError("reserve", err))
		}

		select {
		case <-b.ctx.Done():
			return
		case <-time.After(b.pollInterval):
		}
	}
}

// process executes one reserved job and records the outcome in the broker.
func (b *DistributedBackend) process(job *Job) {
	start := time.Now()
	job.markActive(start)
	job.setProgressHook(b.persistProgress)
	b.update(job)

	handler := b.currentHandler()
	err := execute(job, handler)
	job.setProgressHook(nil)
	duration := time.Since(start)

	if err == nil {
		job.markCompleted(time.Now())
		b.metrics.jobCompleted(b.queue, ModeDistributed, duration)
		if job.Options.RemoveOnComplete {
			b.remove(job)
		} else {
			b.update(job)
		}
		b.logger.Info("job completed",
			logger.Queue(b.queue.String()),
			logger.JobID(job.ID),
			logger.Attempt(job.AttemptsMade(), job.Options.Attempts),
			logger.Duration(duration))
		return
	}

	attempt := job.AttemptsMade()
	if !IsPermanent(err) && attempt < job.Options.Attempts {
		next := time.Now().Add(job.Options.Backoff.DelayFor(attempt + 1))
		job.markDelayed(err, next)
		if pushErr := b.broker.Push(context.Background(), job); pushErr != nil {
			b.onError(brokerError("retry", pushErr))
			b.logger.Error("job failed, retry could not be scheduled",
				logger.Queue(b.queue.String()),
				logger.JobID(job.ID),
				logger.Attempt(attempt, job.Options.Attempts),
				logger.Error(err),
				slog.Any("push_error", pushErr))
			return
		}
		b.metrics.jobRetried(b.queue)
		b.logger.Warn("job failed, retry scheduled",
			logger.Queue(b.queue.String()),
			logger.JobID(job.ID),
			logger.Attempt(attempt, job.Options.Attempts),
			slog.Time("next_run_at", next),
			logger.Error(err))
		return
	}

	job.markFailed(err, time.Now())
	b.metrics.jobFailed(b.queue, ModeDistributed)
	if job.Options.RemoveOnFail {
		b.remove(job)
	} else {
		b.update(job)
	}
	b.logger.Error("job failed",
		logger.Queue(b.queue.String()),
		logger.JobID(job.ID),
		logger.Attempt(attempt, job.Options.Attempts),
		slog.Bool("permanent", IsPermanent(err)),
		logger.Duration(duration),
		logger.Error(err))
}

func (b *DistributedBackend) persistProgress(job *Job) {
	b.logger.Debug("job progress",
		logger.Queue(b.queue.String()),
		logger.JobID(job.ID),
		logger.Progress(job.Progress()))
	b.update(job)
}

func (b *DistributedBackend) update(job *Job) {
	if err := b.broker.Update(context.Background(), job); err != nil {
		b.onError(brokerError("update", err))
	}
}

func (b *DistributedBackend) remove(job *Job) {
	if err := b.broker.Remove(context.Background(), b.queue, job.ID); err != nil {
		b.onError(brokerError("remove", err))
	}
}
