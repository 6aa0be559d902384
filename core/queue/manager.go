package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/dealqueue/core/logger"
)

// Manager is the single entry point for producers and consumers. It owns a
// registry of named queues and resolves each queue to a distributed or local
// backend according to the circuit breaker.
type Manager struct {
	connector Connector
	health    *HealthMonitor
	logger    *slog.Logger
	metrics   *Metrics

	dispatchDelay   time.Duration
	pollInterval    time.Duration
	shutdownTimeout time.Duration
	defaults        JobOptions
	healthOpts      []HealthOption

	mu     sync.Mutex
	queues map[QueueName]*managedQueue
	closed bool

	cancel  context.CancelFunc
	done    chan struct{}
	closing sync.WaitGroup
}

// managedQueue keeps a queue's registrations so it can be rebound to another backend.
type managedQueue struct {
	backend     Backend
	concurrency int
	handlers    []HandlerFunc
}

// NewManager creates a manager and starts its supervision loop.
// The connector opens a broker connection; it is called once per queue and
// by recovery probes.
func NewManager(connector Connector, opts ...ManagerOption) (*Manager, error) {
	if connector == nil {
		return nil, ErrConnectorNil
	}

	m := &Manager{
		connector:       connector,
		logger:          slog.New(slog.DiscardHandler),
		dispatchDelay:   10 * time.Millisecond,
		pollInterval:    time.Second,
		shutdownTimeout: 30 * time.Second,
		defaults:        DefaultJobOptions(),
		queues:          make(map[QueueName]*managedQueue),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	healthOpts := append([]HealthOption{
		WithHealthLogger(m.logger),
		WithHealthMetrics(m.metrics),
	}, m.healthOpts...)
	m.health = NewHealthMonitor(m.probe, healthOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.supervise(ctx, m.health.Subscribe())

	return m, nil
}

// NewManagerFromConfig creates a manager using configuration values.
// Additional options override config values.
func NewManagerFromConfig(cfg Config, connector Connector, opts ...ManagerOption) (*Manager, error) {
	managerOpts := append([]ManagerOption{
		WithLocalDispatchDelay(cfg.LocalDispatchDelay),
		WithWorkerPollInterval(cfg.PollInterval),
		WithBackendShutdownTimeout(cfg.ShutdownTimeout),
		WithHealthOptions(
			WithMaxFailures(cfg.MaxFailuresBeforeFallback),
			WithProbeInterval(cfg.ProbeInterval),
			WithLogThrottle(cfg.LogThrottleInterval),
		),
	}, opts...)

	return NewManager(connector, managerOpts...)
}

// Queue returns the backend bound to name, creating it if absent.
// Connection failures are never returned: they feed the circuit breaker and,
// once it trips, the queue is bound to a local backend instead. A done ctx is
// the caller's failure, not the broker's: its error is returned and nothing
// is bound.
func (m *Manager) Queue(ctx context.Context, name QueueName) (Backend, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if q, ok := m.queues[name]; ok {
		m.mu.Unlock()
		return q.backend, nil
	}
	m.mu.Unlock()

	for m.health.Mode() == ModeDistributed {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connect %s queue: %w", name, err)
		}

		broker, err := m.connector(ctx)
		if err == nil && broker == nil {
			err = ErrBrokerNil
		}
		if err == nil {
			m.health.RecordSuccess()
			return m.bind(name, m.newDistributed(name, broker))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("connect %s queue: %w", name, ctxErr)
		}

		if m.health.RecordFailure(brokerError("connect", err)) {
			break
		}
	}

	return m.bind(name, m.newLocal(name))
}

// AddJob validates the options, encodes the payload and enqueues a job.
// A job handle is returned even when the broker is down: after the breaker
// trips, the job is enqueued on the local fallback. Only validation errors,
// unknown queue names, a done ctx and a shut down manager are reported.
func (m *Manager) AddJob(ctx context.Context, name QueueName, payload any, opts ...JobOption) (*Job, error) {
	options := m.defaults
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	for {
		backend, err := m.Queue(ctx, name)
		if err != nil {
			return nil, err
		}

		job := NewJob(name, data, options)
		err = backend.Enqueue(ctx, job)
		switch {
		case err == nil:
			return job, nil
		case errors.Is(err, ErrBackendClosed):
			// Swapped by a concurrent fallback; resolve again.
			if m.isClosed() {
				return nil, ErrManagerClosed
			}
		case ctx.Err() != nil:
			return nil, fmt.Errorf("enqueue %s job: %w", name, ctx.Err())
		case errors.Is(err, ErrBrokerUnavailable):
			if m.health.RecordFailure(err) || m.health.Mode() == ModeLocal {
				m.fallback(name, backend)
			}
		default:
			return nil, err
		}
	}
}

// RegisterProcessor binds handler to the named queue. Concurrency is fixed by
// the first registration. A later handler replaces the current one on a
// distributed backend but accumulates on a local backend.
func (m *Manager) RegisterProcessor(ctx context.Context, name QueueName, concurrency int, handler HandlerFunc) error {
	if handler == nil {
		return ErrHandlerNil
	}
	if concurrency < 1 {
		return ErrInvalidConcurrent
	}
	if _, err := m.Queue(ctx, name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	q := m.queues[name]
	if q.concurrency == 0 {
		q.concurrency = concurrency
	}
	if q.backend.Mode() == ModeDistributed {
		q.handlers = []HandlerFunc{handler}
	} else {
		q.handlers = append(q.handlers, handler)
	}

	if err := q.backend.Consume(q.concurrency, handler); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "queue processor registered",
		logger.Queue(name.String()),
		logger.Mode(string(q.backend.Mode())),
		slog.Int("concurrency", q.concurrency),
		slog.Int("handlers", len(q.handlers)))
	return nil
}

// ListJobs returns the jobs of the named queue with the given status.
// Local backends keep no job list and return an empty slice.
func (m *Manager) ListJobs(ctx context.Context, name QueueName, status JobStatus) ([]*Job, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	backend, err := m.Queue(ctx, name)
	if err != nil {
		return nil, err
	}

	jobs, err := backend.Jobs(ctx, status)
	m.recordBrokerError(ctx, err)
	return jobs, err
}

// GetJob loads one job of the named queue. Local backends always return ErrJobNotFound.
func (m *Manager) GetJob(ctx context.Context, name QueueName, id string) (*Job, error) {
	backend, err := m.Queue(ctx, name)
	if err != nil {
		return nil, err
	}

	job, err := backend.Job(ctx, id)
	m.recordBrokerError(ctx, err)
	return job, err
}

// State returns a snapshot of the circuit breaker.
func (m *Manager) State() HealthState {
	return m.health.State()
}

// Mode returns the circuit breaker's current mode.
func (m *Manager) Mode() Mode {
	return m.health.Mode()
}

// Healthcheck reports an error while the manager is shut down or running in
// local fallback mode.
//
//	healthSrv.AddCheck("queue", manager.Healthcheck)
func (m *Manager) Healthcheck(ctx context.Context) error {
	if m.isClosed() {
		return errors.Join(ErrHealthcheckFailed, ErrManagerClosed)
	}

	state := m.health.State()
	if state.Mode == ModeLocal {
		if state.LastError != "" {
			return errors.Join(ErrHealthcheckFailed, ErrFallbackMode, errors.New(state.LastError))
		}
		return errors.Join(ErrHealthcheckFailed, ErrFallbackMode)
	}
	return nil
}

// Shutdown stops supervision, closes every backend and releases all
// registrations. It is idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	queues := m.queues
	m.queues = make(map[QueueName]*managedQueue)
	m.mu.Unlock()

	m.cancel()
	<-m.done

	var errs []error
	for name, q := range queues {
		if err := q.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s queue: %w", name, err))
		}
	}

	retired := make(chan struct{})
	go func() {
		m.closing.Wait()
		close(retired)
	}()
	select {
	case <-retired:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for retired backends: %w", ctx.Err()))
	}

	m.logger.InfoContext(ctx, "queue manager shut down", slog.Int("queues", len(queues)))
	return errors.Join(errs...)
}

// Run provides errgroup compatibility: it blocks until ctx is cancelled and
// then shuts the manager down.
func (m *Manager) Run(ctx context.Context) func() error {
	return func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// supervise runs recovery probes and moves open queues to local backends
// when the breaker trips.
func (m *Manager) supervise(ctx context.Context, transitions <-chan Transition) {
	defer close(m.done)

	probeDone := make(chan struct{})
	go func() {
		defer close(probeDone)
		m.health.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			<-probeDone
			return
		case t := <-transitions:
			if t.To == ModeLocal {
				m.fallbackAll()
			} else {
				m.logger.Info("queue broker recovered, new queues use the broker",
					slog.String("from", string(t.From)))
			}
		}
	}
}

func (m *Manager) fallbackAll() {
	m.mu.Lock()
	var open []QueueName
	backends := make(map[QueueName]Backend)
	for name, q := range m.queues {
		if q.backend.Mode() == ModeDistributed {
			open = append(open, name)
			backends[name] = q.backend
		}
	}
	m.mu.Unlock()

	for _, name := range open {
		m.fallback(name, backends[name])
	}
}

// fallback replaces old with a local backend carrying the queue's
// registrations. Jobs already in the broker stay there.
func (m *Manager) fallback(name QueueName, old Backend) {
	m.mu.Lock()
	q, ok := m.queues[name]
	if m.closed || !ok || q.backend != old || old.Mode() != ModeDistributed {
		m.mu.Unlock()
		return
	}

	local := m.newLocal(name)
	for _, h := range q.handlers {
		_ = local.Consume(q.concurrency, h)
	}
	q.backend = local
	m.closing.Add(1)
	m.mu.Unlock()

	m.logger.Warn("queue moved to local fallback",
		logger.Queue(name.String()),
		slog.Int("handlers", len(q.handlers)))

	// Closing waits for running jobs, which must not block producers.
	go func() {
		defer m.closing.Done()
		if err := old.Close(); err != nil {
			m.logger.Warn("failed to close distributed backend",
				logger.Queue(name.String()),
				logger.Error(err))
		}
	}()
}

// bind registers backend for name unless another caller won the race or the
// manager is closed.
func (m *Manager) bind(name QueueName, backend Backend) (Backend, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = backend.Close()
		return nil, ErrManagerClosed
	}
	if q, ok := m.queues[name]; ok {
		m.mu.Unlock()
		_ = backend.Close()
		return q.backend, nil
	}
	m.queues[name] = &managedQueue{backend: backend}
	m.mu.Unlock()

	m.logger.Info("queue bound",
		logger.Queue(name.String()),
		logger.Mode(string(backend.Mode())))
	return backend, nil
}

func (m *Manager) newLocal(name QueueName) Backend {
	return NewLocalBackend(name,
		WithDispatchDelay(m.dispatchDelay),
		WithLocalLogger(m.logger),
		WithLocalMetrics(m.metrics))
}

func (m *Manager) newDistributed(name QueueName, broker Broker) Backend {
	// NewDistributedBackend only fails on a nil broker.
	b, _ := NewDistributedBackend(name, broker,
		WithPollInterval(m.pollInterval),
		WithShutdownTimeout(m.shutdownTimeout),
		WithDistributedLogger(m.logger),
		WithDistributedMetrics(m.metrics),
		WithBrokerErrorReporter(func(err error) { m.health.RecordFailure(err) }),
		WithBrokerSuccessReporter(m.health.RecordSuccess))
	return b
}

// probe performs a throwaway connect, ping and close.
func (m *Manager) probe(ctx context.Context) error {
	broker, err := m.connector(ctx)
	if err != nil {
		return err
	}
	if broker == nil {
		return ErrBrokerNil
	}
	defer broker.Close()
	return broker.Ping(ctx)
}

// recordBrokerError feeds connection-class errors to the breaker unless they
// were caused by the caller's ctx.
func (m *Manager) recordBrokerError(ctx context.Context, err error) {
	if ctx.Err() == nil && errors.Is(err, ErrBrokerUnavailable) {
		m.health.RecordFailure(err)
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
