package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/dealqueue/core/logger"
)

// HealthState is a snapshot of the circuit breaker.
type HealthState struct {
	Mode                      Mode
	ConsecutiveFailures       int
	MaxFailuresBeforeFallback int
	LastProbeAt               time.Time
	ProbeInterval             time.Duration
	LastError                 string
}

// Transition describes a mode change of the circuit breaker.
type Transition struct {
	From     Mode
	To       Mode
	Failures int
	Err      error
	At       time.Time
}

// ProbeFunc attempts a throwaway connection to the broker.
type ProbeFunc func(ctx context.Context) error

// HealthMonitor counts consecutive connection failures, trips to local mode at
// the threshold and probes for recovery. All state changes go through a single
// mutex, so concurrent failures trip the breaker exactly once.
type HealthMonitor struct {
	probe   ProbeFunc
	logger  *slog.Logger
	metrics *Metrics

	mu            sync.Mutex
	mode          Mode
	failures      int
	maxFailures   int
	lastProbeAt   time.Time
	probeInterval time.Duration
	lastErr       error
	subscribers   []chan Transition

	// Log throttles keep sustained outages from flooding the logs.
	failureLog    *rate.Sometimes
	probeLog      *rate.Sometimes
	transitionLog *rate.Sometimes
}

// HealthOption configures a HealthMonitor.
type HealthOption func(*HealthMonitor)

// WithMaxFailures sets the consecutive failure count that trips the breaker.
func WithMaxFailures(n int) HealthOption {
	return func(h *HealthMonitor) {
		if n > 0 {
			h.maxFailures = n
		}
	}
}

// WithProbeInterval sets how often recovery is probed while in local mode.
func WithProbeInterval(d time.Duration) HealthOption {
	return func(h *HealthMonitor) {
		if d > 0 {
			h.probeInterval = d
		}
	}
}

// WithLogThrottle sets the minimum interval between repeated log lines of the
// same kind. Zero disables throttling.
func WithLogThrottle(d time.Duration) HealthOption {
	return func(h *HealthMonitor) {
		if d >= 0 {
			h.failureLog = throttle(d)
			h.probeLog = throttle(d)
			h.transitionLog = throttle(d)
		}
	}
}

// throttle returns a limiter that lets one call through per interval.
// A zero rate.Sometimes runs only once, so zero maps to every call.
func throttle(d time.Duration) *rate.Sometimes {
	if d == 0 {
		return &rate.Sometimes{Every: 1}
	}
	return &rate.Sometimes{Interval: d}
}

// WithHealthLogger sets the logger.
func WithHealthLogger(logger *slog.Logger) HealthOption {
	return func(h *HealthMonitor) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHealthMetrics attaches a metrics collector.
func WithHealthMetrics(m *Metrics) HealthOption {
	return func(h *HealthMonitor) {
		h.metrics = m
	}
}

// NewHealthMonitor creates a monitor in distributed mode.
func NewHealthMonitor(probe ProbeFunc, opts ...HealthOption) *HealthMonitor {
	h := &HealthMonitor{
		probe:         probe,
		logger:        slog.New(slog.DiscardHandler),
		mode:          ModeDistributed,
		maxFailures:   3,
		probeInterval: time.Minute,
		failureLog:    throttle(30 * time.Second),
		probeLog:      throttle(30 * time.Second),
		transitionLog: throttle(30 * time.Second),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.metrics.setMode(ModeDistributed)
	return h
}

// State returns a snapshot of the breaker.
func (h *HealthMonitor) State() HealthState {
	h.mu.Lock()
	defer h.mu.Unlock()

	state := HealthState{
		Mode:                      h.mode,
		ConsecutiveFailures:       h.failures,
		MaxFailuresBeforeFallback: h.maxFailures,
		LastProbeAt:               h.lastProbeAt,
		ProbeInterval:             h.probeInterval,
	}
	if h.lastErr != nil {
		state.LastError = h.lastErr.Error()
	}
	return state
}

// Mode returns the current mode.
func (h *HealthMonitor) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// Subscribe returns a channel that receives every mode transition.
// Slow subscribers miss transitions rather than blocking the breaker.
func (h *HealthMonitor) Subscribe() <-chan Transition {
	ch := make(chan Transition, 8)

	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()

	return ch
}

// RecordFailure counts a connection-class failure. It returns true only for
// the call that moved the breaker from distributed to local.
func (h *HealthMonitor) RecordFailure(err error) bool {
	h.metrics.connectionFailed()

	h.mu.Lock()
	h.failures++
	h.lastErr = err
	failures := h.failures
	tripped := h.mode == ModeDistributed && h.failures >= h.maxFailures
	var t Transition
	if tripped {
		h.mode = ModeLocal
		t = Transition{From: ModeDistributed, To: ModeLocal, Failures: failures, Err: err, At: time.Now()}
	}
	h.mu.Unlock()

	h.failureLog.Do(func() {
		h.logger.Warn("queue broker connection failure",
			slog.Int("consecutive_failures", failures),
			slog.Int("max_failures", h.maxFailures),
			logger.Error(err))
	})

	if tripped {
		h.publish(t)
	}
	return tripped
}

// RecordSuccess resets the failure counter while in distributed mode.
// In local mode only a successful probe may reset it.
func (h *HealthMonitor) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode == ModeDistributed {
		h.failures = 0
	}
}

// Probe attempts a throwaway broker connection while in local mode.
// On success the counter resets and newly created queues use the broker again.
// It is a no-op in distributed mode.
func (h *HealthMonitor) Probe(ctx context.Context) error {
	h.mu.Lock()
	if h.mode != ModeLocal {
		h.mu.Unlock()
		return nil
	}
	h.lastProbeAt = time.Now()
	h.mu.Unlock()

	if err := h.probe(ctx); err != nil {
		h.mu.Lock()
		h.lastErr = err
		h.mu.Unlock()

		h.probeLog.Do(func() {
			h.logger.Warn("queue broker still unavailable",
				logger.Error(err))
		})
		return err
	}

	h.mu.Lock()
	h.failures = 0
	h.lastErr = nil
	recovered := h.mode == ModeLocal
	h.mode = ModeDistributed
	h.mu.Unlock()

	if recovered {
		h.publish(Transition{From: ModeLocal, To: ModeDistributed, At: time.Now()})
	}
	return nil
}

// Run probes for recovery every probe interval until ctx is done.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = h.Probe(ctx)
		}
	}
}

func (h *HealthMonitor) publish(t Transition) {
	h.metrics.modeChanged(t.To)

	h.transitionLog.Do(func() {
		h.logger.Warn("queue mode changed",
			slog.String("from", string(t.From)),
			slog.String("to", string(t.To)),
			slog.Int("consecutive_failures", t.Failures))
	})

	h.mu.Lock()
	subs := append([]chan Transition(nil), h.subscribers...)
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- t:
		default:
		}
	}
}
