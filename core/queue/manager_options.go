package queue

import (
	"log/slog"
	"time"
)

// ManagerOption configures a Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the logger shared by the manager, its backends and its health monitor.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics attaches a metrics collector to every backend the manager creates.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithLocalDispatchDelay sets the deferral used by local fallback backends.
func WithLocalDispatchDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.dispatchDelay = d
		}
	}
}

// WithWorkerPollInterval sets how often idle distributed workers poll the broker.
func WithWorkerPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithBackendShutdownTimeout bounds how long closing a distributed backend waits for running jobs.
func WithBackendShutdownTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.shutdownTimeout = d
		}
	}
}

// WithDefaultJobOptions replaces the options every job starts from before its own JobOptions apply.
func WithDefaultJobOptions(opts JobOptions) ManagerOption {
	return func(m *Manager) {
		m.defaults = opts
	}
}

// WithHealthOptions configures the manager's circuit breaker.
func WithHealthOptions(opts ...HealthOption) ManagerOption {
	return func(m *Manager) {
		m.healthOpts = append(m.healthOpts, opts...)
	}
}
