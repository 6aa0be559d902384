package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for queues and the circuit breaker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enqueued    *prometheus.CounterVec
	completed   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	retried     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	connFailed  prometheus.Counter
	transitions *prometheus.CounterVec
	localMode   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealqueue_jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		}, []string{"queue", "mode"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealqueue_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		}, []string{"queue", "mode"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealqueue_jobs_failed_total",
			Help: "Total number of jobs that failed terminally",
		}, []string{"queue", "mode"}),
		retried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealqueue_jobs_retried_total",
			Help: "Total number of retries scheduled",
		}, []string{"queue"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealqueue_job_duration_seconds",
			Help:    "Duration of successful job executions",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"queue"}),
		connFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealqueue_broker_connection_failures_total",
			Help: "Total number of connection-class broker failures",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealqueue_mode_transitions_total",
			Help: "Total number of circuit breaker mode transitions",
		}, []string{"to"}),
		localMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dealqueue_local_mode",
			Help: "1 while the process runs in local fallback mode",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.enqueued, m.completed, m.failed, m.retried,
			m.duration, m.connFailed, m.transitions, m.localMode,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) jobEnqueued(q QueueName, mode Mode) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(string(q), string(mode)).Inc()
}

func (m *Metrics) jobCompleted(q QueueName, mode Mode, d time.Duration) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(string(q), string(mode)).Inc()
	m.duration.WithLabelValues(string(q)).Observe(d.Seconds())
}

func (m *Metrics) jobFailed(q QueueName, mode Mode) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(string(q), string(mode)).Inc()
}

func (m *Metrics) jobRetried(q QueueName) {
	if m == nil {
		return
	}
	m.retried.WithLabelValues(string(q)).Inc()
}

func (m *Metrics) connectionFailed() {
	if m == nil {
		return
	}
	m.connFailed.Inc()
}

func (m *Metrics) modeChanged(to Mode) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
	m.setMode(to)
}

func (m *Metrics) setMode(mode Mode) {
	if m == nil {
		return
	}
	if mode == ModeLocal {
		m.localMode.Set(1)
	} else {
		m.localMode.Set(0)
	}
}
