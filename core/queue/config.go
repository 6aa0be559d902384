package queue

import "time"

// Config holds the manager, backend and circuit breaker configuration.
// Designed for environment-based configuration using popular env parsing libraries.
type Config struct {
	// Distributed backend
	PollInterval    time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	ShutdownTimeout time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Local fallback backend
	LocalDispatchDelay time.Duration `env:"QUEUE_LOCAL_DISPATCH_DELAY" envDefault:"10ms"`

	// Circuit breaker
	MaxFailuresBeforeFallback int           `env:"QUEUE_MAX_FAILURES" envDefault:"3"`
	ProbeInterval             time.Duration `env:"QUEUE_PROBE_INTERVAL" envDefault:"60s"`
	LogThrottleInterval       time.Duration `env:"QUEUE_LOG_THROTTLE_INTERVAL" envDefault:"30s"`
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		PollInterval:              time.Second,
		ShutdownTimeout:           30 * time.Second,
		LocalDispatchDelay:        10 * time.Millisecond,
		MaxFailuresBeforeFallback: 3,
		ProbeInterval:             time.Minute,
		LogThrottleInterval:       30 * time.Second,
	}
}
