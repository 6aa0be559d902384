package redis

import (
	"net"
	"strconv"
	"time"
)

// Config holds Redis connection settings. Every field has a default, so a
// zero environment connects to localhost and the queue falls back to local
// mode when nothing is listening there.
type Config struct {
	Host                 string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port                 int           `env:"REDIS_PORT" envDefault:"6379"`
	Password             string        `env:"REDIS_PASSWORD"`
	DB                   int           `env:"REDIS_DB" envDefault:"0"`
	ConnectTimeout       time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"5s"`
	MaxRetriesPerRequest int           `env:"REDIS_MAX_RETRIES_PER_REQUEST" envDefault:"3"`
	KeyPrefix            string        `env:"REDIS_KEY_PREFIX" envDefault:"dealqueue"`
	RetryAttempts        int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval        time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
}

// DefaultConfig returns the same values as the envDefault tags.
func DefaultConfig() Config {
	return Config{
		Host:                 "localhost",
		Port:                 6379,
		ConnectTimeout:       5 * time.Second,
		MaxRetriesPerRequest: 3,
		KeyPrefix:            "dealqueue",
		RetryAttempts:        3,
		RetryInterval:        time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
