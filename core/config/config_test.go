package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/config"
)

type brokerConfig struct {
	Host    string        `env:"TEST_BROKER_HOST" envDefault:"localhost"`
	Port    int           `env:"TEST_BROKER_PORT" envDefault:"6379"`
	Timeout time.Duration `env:"TEST_BROKER_TIMEOUT" envDefault:"5s"`
}

type requiredConfig struct {
	Token string `env:"TEST_REQUIRED_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults and overrides", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_BROKER_PORT", "6380")

		var cfg brokerConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 6380, cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_BROKER_HOST", "first")

		var first brokerConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("TEST_BROKER_HOST", "second")
		var second brokerConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Host)
	})

	t.Run("missing required variable", func(t *testing.T) {
		config.Reset()

		var cfg requiredConfig
		require.Error(t, config.Load(&cfg))
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *brokerConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilConfig)
	})
}
