package config_test

import (
	"testing"
	"time"

	"github.com/serroba/linktrail/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"BACKEND", "REDIS_ADDR", "DATABASE_URL", "CONSUMER_GROUP", "LOG_FORMAT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, "redis", cfg.Backend)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, "linktrail", cfg.ConsumerGroup)
		assert.Equal(t, "console", cfg.LogFormat)
		assert.Empty(t, cfg.DatabaseURL)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("env overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BACKEND", "postgres")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("DATABASE_URL", "postgres://app:app@db:5432/linktrail?sslmode=disable")
		t.Setenv("CONSUMER_GROUP", "ingest")
		t.Setenv("LOG_FORMAT", "json")
		t.Setenv("SHUTDOWN_TIMEOUT", "5s")

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Backend)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "ingest", cfg.ConsumerGroup)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Backend:         "redis",
			RedisAddr:       "localhost:6379",
			ConsumerGroup:   "linktrail",
			LogFormat:       "console",
			ShutdownTimeout: time.Second,
		}
	}

	t.Run("accepts a complete config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = "sqlite"

		assert.ErrorContains(t, cfg.Validate(), "BACKEND")
	})

	t.Run("rejects unknown log format", func(t *testing.T) {
		cfg := valid()
		cfg.LogFormat = "xml"

		assert.ErrorContains(t, cfg.Validate(), "LOG_FORMAT")
	})

	t.Run("postgres requires a database url", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = "postgres"

		assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")
	})

	t.Run("defaults a missing shutdown timeout", func(t *testing.T) {
		cfg := valid()
		cfg.ShutdownTimeout = 0

		require.NoError(t, cfg.Validate())
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})
}
