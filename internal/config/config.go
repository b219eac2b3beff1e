// Package config loads the environment configuration of the consumer and migrate commands using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings shared by the background commands.
type Config struct {
	// Backend selects the activity log store: memory, redis or postgres.
	Backend string `mapstructure:"BACKEND"`
	// RedisAddr is the Redis address used by the bus and the redis backend.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// DatabaseURL is the Postgres DSN; required for the postgres backend and migrations.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// ConsumerGroup is the Redis stream consumer group name.
	ConsumerGroup string `mapstructure:"CONSUMER_GROUP"`
	// LogFormat is console or json.
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// ShutdownTimeout bounds graceful shutdown (e.g. "30s").
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
// Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("BACKEND", "redis")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CONSUMER_GROUP", "linktrail")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects unknown enum values and missing connection settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("config: BACKEND must be memory, redis or postgres, got %q", c.Backend)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}

	if c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set")
	}

	if c.Backend == "postgres" && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set for the postgres backend")
	}

	if c.ConsumerGroup == "" {
		return errors.New("config: CONSUMER_GROUP must be set")
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}

	return nil
}
