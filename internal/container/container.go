package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/linktrail/internal/store"
	"go.uber.org/zap"
)

// Options configures the server. humacli maps each field to a flag and a SERVICE_* env var.
type Options struct {
	Port             int    `default:"8888"           help:"Port to listen on"                                        short:"p"`
	BaseURL          string `default:""               help:"Public base URL of tracking links (default http://localhost:<port>)"`
	TokenLength      int    `default:"10"             help:"Length of generated tracking tokens, at least 8"          short:"t"`
	Backend          string `default:"memory"         help:"Store backend: memory, redis or postgres"                 short:"b"`
	RedisAddr        string `default:"localhost:6379" help:"Redis server address"                                     short:"r"`
	DatabaseURL      string `default:""               help:"Postgres DSN, required for the postgres backend"`
	AutoMigrate      bool   `default:"true"           help:"Apply schema migrations when the postgres backend starts"`
	CacheTTL         int    `default:"3600"           help:"Seconds to cache resolved links in Redis for the postgres backend, 0 disables"`
	LogFormat        string `default:"console"        help:"Log format: console or json"`
	Publish          bool   `default:"false"          help:"Publish appended events to the Redis stream bus"`
	RateLimitBackend string `default:"memory"         help:"Rate limit store: memory or redis"`
	ConsumerGroup    string `default:"linktrail"      help:"Redis stream consumer group"`
}

// PublicBaseURL returns BaseURL or the local address derived from Port.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// UsesRedis reports whether any configured component needs a Redis connection.
func (o *Options) UsesRedis() bool {
	return o.Backend == "redis" || o.Publish || o.RateLimitBackend == "redis" ||
		(o.Backend == "postgres" && o.CacheTTL > 0)
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.LogFormat {
		case "json":
			return zap.NewProduction()
		case "console", "":
			return zap.NewDevelopment()
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.LogFormat)
		}
	})
}

// redisConn closes the shared client on shutdown.
type redisConn struct {
	*redis.Client
}

func (c *redisConn) Shutdown() error {
	return c.Close()
}

// RedisPackage provides the shared Redis client. The client connects lazily.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redisConn, error) {
		opts := do.MustInvoke[*Options](i)

		return &redisConn{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// postgresConn closes the pool on shutdown.
type postgresConn struct {
	*pgxpool.Pool
}

func (c *postgresConn) Shutdown() error {
	c.Close()

	return nil
}

// PostgresPackage provides the Postgres pool, migrating the schema first when enabled.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*postgresConn, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.AutoMigrate {
			if err := store.Migrate(opts.DatabaseURL, "up"); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}

			logger.Info("database schema up to date")
		}

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &postgresConn{Pool: pool}, nil
	})
}
