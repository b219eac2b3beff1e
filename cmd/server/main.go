package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linktrail/internal/container"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.RepositoryPackage(injector)
	container.PublisherGroupPackage(injector)
	container.TrackingPackage(injector)
	container.RateLimitPackage(injector)
	container.HTTPPackage(injector)
}

// newServer resolves the router and the API, which registers every route.
func newServer(injector *do.Injector, options *container.Options) *http.Server {
	router := do.MustInvoke[*chi.Mux](injector)
	_ = do.MustInvoke[huma.API](injector)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", options.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func shutdown(server *http.Server, injector *do.Injector, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
	}

	// Closes the publisher, then the redis client and postgres pool.
	if err := injector.Shutdown(); err != nil {
		logger.Error("service shutdown", zap.Error(err))
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		hooks.OnStart(func() {
			server = newServer(injector, options)

			logger.Info("linktrail listening",
				zap.String("addr", server.Addr),
				zap.String("backend", options.Backend),
				zap.String("tracking_base", options.PublicBaseURL()),
				zap.Bool("publish", options.Publish),
				zap.String("rate_limit_backend", options.RateLimitBackend),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("http server stopped", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("stopping")
			shutdown(server, injector, logger)
			logger.Info("stopped")
		})
	})

	cli.Run()
}
