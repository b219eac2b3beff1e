package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do"
	"github.com/serroba/linktrail/internal/config"
	"github.com/serroba/linktrail/internal/container"
	"github.com/serroba/linktrail/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// collaborator events must land in the log the server reads
	if cfg.Backend == "memory" {
		log.Fatal("the consumer needs a shared backend: set BACKEND to redis or postgres")
	}

	opts := &container.Options{
		Backend:       cfg.Backend,
		RedisAddr:     cfg.RedisAddr,
		DatabaseURL:   cfg.DatabaseURL,
		ConsumerGroup: cfg.ConsumerGroup,
		LogFormat:     cfg.LogFormat,
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.RepositoryPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	logger.Info("consumer running",
		zap.String("backend", cfg.Backend),
		zap.String("consumer_group", cfg.ConsumerGroup),
		zap.Strings("topics", group.Topics()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	done := make(chan error, 1)
	go func() { done <- injector.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case <-time.After(cfg.ShutdownTimeout):
		logger.Error("shutdown timed out", zap.Duration("timeout", cfg.ShutdownTimeout))
	}

	logger.Info("shutdown complete")
}
