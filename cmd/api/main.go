package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/app"
	"github.com/rightsplace/rightsplace/internal/config"
	"github.com/rightsplace/rightsplace/internal/observability"
	"github.com/rightsplace/rightsplace/internal/persistence"
	"github.com/rightsplace/rightsplace/internal/repository"
	"github.com/rightsplace/rightsplace/internal/repository/memory"
	"github.com/rightsplace/rightsplace/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repository.Repositories
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repository.NewPostgresRepositories(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory repositories; data is lost on restart")
		repos = memory.NewStore().Repositories()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	blobs, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init blob storage", zap.Error(err))
	}

	server := app.NewServer(*cfg, logger, app.Infrastructure{
		Postgres:     pg,
		Redis:        redis,
		Repositories: repos,
		Blobs:        blobs,
	})
	if err := server.Bootstrap(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	go server.Limiter.Run(ctx)

	go func() {
		if err := server.App.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := server.App.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
