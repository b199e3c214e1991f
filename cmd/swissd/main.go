// Package main provides the entry point for the swissd tournament service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/devrev/swissmatch/internal/config"
	"github.com/devrev/swissmatch/internal/health"
	"github.com/devrev/swissmatch/internal/metrics"
	"github.com/devrev/swissmatch/internal/server"
	"github.com/devrev/swissmatch/internal/service"
	"github.com/devrev/swissmatch/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A .env file is optional
	_ = godotenv.Load()

	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger := initLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	logger.Info("starting swissd",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("idempotency_backend", cfg.Idempotency.Backend))

	ctx := context.Background()

	snapshots, err := store.NewSnapshotStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize snapshot store", zap.Error(err))
	}
	defer snapshots.Close()

	var idempotency *service.IdempotencyService
	idempotencyStore, err := store.NewIdempotencyStore(cfg.Idempotency, cfg.Storage.Redis, logger)
	if err != nil {
		logger.Fatal("failed to initialize idempotency store", zap.Error(err))
	}
	defer idempotencyStore.Close()
	if cfg.Idempotency.Enabled {
		idempotency = service.NewIdempotencyService(idempotencyStore, cfg.Idempotency.TTL, logger)
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	m.SetHealthStatus(true)

	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		logger.Info("metrics server started",
			zap.Int("port", cfg.Metrics.Port),
			zap.String("path", cfg.Metrics.Path))
	}

	tournaments := service.NewTournamentService(cfg.Tournament, snapshots, idempotency, m, logger)

	if cfg.Snapshot.PreloadOnStart {
		loaded, err := tournaments.Preload(ctx)
		if err != nil {
			logger.Error("failed to preload tournaments", zap.Error(err))
		}
		logger.Info("tournaments preloaded", zap.Int("count", loaded))
	}

	var snapshotService *service.SnapshotService
	if cfg.Snapshot.Enabled {
		snapshotService, err = service.NewSnapshotService(tournaments, cfg.Snapshot.Interval, cfg.Snapshot.Timeout, m, logger)
		if err != nil {
			logger.Fatal("failed to create snapshot service", zap.Error(err))
		}
		if err := snapshotService.Start(); err != nil {
			logger.Fatal("failed to start snapshot service", zap.Error(err))
		}
	}

	healthChecker := health.NewHealthChecker(snapshots, idempotencyStore, tournaments, m, cfg.Health.CheckTimeout, logger)

	httpServer := server.NewServer(cfg, tournaments, healthChecker, m, logger)
	httpServer.SetupRoutes()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("initiating graceful shutdown")
	m.SetHealthStatus(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}

	// Pending results must reach the store before it closes
	switch {
	case snapshotService != nil && cfg.Snapshot.FlushOnShutdown:
		if err := snapshotService.Stop(shutdownCtx); err != nil {
			logger.Error("final snapshot flush failed", zap.Error(err))
		}
	case cfg.Snapshot.FlushOnShutdown:
		if _, err := tournaments.FlushDirty(shutdownCtx); err != nil {
			logger.Error("final snapshot flush failed", zap.Error(err))
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}

	logger.Info("swissd shutdown complete")
}

// initLogger builds the zap logger from the logging config. LOG_LEVEL and
// LOG_FORMAT override it.
func initLogger(logLevel, logFormat string) *zap.Logger {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logLevel = env
	}
	if env := os.Getenv("LOG_FORMAT"); env != "" {
		logFormat = env
	}

	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if logFormat == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
