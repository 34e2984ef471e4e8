package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soonerrob/rSearch/internal/classify"
	"github.com/soonerrob/rSearch/internal/collector"
	"github.com/soonerrob/rSearch/internal/reddit"
	"github.com/soonerrob/rSearch/internal/store"
	"github.com/soonerrob/rSearch/pkg/config"
	"github.com/soonerrob/rSearch/pkg/logging"
	"github.com/soonerrob/rSearch/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting rSearch Collector")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := store.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Initialize content source client
	source, err := reddit.New(&cfg.Reddit)
	if err != nil {
		logger.Fatal("Failed to create content source client", zap.Error(err))
	}

	// Wire the collection pipeline
	repo := store.NewRepository(database.DB)
	recovery := store.NewRecoveryRepository(database)
	classifier := classify.NewClassifier(repo)
	generator := classify.NewGenerator(classifier, repo)
	analyzer := classify.NewAnalysis(classifier, generator)
	coordinator := collector.NewCoordinator(&cfg.Collector, repo, recovery, source, analyzer)
	scheduler := collector.NewScheduler(&cfg.Collector, repo, coordinator)
	cleanup := collector.NewCleanup(&cfg.Collector, repo)

	// Audiences left mid-run by a previous crash stay locked forever
	// unless cleared before the first sweep.
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	reset, err := recovery.ResetStaleCollections(startupCtx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to reset interrupted collections", zap.Error(err))
	}
	if reset > 0 {
		logger.Info("Reset interrupted collections", zap.Int64("audiences", reset))
	}

	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cleanup job", zap.Error(err))
	}
	defer cleanup.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatal("Collector exited with error", zap.Error(err))
	}

	logger.Info("Collector exited")
}
