package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/logger"
	"shomokh-report-engine/internal/queue"
	"shomokh-report-engine/internal/reporting"
	"shomokh-report-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting snapshot worker")

	cal, err := calendar.New(cfg.Calendar)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid calendar configuration")
	}

	database, err := db.NewConnection(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)

	service, err := reporting.NewService(cfg, repo, cal)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reporting service")
	}

	redisClient, err := queue.NewRedisClient(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	snapshotWorker := worker.NewSnapshotWorker(cfg, repo, service, queue.NewProducer(redisClient, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := snapshotWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Snapshot worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down snapshot worker...")

	cancel()
	snapshotWorker.Stop()

	log.Info().Msg("Snapshot worker exited")
}
