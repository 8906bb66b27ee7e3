// Command drivelined runs the driveline ingestion daemon: the cycle
// scheduler and the HTTP control API.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"driveline/internal/config"
	"driveline/internal/daemon"
	"driveline/internal/logging"
	"driveline/internal/notifications"
	"driveline/internal/orchestrator"
	"driveline/internal/queue"
	"driveline/internal/services/extractor"
	"driveline/internal/services/scraper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		log.Fatalf("open queue store: %v", err)
	}

	extract, err := extractor.New(cfg.Extractors)
	if err != nil {
		log.Fatalf("init extractor client: %v", err)
	}

	runner := orchestrator.NewRunner(cfg, store, extract,
		scraper.New(cfg.Scrapers), notifications.NewService(cfg), logger)

	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("drivelined shutting down")
}
