package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/ingest"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/queue"
	"github.com/sensacare/vitals/internal/repository"
	"github.com/sensacare/vitals/internal/router"
	"github.com/sensacare/vitals/internal/services"
	"github.com/sensacare/vitals/internal/subscriber"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("vitalsd starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	logger.Info("Opening storage", "type", cfg.Storage.Type)
	store, err := repository.New(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open storage", "error", err)
	}
	defer func() { _ = store.Close() }()

	// Alerts are optional; a nil publisher disables them.
	var alerts *services.AlertPublisher
	if cfg.Alerts.Enabled {
		logger.Info("Connecting alert publisher", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		pub, err := queue.NewPublisher(cfg.Queue)
		if err != nil {
			logger.Fatal("Failed to connect alert publisher", "error", err)
		}
		defer func() { _ = pub.Close() }()
		alerts = services.NewAlertPublisher(logger.With("component", "alerts"), pub, cfg.Alerts.SubjectPrefix)
	}

	loc := cfg.Storage.GetStorageTimezone()
	analyzer := heartrate.NewAnalyzer(services.AnalyzerConfig(cfg.Analytics, loc))

	readings := services.NewReadingService(logger.With("component", "readings"), store, cfg.Storage.RecencyWindow)
	svc := router.Services{
		Readings:  readings,
		Profiles:  services.NewProfileService(logger.With("component", "profiles"), store),
		Analytics: services.NewAnalyticsService(logger.With("component", "analytics"), store, store, analyzer, alerts),
		Storage:   store,
	}

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, svc, *cfg, Version)

	var worker *ingest.Worker
	if cfg.Ingest.Enabled {
		sub, err := subscriber.NewSubscriber(cfg.Queue, subscriber.Config{
			NodeID:        cfg.Ingest.NodeID,
			ConsumerGroup: cfg.Ingest.ConsumerGroup,
		})
		if err != nil {
			logger.Fatal("Failed to create subscriber", "error", err)
		}
		worker, err = ingest.NewWorker(logger.With("component", "ingest"), sub, readings, cfg.Ingest.Subject)
		if err != nil {
			logger.Fatal("Failed to create ingest worker", "error", err)
		}
		if err := worker.Start(); err != nil {
			logger.Fatal("Failed to start ingest worker", "error", err)
		}
	}

	go func() {
		addr := cfg.ServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	if worker != nil {
		if err := worker.Stop(); err != nil {
			logger.Error("Failed to stop ingest worker", "error", err)
		}
		logger.Info("Ingest worker stopped", "stats", worker.Stats())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
