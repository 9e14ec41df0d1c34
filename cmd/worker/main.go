package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickscode/whaling/service/alert"
	"github.com/rickscode/whaling/service/classify"
	"github.com/rickscode/whaling/service/config"
	"github.com/rickscode/whaling/service/db"
	"github.com/rickscode/whaling/service/helius"
	"github.com/rickscode/whaling/service/metrics"
	natspkg "github.com/rickscode/whaling/service/nats"
	"github.com/rickscode/whaling/service/temporal"
	"github.com/rickscode/whaling/service/tracker"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	store := db.NewStore(dbPool)

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Start metrics HTTP server
	metricsAddr := getEnv("METRICS_ADDR", ":9091")
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Initialize the transaction source client
	heliusClient := helius.NewClient(cfg.HeliusAPIURL, cfg.HeliusAPIKey, metricsCollector, logger)
	logger.Info("initialized transaction source client", "url", cfg.HeliusAPIURL)

	// Initialize NATS publisher
	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to create NATS publisher", "error", err)
		os.Exit(1)
	}
	defer natsPublisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// Initialize the Telegram notifier, if configured
	var notifier alert.Notifier
	if cfg.TelegramBotToken != "" {
		telegramNotifier, err := alert.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Error("failed to create telegram notifier", "error", err)
			os.Exit(1)
		}
		notifier = telegramNotifier
		logger.Info("initialized telegram notifier", "chat_id", cfg.TelegramChatID)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	// Initialize the classifier with its token age filter
	oracle := classify.StaticOracle{Price: cfg.SOLPriceUSD}
	var ages *classify.TokenAges
	if cfg.MaxTokenAge > 0 {
		ages = classify.NewTokenAges(heliusClient, logger)
	}
	classifier := classify.NewClassifier(oracle, ages, cfg.MaxTokenAge, logger)

	// Initialize the poll pipeline
	trk := tracker.New(tracker.Config{
		Source:     heliusClient,
		Store:      store,
		Classifier: classifier,
		Filter:     alert.Filter{MinBuyValueUSD: cfg.MinBuyValueUSD},
		Notifier:   notifier,
		Publisher:  natsPublisher,
		Metrics:    metricsCollector,
		Logger:     logger,
		FetchLimit: cfg.FetchLimit,
	})

	// Initialize Temporal worker
	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Source:            heliusClient,
		Tracker:           trk,
		Store:             store,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"fetch_limit", cfg.FetchLimit,
		"min_buy_value_usd", cfg.MinBuyValueUSD,
		"max_token_age", cfg.MaxTokenAge,
	)

	// Start worker in background
	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- worker.Start()
	}()

	// Wait for shutdown signal or worker error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		worker.Stop()
		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// getEnv returns the value of an environment variable or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
