package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"entregas/internal/amqp"
	"entregas/internal/config"
	apphttp "entregas/internal/http"
	"entregas/internal/ingest"
	"entregas/internal/roster"
	"entregas/internal/services"
	"entregas/internal/storage"
	"entregas/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Snapshot persistence is best-effort: if the SQLite file cannot be
	// opened the dashboard still runs, it just loses data on restart.
	var snap store.Snapshotter
	sqliteSnaps, err := storage.NewSQLiteSnapshots(cfg.SnapshotDBPath)
	if err != nil {
		logger.Error("Failed to open snapshot database, running without persistence", "error", err, "path", cfg.SnapshotDBPath)
		snap = store.NewMemorySnapshotter()
	} else {
		defer sqliteSnaps.Close()
		snap = sqliteSnaps
	}

	st, err := store.Open(context.Background(), snap)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		os.Exit(1)
	}
	if st.Degraded() {
		logger.Warn("Record store started degraded, persistence disabled for this session")
	}

	// AMQP mirroring is optional: without a broker URL records simply stay local.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	extractor := ingest.NewExtractor(cfg.GeminiAPIKey, cfg.GeminiModel, "")
	ledger := services.NewLedgerService(st, ingest.NewNormalizer(), extractor, amqpClient)
	defer ledger.Close()

	srv := apphttp.NewServer(":"+cfg.Port, ledger, roster.Fixed())

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting entregas server", "port", cfg.Port, "photo_import", ledger.PhotoImportEnabled(), "mirror", cfg.MirrorEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
