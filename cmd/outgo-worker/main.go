package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"outgo/internal/amqp"
	"outgo/internal/config"
	"outgo/internal/export"
	"outgo/internal/export/google"
	"outgo/internal/export/memory"
	"outgo/internal/log"
	"outgo/internal/storage"
	"outgo/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentWorker,
		Format:    cfg.LogFormat,
	})
	log.SetDefault(logger)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Invalid worker configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var exporter export.Exporter
	if cfg.ExportSpreadsheetID == "memory" {
		// local development without a real spreadsheet
		exporter = memory.New()
		logger.Info("Using in-memory exporter")
	} else {
		exporter, err = google.New(ctx, cfg.ExportSpreadsheetID, cfg.ExportSheetName)
		if err != nil {
			logger.Error("Failed to initialize sheet exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Using Google Sheets exporter",
			"spreadsheet_id", cfg.ExportSpreadsheetID,
			"sheet", cfg.ExportSheetName)
	}

	w := worker.NewExportWorker(repo, exporter)

	logger.Info("Starting export worker", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
	err = amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		func(ev *amqp.ExpenseEvent) error {
			return w.HandleEvent(ctx, ev)
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
