package main

import (
	"context"
	"os"
	"time"

	"budget/internal/cli"
	applog "budget/internal/log"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	sheetmem "budget/internal/sheets/memory"
	"budget/internal/storage"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting budget-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		logger.Error("budget-worker reads the shared SQLite database, set DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var exporter sheets.BalanceExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = sheetmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
	}

	exportWorker := worker.NewExportWorker(repo, repo, exporter, cfg.ExportConcurrency)

	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	ctx, done := cli.GracefulShutdown(context.Background(), logger, cfg.ShutdownTimeout, nil)

	// Events lost while the worker was down are covered by a startup resync.
	if n, err := exportWorker.ResyncAll(ctx); err != nil {
		logger.Error("Startup resync failed", "error", err)
	} else {
		logger.Info("Startup resync complete", "exported", n)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeBalanceEvents(ctx, exportWorker.HandleBalanceEvent)
			if err != nil && ctx.Err() == nil {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption, relying on periodic resync")
	}

	go func() {
		ticker := time.NewTicker(cfg.ResyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := exportWorker.ResyncAll(ctx); err != nil {
					logger.Error("Periodic resync failed", "error", err)
				} else {
					logger.Info("Periodic resync complete", "exported", n)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
