package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/core"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
	"budget/internal/services"
)

const (
	recordCacheSize = 256
	recordCacheTTL  = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// A nil *amqp.Client must not become a non-nil interface.
	var publisher services.EventPublisher
	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
	}

	start, err := cfg.BudgetStart()
	if err != nil {
		logger.Error("Invalid budget start date", "error", err)
		os.Exit(1)
	}
	svc, err := backend.NewServices(ctx, result, start, publisher)
	if err != nil {
		logger.Error("Failed to load budget period", "error", err)
		os.Exit(1)
	}

	records := cache.NewLRUCache[int64, core.EstimatedBalanceRecord](recordCacheSize, recordCacheTTL)
	caches := cache.NewManager()
	caches.Register(records)
	caches.StartCleanup(recordCacheTTL)
	svc.Balances.WithRecordCache(records)

	deps := apphttp.Dependencies{
		Balances:           svc.Balances,
		Incomes:            svc.Incomes,
		Expenses:           svc.Expenses,
		StorageRecords:     svc.Storage,
		Period:             svc.Period,
		Logger:             logger,
		Storage:            result.Pinger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)

	shutdownCtx, done := cli.GracefulShutdown(ctx, logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	periodStart, periodEnd := svc.Period.Bounds()
	logger.Info("Starting budget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", amqpClient != nil,
		applog.FieldPeriodStart, periodStart.String(),
		applog.FieldPeriodEnd, periodEnd.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
