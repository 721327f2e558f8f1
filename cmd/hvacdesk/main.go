package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/hvacdesk/hvacdesk/internal/app"
	"github.com/hvacdesk/hvacdesk/internal/observability"
	"github.com/hvacdesk/hvacdesk/internal/platform/db"
	"github.com/hvacdesk/hvacdesk/internal/prepurchase"
	"github.com/hvacdesk/hvacdesk/internal/settlement"
	"github.com/hvacdesk/hvacdesk/internal/shared"
	"github.com/hvacdesk/hvacdesk/internal/warehouse"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
	"github.com/hvacdesk/hvacdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	auditLogger := shared.NewAuditLogger(pool)

	orderRepo := workorders.NewRepository(pool)
	warehouseRepo := warehouse.NewRepository(pool)
	warehouseService := warehouse.NewService(warehouseRepo, orderRepo, auditLogger)
	orderService := workorders.NewService(logger, orderRepo, warehouseService)
	orderHandler := workorders.NewHandler(logger, orderService)
	warehouseHandler := warehouse.NewHandler(logger, warehouseService)

	prepurchaseRepo := prepurchase.NewRepository(pool)
	prepurchaseService := prepurchase.NewService(logger, prepurchaseRepo)
	prepurchaseHandler := prepurchase.NewHandler(logger, prepurchaseService)

	settlementRepo := settlement.NewRepository(pool)
	summaryCache := settlement.NewSummaryCache(redisClient)
	billing := settlement.BillingConfig{
		VATPercent:    cfg.BillingVATPercent,
		UpliftPercent: cfg.BillingUpliftPercent,
	}
	settlementService := settlement.NewService(logger, settlementRepo, summaryCache, billing, auditLogger)
	settlementHandler := settlement.NewHandler(logger, settlementService, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		WorkOrderHandler:   orderHandler,
		WarehouseHandler:   warehouseHandler,
		PrepurchaseHandler: prepurchaseHandler,
		SettlementHandler:  settlementHandler,
		JobsHandler:        jobsHandler,
		Pool:               pool,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
