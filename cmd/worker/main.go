package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/hvacdesk/hvacdesk/internal/app"
	jobmetrics "github.com/hvacdesk/hvacdesk/internal/jobs"
	"github.com/hvacdesk/hvacdesk/internal/platform/db"
	"github.com/hvacdesk/hvacdesk/internal/settlement"
	"github.com/hvacdesk/hvacdesk/internal/shared"
	"github.com/hvacdesk/hvacdesk/internal/warehouse"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
	"github.com/hvacdesk/hvacdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := jobmetrics.NewMetrics(nil)

	auditLogger := shared.NewAuditLogger(pool)

	orderRepo := workorders.NewRepository(pool)
	warehouseRepo := warehouse.NewRepository(pool)
	warehouseService := warehouse.NewService(warehouseRepo, orderRepo, auditLogger)

	settlementRepo := settlement.NewRepository(pool)
	summaryCache := settlement.NewSummaryCache(redisClient)
	billing := settlement.BillingConfig{
		VATPercent:    cfg.BillingVATPercent,
		UpliftPercent: cfg.BillingUpliftPercent,
	}
	settlementService := settlement.NewService(logger, settlementRepo, summaryCache, billing, auditLogger)

	warmupJob := jobs.NewSettlementWarmupJob(settlementService, logger, metrics)
	integrityJob := jobs.NewWarehouseIntegrityJob(warehouseService, logger, metrics)

	warmupTask, err := jobs.NewSettlementWarmupTask(jobs.SettlementWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewWarehouseIntegrityTask(jobs.WarehouseIntegrityPayload{DryRun: true})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSettlementWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskWarehouseIntegrityScan, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
