package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/cantiere-erp/cantiere-erp/internal/app"
	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
	"github.com/cantiere-erp/cantiere-erp/internal/planning"
	"github.com/cantiere-erp/cantiere-erp/internal/platform/cache"
	"github.com/cantiere-erp/cantiere-erp/internal/platform/db"
	"github.com/cantiere-erp/cantiere-erp/internal/procurement"
	"github.com/cantiere-erp/cantiere-erp/internal/reconcile"
	"github.com/cantiere-erp/cantiere-erp/internal/shared"
	"github.com/cantiere-erp/cantiere-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	procurementRepo := procurement.NewRepository(pool)
	planRepo := planning.NewRepository(pool)
	historyRepo := reconcile.NewRepository(pool)

	aggregator := reconcile.NewAggregator(procurementRepo, procurementRepo, procurementRepo, procurementRepo)
	service := reconcile.NewService(aggregator, planRepo, historyRepo, procurementRepo, finmodel.NewSimpleModel(), reconcile.ServiceConfig{
		Locker:  shared.NewRedisLocker(redisClient, cfg.PlanLockRetry),
		Audit:   shared.NewAuditLogger(pool),
		Logger:  logger,
		LockTTL: cfg.PlanLockTTL,
	})

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	refreshJob := reconcile.NewRefreshJob(service, planRepo, client, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPlanRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskPlanRefreshSweep, Handler: refreshJob.HandleSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RefreshCronSpec, Task: jobs.NewPlanRefreshSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
