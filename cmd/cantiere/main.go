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
	"github.com/joho/godotenv"

	"github.com/cantiere-erp/cantiere-erp/internal/app"
	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
	"github.com/cantiere-erp/cantiere-erp/internal/observability"
	"github.com/cantiere-erp/cantiere-erp/internal/planning"
	"github.com/cantiere-erp/cantiere-erp/internal/platform/cache"
	"github.com/cantiere-erp/cantiere-erp/internal/platform/db"
	"github.com/cantiere-erp/cantiere-erp/internal/procurement"
	"github.com/cantiere-erp/cantiere-erp/internal/reconcile"
	reconcilehttp "github.com/cantiere-erp/cantiere-erp/internal/reconcile/http"
	"github.com/cantiere-erp/cantiere-erp/internal/shared"
	"github.com/cantiere-erp/cantiere-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	procurementRepo := procurement.NewRepository(dbpool)
	planRepo := planning.NewRepository(dbpool)
	historyRepo := reconcile.NewRepository(dbpool)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	aggregator := reconcile.NewAggregator(procurementRepo, procurementRepo, procurementRepo, procurementRepo)
	service := reconcile.NewService(aggregator, planRepo, historyRepo, procurementRepo, finmodel.NewSimpleModel(), reconcile.ServiceConfig{
		Locker:   shared.NewRedisLocker(redisClient, cfg.PlanLockRetry),
		Audit:    auditLogger,
		Logger:   logger,
		Observer: metrics,
		Thresholds: finmodel.Thresholds{
			MarginErrorPct:   cfg.MarginErrorPct,
			MarginWarningPct: cfg.MarginWarningPct,
			MinDSCR:          cfg.MinDSCR,
		},
		LockTTL: cfg.PlanLockTTL,
	})

	reconcileHandler := reconcilehttp.NewHandler(logger, service)
	jobsHandler := jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ReconcileHandler: reconcileHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
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
