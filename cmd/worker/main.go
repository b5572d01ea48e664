package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crewlog/internal/attendance"
	"crewlog/internal/config"
	"crewlog/internal/metrics"
	"crewlog/internal/queue"
	"crewlog/internal/roster"
	"crewlog/internal/store"
	"crewlog/internal/worker"
	"crewlog/pkg/logger"
)

// Worker consumes submission messages and marks records processed or rejected.
func main() {
	_ = godotenv.Load()
	logCfg := config.LoadLog()
	zl, err := logger.New(&logCfg, logger.WorkerServiceName)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		zl.Fatal("DATABASE_URL is required by the worker")
	}
	if cfg.QueueBackend != "redis" {
		zl.Fatal("the worker needs QUEUE_BACKEND=redis to see API submissions")
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := store.NewRedis(ctx, cfg.RedisAddr)
	if err != nil {
		zl.Fatal("redis connect failed", zap.Error(err))
	}
	defer redisClient.Close()

	dir := roster.Default()
	if cfg.RosterFile != "" {
		if dir, err = roster.LoadFile(cfg.RosterFile); err != nil {
			zl.Fatal("roster load failed", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	go serveMetrics(ctx, zl, reg, cfg.WorkerMetricsPort)

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, zl)
	messages, err := q.Consume(ctx)
	if err != nil {
		zl.Fatal("queue consume init failed", zap.Error(err))
	}

	zl.Info("worker started, waiting for messages")
	worker.New(attendance.NewRepository(db.Pool), dir.Crew(), m, zl).Run(ctx, messages)
	zl.Info("worker stopped")
}

func serveMetrics(ctx context.Context, zl *zap.Logger, reg *prometheus.Registry, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Warn("metrics server failed", zap.Error(err))
	}
}
