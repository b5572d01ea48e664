package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crewlog/internal/api"
	"crewlog/internal/attendance"
	"crewlog/internal/auth"
	"crewlog/internal/config"
	"crewlog/internal/metrics"
	"crewlog/internal/queue"
	"crewlog/internal/reminder"
	"crewlog/internal/roster"
	"crewlog/internal/session"
	"crewlog/internal/store"
	"crewlog/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	logCfg := config.LoadLog()
	zl, err := logger.New(&logCfg, logger.APIServiceName)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		zl.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, zl); err != nil {
		zl.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := roster.Default()
	if cfg.RosterFile != "" {
		loaded, err := roster.LoadFile(cfg.RosterFile)
		if err != nil {
			return err
		}
		dir = loaded
		zl.Info("roster loaded", zap.String("path", cfg.RosterFile), zap.Int("crew", len(dir.Crew())))
	}

	clock, err := reminder.NewClock(cfg.ReminderDeadline, cfg.ReminderWindow)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	health := map[string]api.HealthCheck{}

	var redisClient *store.Redis
	if cfg.NeedsRedis() {
		redisClient, err = store.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
	}

	var sessions session.Backend = session.NewMemoryBackend()
	if cfg.SessionBackend == "redis" {
		sessions = session.NewRedisBackend(redisClient.Client, "", cfg.SessionTTL)
	}

	// The in-process queue has no consumer, so memory mode skips publishing.
	var publisher attendance.Publisher
	if cfg.QueueBackend == "redis" {
		publisher = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, zl)
	} else {
		zl.Info("QUEUE_BACKEND is memory, confirmed records are not queued for the worker")
	}

	var (
		sink    attendance.Sink = attendance.NewLogSink(zl)
		records api.RecordStore
	)
	if cfg.DatabaseURL != "" {
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
		repo := attendance.NewRepository(db.Pool)
		sink, records = repo, repo
		health["db"] = db.Healthy
	} else {
		zl.Warn("DATABASE_URL not set, confirmed records are only logged")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := api.NewRouter(api.Deps{
		Directory:            dir,
		Sessions:             sessions,
		Tokens:               auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL),
		Forms:                attendance.NewFormService(dir.Crew(), sink, publisher, nil, loc, zl),
		Records:              records,
		Clock:                clock,
		Metrics:              metrics.New(reg),
		Logger:               zl,
		Location:             loc,
		Health:               health,
		MetricsHandler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSOrigins:          strings.Split(cfg.CORSOrigins, ","),
		RateLimitPerMin:      cfg.RateLimitPerMin,
		LoginRateLimitPerMin: cfg.LoginRateLimitPerMin,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server forced shutdown", zap.Error(err))
	}
	zl.Info("server exited")
	return nil
}
