package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-page-studio/internal/api/router"
	"github.com/wolfman30/booking-page-studio/internal/app/bootstrap"
	appconfig "github.com/wolfman30/booking-page-studio/internal/config"
	httpmiddleware "github.com/wolfman30/booking-page-studio/internal/http/middleware"
	"github.com/wolfman30/booking-page-studio/internal/observability/metrics"
	"github.com/wolfman30/booking-page-studio/internal/preview"
	"github.com/wolfman30/booking-page-studio/internal/studio"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

func main() {
	// Local development reads .env; deployed environments inject variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-page-studio API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	auditService, auditDB := bootstrap.BuildAuditService(pool)

	metricsHandler, syncMetrics := setupMetrics()
	syncer := bootstrap.BuildSynchronizer(cfg, bootstrap.Deps{
		Redis:   redisClient,
		Pool:    pool,
		Audit:   auditService,
		Metrics: syncMetrics,
	}, logger)

	manager := studio.NewManager(syncer, bootstrap.SessionOptions(cfg), logger)
	studioHandler := studio.NewHandler(manager, preview.NewRenderer(), logger)
	if auditService != nil {
		studioHandler.WithHistory(auditService)
	}

	stopEviction := make(chan struct{})
	limiter := startRateLimiter(cfg, stopEviction)

	r := router.New(&router.Config{
		Logger:             logger,
		Studio:             studioHandler,
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		Ready:              readinessCheck(redisClient, pool),
	})

	// WriteTimeout stays zero so preview streams are not cut off.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	close(stopEviction)
	manager.Close()
	if auditDB != nil {
		_ = auditDB.Close()
	}
	if pool != nil {
		pool.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.SyncMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), syncMetrics
}

// rateLimiterSweep is how often idle client buckets are evicted.
const rateLimiterSweep = time.Minute

// startRateLimiter returns nil when limiting is disabled. Otherwise eviction
// runs until stop is closed.
func startRateLimiter(cfg *appconfig.Config, stop <-chan struct{}) *httpmiddleware.RateLimiter {
	if cfg == nil || cfg.RateLimitRPS <= 0 {
		return nil
	}
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(rateLimiterSweep, stop)
	return limiter
}

func readinessCheck(redisClient *redis.Client, pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		return nil
	}
}
