package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-page-studio/internal/audit"
	appconfig "github.com/wolfman30/booking-page-studio/internal/config"
	"github.com/wolfman30/booking-page-studio/internal/observability/metrics"
	"github.com/wolfman30/booking-page-studio/internal/pagesync"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to Postgres. An empty URL disables persistence and returns nil.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres connected")
	return pool, nil
}

// BuildAuditService exposes the pool through database/sql for the audit trail.
func BuildAuditService(pool *pgxpool.Pool) (*audit.Service, *sql.DB) {
	if pool == nil {
		return nil, nil
	}
	db := stdlib.OpenDBFromPool(pool)
	return audit.NewService(db), db
}

// Deps are the optional backends a synchronizer can sit on.
type Deps struct {
	Redis   *redis.Client
	Pool    *pgxpool.Pool
	Audit   *audit.Service
	Metrics *metrics.SyncMetrics
}

// BuildSynchronizer picks Redis or in-process caching and Postgres or in-process remote
// storage depending on which backends are available.
func BuildSynchronizer(cfg *appconfig.Config, deps Deps, logger *logging.Logger) *pagesync.Synchronizer {
	if logger == nil {
		logger = logging.Default()
	}

	var cache pagesync.LocalCache
	if deps.Redis != nil {
		var ttl time.Duration
		if cfg != nil {
			ttl = cfg.LocalCacheTTL
		}
		cache = pagesync.NewRedisCache(deps.Redis, ttl)
		logger.Info("booking page cache backed by redis", "ttl", ttl.String())
	} else {
		cache = pagesync.NewMemoryCache()
		logger.Warn("redis unavailable; booking page cache is in-process only")
	}

	var remote pagesync.RemoteStore
	if deps.Pool != nil {
		remote = pagesync.NewPostgresStore(deps.Pool)
	} else {
		remote = pagesync.NewMemoryRemote()
		logger.Warn("DATABASE_URL not set; booking page settings will not survive restarts")
	}

	syncer := pagesync.NewSynchronizer(cache, remote, logger).WithMetrics(deps.Metrics)
	if deps.Audit != nil {
		syncer.WithAudit(deps.Audit)
	}
	return syncer
}

// SessionOptions maps runtime configuration onto session behavior.
func SessionOptions(cfg *appconfig.Config) pagesync.SessionOptions {
	if cfg == nil {
		return pagesync.SessionOptions{}
	}
	return pagesync.SessionOptions{
		LoadTimeout: cfg.LoadTimeout,
		SaveTimeout: cfg.SaveTimeout,
		Autosave:    cfg.AutosaveEnabled,
	}
}
