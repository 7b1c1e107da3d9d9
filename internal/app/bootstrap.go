package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-school/internal/observability"
	"github.com/odyssey-erp/odyssey-school/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-school/internal/platform/db"
	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/jobs"
	"github.com/odyssey-erp/odyssey-school/migrations"
)

// Deps holds the connections and services shared by the server, worker and CLI.
type Deps struct {
	Config      *Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Jobs        *jobs.Client
	Audit       *shared.AuditLogger
	Permissions *rbac.Service
	Metrics     *observability.Metrics
}

// Bootstrap opens PostgreSQL and Redis and builds the permission service.
// The returned closer releases everything in reverse order.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger) (*Deps, func(), error) {
	if cfg.AutoMigrate {
		version, err := db.Migrate(cfg.PGDSN, migrations.FS)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrated", slog.Uint64("version", uint64(version)))
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, SlowQuery: cfg.PGSlowQuery, Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, permission cache degraded", slog.Any("error", err))
	}

	jobClient := jobs.NewClient(cfg.AsynqRedis())

	var metrics *observability.Metrics
	if cfg.MetricsEnable {
		metrics = observability.NewMetrics()
	}

	audit := shared.NewAuditLogger(pool)
	snapshots := rbac.NewSnapshotCache(redisClient, cfg.RBACCacheTTL, logger).WithRecorder(metrics)
	service := rbac.NewService(rbac.NewPGStore(pool), snapshots, audit, jobClient, logger)

	closer := func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
		pool.Close()
	}
	return &Deps{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Redis:       redisClient,
		Jobs:        jobClient,
		Audit:       audit,
		Permissions: service,
		Metrics:     metrics,
	}, closer, nil
}
