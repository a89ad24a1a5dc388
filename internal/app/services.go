package app

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/bookreports/internal/observability"
	"github.com/odyssey-erp/bookreports/internal/reportcache"
	"github.com/odyssey-erp/bookreports/internal/reporting"
	"github.com/odyssey-erp/bookreports/internal/source"
)

// NewReportingService wires the source loader, report cache and run store shared by the
// API and the worker. A nil redis client disables caching.
func NewReportingService(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *reporting.Service {
	loader := source.NewLoader(source.NewRepository(pool), logger).WithTimeout(cfg.SourceFetchTimeout)
	return reporting.NewService(
		loader,
		reportcache.New(redisClient, cfg.ReportCacheTTL),
		source.NewRunStore(pool),
		metrics,
		logger,
		reporting.Config{
			FiscalStartMonth: cfg.FiscalStartMonth(),
			Tolerance:        cfg.ReconcileTolerance,
			SyncRowLimit:     cfg.ReconcileSyncRowLimit,
			UploadTTL:        cfg.ReconcileUploadTTL,
		},
	)
}

// RedisClientOpt returns the asynq connection settings for the configured Redis.
func (c *Config) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}
