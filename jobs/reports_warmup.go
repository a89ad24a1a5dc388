package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bookreports/internal/jobs"
)

const (
	warmupLockKey     = "bookreports:lock:" + TaskReportsWarmup
	defaultWarmupLock = 10 * time.Minute
	companyTimeout    = 2 * time.Minute
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer rebuilds cached reports.
type Warmer interface {
	Companies(ctx context.Context) ([]int64, error)
	Warm(ctx context.Context, companyID int64) error
}

// ReportsWarmupJob pre-populates the report cache of active companies. Only one worker
// runs it at a time.
type ReportsWarmupJob struct {
	Service Warmer
	Locker  *redislock.Client
	LockTTL time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(service Warmer, locker *redislock.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Service: service,
		Locker:  locker,
		LockTTL: defaultWarmupLock,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes reports warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload WarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	logger := j.logger()
	lock, err := j.obtain(ctx)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Info("warmup already running elsewhere, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reports warmup: obtain lock: %w", err)
	}
	if lock != nil {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn("release warmup lock", slog.Any("error", err))
			}
		}()
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	companies := payload.CompanyIDs
	if len(companies) == 0 {
		companies, err = j.Service.Companies(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load warmup companies", slog.Any("error", err))
			return resultErr
		}
	}
	if len(companies) == 0 {
		logger.Info("no companies discovered for warmup")
		return nil
	}

	start := j.now()
	var failed []error
	warmed := 0
	for _, companyID := range companies {
		if err := j.warmCompany(ctx, companyID); err != nil {
			logger.Error("warm company", slog.Int64("company_id", companyID), slog.Any("error", err))
			failed = append(failed, fmt.Errorf("company %d: %w", companyID, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		warmed++
	}
	resultErr = errors.Join(failed...)
	logger.Info("completed reports warmup",
		slog.Int("companies", warmed),
		slog.Int("failed", len(failed)),
		slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *ReportsWarmupJob) warmCompany(ctx context.Context, companyID int64) error {
	ctx, cancel := context.WithTimeout(ctx, companyTimeout)
	defer cancel()
	return j.Service.Warm(ctx, companyID)
}

func (j *ReportsWarmupJob) obtain(ctx context.Context) (*redislock.Lock, error) {
	if j.Locker == nil {
		return nil, nil
	}
	ttl := j.LockTTL
	if ttl <= 0 {
		ttl = defaultWarmupLock
	}
	return j.Locker.Obtain(ctx, warmupLockKey, ttl, nil)
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
