package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bookreports/internal/jobs"
	"github.com/odyssey-erp/bookreports/internal/platform/httpx"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/reportcache"
	"github.com/odyssey-erp/bookreports/internal/reporting"
)

// Reconciler executes queued reconciliations.
type Reconciler interface {
	RunQueued(ctx context.Context, req reporting.ReconcileRequest) (reporting.ReconcileOutcome, error)
}

// ReconcileGSTJob processes GST register uploads handed off by the API.
type ReconcileGSTJob struct {
	Service Reconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReconcileGSTJob wires dependencies for the reconciliation handler.
func NewReconcileGSTJob(service Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileGSTJob {
	return &ReconcileGSTJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes reconcile:gst tasks. Expired uploads and unreadable files are not
// retried.
func (j *ReconcileGSTJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reconcile gst: handler not configured")
	}
	var req reporting.ReconcileRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return asynq.SkipRetry
	}
	logger := j.logger().With(slog.String("run_id", req.RunID), slog.Int64("company_id", req.CompanyID))

	tracker := j.metrics().Track(TaskReconcileGST)
	out, err := j.Service.RunQueued(ctx, req)
	if err != nil {
		_ = tracker.End(err)
		logger.Error("reconcile queued upload", slog.String("file", req.FileName), slog.Any("error", err))
		if errors.Is(err, reportcache.ErrUploadNotFound) || errors.Is(err, httpx.ErrValidation) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	_ = tracker.End(nil)

	stats := out.Result.Stats
	m := j.metrics()
	m.AddDiscrepancies(string(reconcile.StatusMismatch), req.CompanyID, stats.Mismatch)
	m.AddDiscrepancies(string(reconcile.StatusMissingInExternal), req.CompanyID, stats.MissingInExternal)
	m.AddDiscrepancies(string(reconcile.StatusMissingInInternal), req.CompanyID, stats.MissingInInternal)
	m.AddDiscrepancies(string(reconcile.StatusUnknownKeys), req.CompanyID, stats.UnknownKeys)

	logger.Info("completed queued reconciliation",
		slog.Int("total", stats.Total),
		slog.Int("discrepancies", stats.Discrepancies()),
		slog.Bool("persisted", out.Persisted))
	return nil
}

func (j *ReconcileGSTJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReconcileGST))
	}
	return slog.Default().With(slog.String("job", TaskReconcileGST))
}

func (j *ReconcileGSTJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
