package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bookreports/internal/reporting"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueReconcile carries uploaded registers too large for a request.
	QueueReconcile = "reconcile"

	// TaskReportsWarmup rebuilds cached reports of active companies.
	TaskReportsWarmup = "reports:warmup"
	// TaskReconcileGST reconciles a queued GST register upload.
	TaskReconcileGST = "reconcile:gst"
)

// WarmupPayload limits a warmup run to specific companies. Empty means all active ones.
type WarmupPayload struct {
	CompanyIDs []int64 `json:"company_ids,omitempty"`
}

// NewWarmupTask constructs a reports warmup task.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}

// NewReconcileTask constructs a GST reconciliation task.
func NewReconcileTask(req reporting.ReconcileRequest) (*asynq.Task, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileGST, data), nil
}
