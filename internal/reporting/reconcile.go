package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bookreports/internal/platform/httpx"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/source"
)

// ReconcileRequest is the payload of a queued reconciliation.
type ReconcileRequest struct {
	RunID     string    `json:"run_id"`
	CompanyID int64     `json:"company_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	FileName  string    `json:"file_name"`
	Upload    string    `json:"upload"`
}

// ReconcileEnqueuer hands a reconciliation to the background worker.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, req ReconcileRequest) error
}

// ReconcileOutcome is the response of a finished reconciliation.
type ReconcileOutcome struct {
	RunID       string                  `json:"run_id"`
	FileName    string                  `json:"file_name"`
	Mapping     reconcile.ColumnMapping `json:"mapping"`
	KeysKnown   bool                    `json:"keys_known"`
	Result      reconcile.Result        `json:"result"`
	Persisted   bool                    `json:"persisted"`
	FailedFeeds []string                `json:"failed_feeds,omitempty"`
}

// Accepted describes a reconciliation queued for background processing.
type Accepted struct {
	RunID string `json:"run_id"`
	Rows  int    `json:"rows"`
}

// WithEnqueuer enables background reconciliation of large uploads.
func (s *Service) WithEnqueuer(e ReconcileEnqueuer) *Service {
	s.enqueuer = e
	return s
}

// ParseUpload reads an uploaded register. Unreadable files are validation errors.
func (s *Service) ParseUpload(name string, data []byte) (reconcile.Sheet, error) {
	sheet, err := reconcile.ReadFile(name, bytes.NewReader(data))
	if err != nil {
		return reconcile.Sheet{}, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return sheet, nil
}

// NeedsAsync reports whether sheet is too large to reconcile within a request.
func (s *Service) NeedsAsync(sheet reconcile.Sheet) bool {
	return s.enqueuer != nil && len(sheet.Records) > s.cfg.SyncRowLimit
}

// Submit stores the upload and queues it for the worker.
func (s *Service) Submit(ctx context.Context, q PeriodQuery, fileName string, data []byte, rows int) (Accepted, error) {
	if s.enqueuer == nil {
		return Accepted{}, errors.New("reporting: background reconciliation disabled")
	}
	handle, err := s.cache.PutUpload(ctx, data, s.cfg.UploadTTL)
	if err != nil {
		return Accepted{}, fmt.Errorf("store upload: %w", err)
	}
	req := ReconcileRequest{
		RunID:     uuid.NewString(),
		CompanyID: q.CompanyID,
		From:      q.From,
		To:        q.To,
		FileName:  fileName,
		Upload:    handle,
	}
	if err := s.enqueuer.EnqueueReconcile(ctx, req); err != nil {
		return Accepted{}, fmt.Errorf("enqueue reconcile: %w", err)
	}
	return Accepted{RunID: req.RunID, Rows: rows}, nil
}

// ReconcileGST matches an external GST register against the book vouchers of q.
func (s *Service) ReconcileGST(ctx context.Context, q PeriodQuery, fileName string, sheet reconcile.Sheet) (ReconcileOutcome, error) {
	return s.reconcileSheet(ctx, uuid.New(), q, fileName, sheet)
}

// RunQueued executes a reconciliation that was handed to the worker.
func (s *Service) RunQueued(ctx context.Context, req ReconcileRequest) (ReconcileOutcome, error) {
	runID, err := uuid.Parse(req.RunID)
	if err != nil {
		return ReconcileOutcome{}, fmt.Errorf("%w: run id: %w", httpx.ErrValidation, err)
	}
	data, err := s.cache.TakeUpload(ctx, req.Upload)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	sheet, err := s.ParseUpload(req.FileName, data)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	q := PeriodQuery{CompanyID: req.CompanyID, From: req.From, To: req.To}
	return s.reconcileSheet(ctx, runID, q, req.FileName, sheet)
}

func (s *Service) reconcileSheet(ctx context.Context, runID uuid.UUID, q PeriodQuery, fileName string, sheet reconcile.Sheet) (ReconcileOutcome, error) {
	snap, err := s.snapshot(ctx, q.filter(), source.DatasetVouchers)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	external, err := reconcile.DetectColumns(sheet.Headers, reconcile.DefaultRules)
	if err != nil && !errors.Is(err, reconcile.ErrUnknownKeys) {
		return ReconcileOutcome{}, err
	}
	matcher := reconcile.NewMatcher(reconcile.VoucherMapping(), external, reconcile.GSTChecks, s.cfg.Tolerance)
	result := matcher.Reconcile(reconcile.VoucherRecords(snap.Vouchers), sheet.Records)
	s.metrics.ObserveReconcile(statusCounts(result.Stats))

	out := ReconcileOutcome{
		RunID:       runID.String(),
		FileName:    fileName,
		Mapping:     external,
		KeysKnown:   matcher.KeysKnown(),
		Result:      result,
		FailedFeeds: snap.Failed,
	}
	logger := s.logger.With(slog.String("run_id", out.RunID), slog.Int64("company_id", q.CompanyID))
	if s.runs != nil {
		run := source.Run{
			ID:        runID,
			CompanyID: q.CompanyID,
			FileName:  fileName,
			From:      q.From,
			To:        q.To,
			CreatedAt: s.now().UTC(),
			Stats:     result.Stats,
			Rows:      result.Rows,
		}
		if err := s.runs.SaveRun(ctx, run); err != nil {
			logger.Warn("persist reconciliation run failed", slog.Any("error", err))
		} else {
			out.Persisted = true
		}
	}
	logger.Info("gst reconciliation finished",
		slog.Int("total", result.Stats.Total),
		slog.Int("matched", result.Stats.Matched),
		slog.Int("discrepancies", result.Stats.Discrepancies()),
	)
	return out, nil
}

func statusCounts(stats reconcile.Stats) map[string]int {
	return map[string]int{
		string(reconcile.StatusMatched):           stats.Matched,
		string(reconcile.StatusMismatch):          stats.Mismatch,
		string(reconcile.StatusMissingInExternal): stats.MissingInExternal,
		string(reconcile.StatusMissingInInternal): stats.MissingInInternal,
		string(reconcile.StatusUnknownKeys):       stats.UnknownKeys,
	}
}
