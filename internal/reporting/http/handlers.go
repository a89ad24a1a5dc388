package reportinghttp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bookreports/internal/accounting/reports"
	"github.com/odyssey-erp/bookreports/internal/platform/httpx"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/reporting"
	"github.com/odyssey-erp/bookreports/internal/source"
	"github.com/odyssey-erp/bookreports/internal/stock"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxUpload      = 20 << 20
	defaultUploadLimit    = 10
)

// Service exposes the reporting operations used by the handler.
type Service interface {
	Calendar() stock.FiscalCalendar
	TrialBalance(ctx context.Context, q reporting.PeriodQuery) (reports.TrialBalanceViewModel, error)
	BalanceSheet(ctx context.Context, q reporting.PeriodQuery) (reports.BalanceSheetViewModel, error)
	ProfitAndLoss(ctx context.Context, q reporting.PeriodQuery) (reports.ProfitAndLossViewModel, error)
	GSTRegister(ctx context.Context, q reporting.PeriodQuery) (reports.GSTRegisterViewModel, error)
	StockSummary(ctx context.Context, companyID int64, fy int) (reports.StockSummaryViewModel, error)
	GroupTotal(ctx context.Context, q reporting.PeriodQuery, groupID int64) (reporting.GroupTotalResult, error)
	ParseUpload(name string, data []byte) (reconcile.Sheet, error)
	NeedsAsync(sheet reconcile.Sheet) bool
	Submit(ctx context.Context, q reporting.PeriodQuery, fileName string, data []byte, rows int) (reporting.Accepted, error)
	ReconcileGST(ctx context.Context, q reporting.PeriodQuery, fileName string, sheet reconcile.Sheet) (reporting.ReconcileOutcome, error)
	Invalidate(ctx context.Context, companyID int64) error
}

// Options tunes request handling.
type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
	// UploadsPerMinute limits reconciliation uploads per client.
	UploadsPerMinute int
}

// Handler serves the report and reconciliation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	tracker   *source.Tracker
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
	timeout   time.Duration
	maxUpload int64
	now       func() time.Time
}

// NewHandler constructs the reporting handler.
func NewHandler(logger *slog.Logger, service Service, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.UploadsPerMinute <= 0 {
		opts.UploadsPerMinute = defaultUploadLimit
	}
	return &Handler{
		logger:    logger,
		service:   service,
		tracker:   source.NewTracker(),
		validate:  newValidator(),
		rateLimit: httprate.Limit(opts.UploadsPerMinute, time.Minute, httprate.WithKeyFuncs(clientKeyFunc)),
		timeout:   opts.RequestTimeout,
		maxUpload: opts.MaxUploadBytes,
		now:       time.Now,
	}
}

// clientKey identifies the caller for rate limiting and superseding stale requests.
func clientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return "client:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

func clientKeyFunc(r *http.Request) (string, error) {
	return clientKey(r), nil
}

// serve runs fn under the request tracker. A newer request from the same client for the
// same route cancels this one, and its result is never written.
func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, route string, fn func(context.Context) (T, error)) {
	ctx, ticket := h.tracker.Begin(r.Context(), clientKey(r)+":"+route)
	defer h.tracker.Done(ticket)
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out, err := fn(ctx)
	if !h.tracker.Current(ticket) {
		httpx.RespondError(w, httpx.ErrSuperseded)
		return
	}
	if err != nil {
		h.fail(w, route, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, route string, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrUnprocessable):
		h.logger.Info("request rejected", slog.String("route", route), slog.Any("error", err))
	default:
		h.logger.Error("request failed", slog.String("route", route), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	q, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	serve(h, w, r, "trial-balance", func(ctx context.Context) (reports.TrialBalanceViewModel, error) {
		return h.service.TrialBalance(ctx, q)
	})
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	q, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	serve(h, w, r, "balance-sheet", func(ctx context.Context) (reports.BalanceSheetViewModel, error) {
		return h.service.BalanceSheet(ctx, q)
	})
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	q, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	serve(h, w, r, "profit-loss", func(ctx context.Context) (reports.ProfitAndLossViewModel, error) {
		return h.service.ProfitAndLoss(ctx, q)
	})
}

func (h *Handler) handleGSTRegister(w http.ResponseWriter, r *http.Request) {
	q, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	serve(h, w, r, "gst-register", func(ctx context.Context) (reports.GSTRegisterViewModel, error) {
		return h.service.GSTRegister(ctx, q)
	})
}

func (h *Handler) handleGroupTotal(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseGroupID(chi.URLParam(r, "id"))
	if !ok {
		httpx.ValidationProblem(w, map[string]string{"id": "numeric"})
		return
	}
	q, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	serve(h, w, r, "group-total", func(ctx context.Context) (reporting.GroupTotalResult, error) {
		return h.service.GroupTotal(ctx, q, groupID)
	})
}

func (h *Handler) handleStockSummary(w http.ResponseWriter, r *http.Request) {
	companyID, fy, fields := h.parseStock(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	serve(h, w, r, "stock-summary", func(ctx context.Context) (reports.StockSummaryViewModel, error) {
		return h.service.StockSummary(ctx, companyID, fy)
	})
}

func (h *Handler) handleReconcileGST(w http.ResponseWriter, r *http.Request) {
	q, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, httpx.ErrTooLarge)
			return
		}
		httpx.ValidationProblem(w, map[string]string{"file": "multipart"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"file": "required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, "reconcile-gst", err)
		return
	}
	sheet, err := h.service.ParseUpload(header.Filename, data)
	if err != nil {
		h.fail(w, "reconcile-gst", err)
		return
	}

	if h.service.NeedsAsync(sheet) {
		accepted, err := h.service.Submit(r.Context(), q, header.Filename, data, len(sheet.Records))
		if err != nil {
			h.fail(w, "reconcile-gst", err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, accepted)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		out, err := h.service.ReconcileGST(ctx, q, header.Filename, sheet)
		if err != nil {
			h.fail(w, "reconcile-gst", err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="reconciliation-`+out.RunID+`.csv"`)
		if err := writeReconcileCSV(w, out); err != nil {
			h.logger.Error("write reconciliation csv", slog.String("run_id", out.RunID), slog.Any("error", err))
		}
		return
	}

	serve(h, w, r, "reconcile-gst", func(ctx context.Context) (reporting.ReconcileOutcome, error) {
		return h.service.ReconcileGST(ctx, q, header.Filename, sheet)
	})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseGroupID(chi.URLParam(r, "id"))
	if !ok || companyID <= 0 {
		httpx.ValidationProblem(w, map[string]string{"id": "gt"})
		return
	}
	if err := h.service.Invalidate(r.Context(), companyID); err != nil {
		h.fail(w, "invalidate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
