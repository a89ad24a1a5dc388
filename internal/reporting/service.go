package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/bookreports/internal/accounting/reports"
	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/observability"
	"github.com/odyssey-erp/bookreports/internal/platform/httpx"
	"github.com/odyssey-erp/bookreports/internal/reportcache"
	"github.com/odyssey-erp/bookreports/internal/source"
	"github.com/odyssey-erp/bookreports/internal/stock"
)

// Config carries the business rules the service applies.
type Config struct {
	FiscalStartMonth time.Month
	Tolerance        float64
	SyncRowLimit     int
	UploadTTL        time.Duration
}

// PeriodQuery is the immutable filter for a single report request.
type PeriodQuery struct {
	CompanyID int64
	From      time.Time
	To        time.Time
	View      ledger.ViewMode
}

func (q PeriodQuery) filter() source.Filter {
	return source.Filter{CompanyID: q.CompanyID, From: q.From, To: q.To}
}

func (q PeriodQuery) header() reports.Header {
	return reports.Header{
		CompanyID:   q.CompanyID,
		PeriodLabel: q.From.Format("02/01/2006") + " - " + q.To.Format("02/01/2006"),
		FilterView:  string(q.View),
	}
}

// Service builds reports from source snapshots.
type Service struct {
	loader   *source.Loader
	cache    *reportcache.Cache
	runs     source.RunStore
	enqueuer ReconcileEnqueuer
	metrics  *observability.Metrics
	logger   *slog.Logger
	cfg      Config
	calendar stock.FiscalCalendar
	now      func() time.Time
}

// NewService constructs the reporting service. cache, runs and metrics are optional.
func NewService(loader *source.Loader, cache *reportcache.Cache, runs source.RunStore, metrics *observability.Metrics, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SyncRowLimit <= 0 {
		cfg.SyncRowLimit = 5000
	}
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = time.Hour
	}
	return &Service{
		loader:   loader,
		cache:    cache,
		runs:     runs,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		calendar: stock.NewFiscalCalendar(cfg.FiscalStartMonth),
		now:      time.Now,
	}
}

// Calendar exposes the configured fiscal calendar.
func (s *Service) Calendar() stock.FiscalCalendar {
	return s.calendar
}

// CurrentFiscalYear returns the bounds of the fiscal year containing now.
func (s *Service) CurrentFiscalYear() (int, time.Time, time.Time) {
	fy := s.calendar.FiscalYear(s.now())
	from, to := s.calendar.Bounds(fy, time.UTC)
	return fy, from, to.AddDate(0, 0, -1)
}

func (s *Service) snapshot(ctx context.Context, filter source.Filter, sets source.Dataset) (*source.Snapshot, error) {
	snap, err := s.loader.Snapshot(ctx, filter, sets)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveFeedFailures(snap.Failed)
	return snap, nil
}

func hierarchyOf(snap *source.Snapshot) (*ledger.Hierarchy, error) {
	h, err := snap.Hierarchy()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
	}
	return h, nil
}

// cached serves kind from the report cache or builds it. Results built from a snapshot
// with failed feeds are returned but not stored.
func cached[T any](ctx context.Context, s *Service, kind string, q PeriodQuery, build func(context.Context) (T, []string, error)) (T, error) {
	var out T
	key, err := s.cache.ReportKey(ctx, kind, q.CompanyID, q.From.Format("2006-01-02"), q.To.Format("2006-01-02"), string(q.View))
	if err != nil {
		s.logger.Warn("report cache key failed", slog.String("report", kind), slog.Any("error", err))
		key = ""
	}
	if key != "" {
		hit, err := s.cache.Lookup(ctx, key, &out)
		if err != nil {
			s.logger.Warn("report cache lookup failed", slog.String("report", kind), slog.Any("error", err))
		}
		if hit {
			s.metrics.ObserveReport(kind, true)
			return out, nil
		}
	}

	out, failed, err := build(ctx)
	if err != nil {
		return out, err
	}
	s.metrics.ObserveReport(kind, false)
	if key != "" && len(failed) == 0 {
		if err := s.cache.Store(ctx, key, out); err != nil {
			s.logger.Warn("report cache store failed", slog.String("report", kind), slog.Any("error", err))
		}
	}
	return out, nil
}

// TrialBalance builds the trial balance for q.
func (s *Service) TrialBalance(ctx context.Context, q PeriodQuery) (reports.TrialBalanceViewModel, error) {
	return cached(ctx, s, "trial_balance", q, func(ctx context.Context) (reports.TrialBalanceViewModel, []string, error) {
		snap, err := s.snapshot(ctx, q.filter(), source.DatasetLedgers)
		if err != nil {
			return reports.TrialBalanceViewModel{}, nil, err
		}
		h, err := hierarchyOf(snap)
		if err != nil {
			return reports.TrialBalanceViewModel{}, nil, err
		}
		vm := reports.TrialBalanceViewModel{Header: q.header(), Report: reports.BuildTrialBalance(h, snap.Ledgers, snap.Turnovers)}
		vm.FailedFeeds = snap.Failed
		return vm, snap.Failed, nil
	})
}

// BalanceSheet builds the balance sheet for q.
func (s *Service) BalanceSheet(ctx context.Context, q PeriodQuery) (reports.BalanceSheetViewModel, error) {
	return cached(ctx, s, "balance_sheet", q, func(ctx context.Context) (reports.BalanceSheetViewModel, []string, error) {
		snap, err := s.snapshot(ctx, q.filter(), source.DatasetLedgers)
		if err != nil {
			return reports.BalanceSheetViewModel{}, nil, err
		}
		h, err := hierarchyOf(snap)
		if err != nil {
			return reports.BalanceSheetViewModel{}, nil, err
		}
		vm := reports.BalanceSheetViewModel{Header: q.header(), Report: reports.BuildBalanceSheet(h, snap.Ledgers, snap.Turnovers, q.View)}
		vm.FailedFeeds = snap.Failed
		return vm, snap.Failed, nil
	})
}

// ProfitAndLoss builds the profit and loss statement for q.
func (s *Service) ProfitAndLoss(ctx context.Context, q PeriodQuery) (reports.ProfitAndLossViewModel, error) {
	return cached(ctx, s, "profit_loss", q, func(ctx context.Context) (reports.ProfitAndLossViewModel, []string, error) {
		snap, err := s.snapshot(ctx, q.filter(), source.DatasetLedgers)
		if err != nil {
			return reports.ProfitAndLossViewModel{}, nil, err
		}
		h, err := hierarchyOf(snap)
		if err != nil {
			return reports.ProfitAndLossViewModel{}, nil, err
		}
		vm := reports.ProfitAndLossViewModel{Header: q.header(), Report: reports.BuildProfitAndLoss(h, snap.Ledgers, snap.Turnovers, q.View)}
		vm.FailedFeeds = snap.Failed
		return vm, snap.Failed, nil
	})
}

// GSTRegister builds the B2B/B2C voucher register for q.
func (s *Service) GSTRegister(ctx context.Context, q PeriodQuery) (reports.GSTRegisterViewModel, error) {
	return cached(ctx, s, "gst_register", q, func(ctx context.Context) (reports.GSTRegisterViewModel, []string, error) {
		snap, err := s.snapshot(ctx, q.filter(), source.DatasetVouchers)
		if err != nil {
			return reports.GSTRegisterViewModel{}, nil, err
		}
		vm := reports.GSTRegisterViewModel{Header: q.header(), Report: reports.BuildGSTRegister(snap.Vouchers)}
		vm.FailedFeeds = snap.Failed
		return vm, snap.Failed, nil
	})
}

// StockSummary sequences every batch for fiscal year fy.
func (s *Service) StockSummary(ctx context.Context, companyID int64, fy int) (reports.StockSummaryViewModel, error) {
	from, to := s.calendar.Bounds(fy, time.UTC)
	q := PeriodQuery{CompanyID: companyID, From: from, To: to.AddDate(0, 0, -1)}
	return cached(ctx, s, "stock_summary", q, func(ctx context.Context) (reports.StockSummaryViewModel, []string, error) {
		snap, err := s.snapshot(ctx, q.filter(), source.DatasetStock)
		if err != nil {
			return reports.StockSummaryViewModel{}, nil, err
		}
		vm := reports.StockSummaryViewModel{
			Header: q.header(),
			Report: reports.BuildStockSummary(snap.Movements(), s.calendar, fy, snap.Openings),
		}
		vm.FailedFeeds = snap.Failed
		return vm, snap.Failed, nil
	})
}

// GroupTotalResult is the subtree total of one group.
type GroupTotalResult struct {
	GroupID  int64              `json:"group_id"`
	Name     string             `json:"name"`
	Nature   ledger.Nature      `json:"nature"`
	Total    float64            `json:"total"`
	Subtree  int                `json:"subtree_groups"`
	Tree     []ledger.GroupNode `json:"tree"`
	Failures []string           `json:"failed_feeds,omitempty"`
}

// GroupTotal totals one group and its descendants.
func (s *Service) GroupTotal(ctx context.Context, q PeriodQuery, groupID int64) (GroupTotalResult, error) {
	snap, err := s.snapshot(ctx, q.filter(), source.DatasetLedgers)
	if err != nil {
		return GroupTotalResult{}, err
	}
	h, err := hierarchyOf(snap)
	if err != nil {
		return GroupTotalResult{}, err
	}
	g, ok := h.Group(groupID)
	if !ok {
		return GroupTotalResult{}, fmt.Errorf("group %d: %w", groupID, httpx.ErrNotFound)
	}
	return GroupTotalResult{
		GroupID:  g.ID,
		Name:     g.Name,
		Nature:   g.Nature,
		Total:    h.GroupTotal(groupID, snap.Ledgers, snap.Turnovers),
		Subtree:  len(h.ResolveSubtree(groupID)),
		Tree:     h.Tree([]int64{groupID}, snap.Ledgers, snap.Turnovers, q.View),
		Failures: snap.Failed,
	}, nil
}

// Warm rebuilds and stores the current fiscal year reports of one company.
func (s *Service) Warm(ctx context.Context, companyID int64) error {
	_, from, to := s.CurrentFiscalYear()
	for _, view := range []ledger.ViewMode{ledger.ViewDetailed, ledger.ViewSummary} {
		q := PeriodQuery{CompanyID: companyID, From: from, To: to, View: view}
		if _, err := s.BalanceSheet(ctx, q); err != nil {
			return fmt.Errorf("warm balance sheet: %w", err)
		}
		if _, err := s.ProfitAndLoss(ctx, q); err != nil {
			return fmt.Errorf("warm profit and loss: %w", err)
		}
	}
	q := PeriodQuery{CompanyID: companyID, From: from, To: to, View: ledger.ViewDetailed}
	if _, err := s.TrialBalance(ctx, q); err != nil {
		return fmt.Errorf("warm trial balance: %w", err)
	}
	return nil
}

// Companies lists active company ids.
func (s *Service) Companies(ctx context.Context) ([]int64, error) {
	return s.loader.ActiveCompanies(ctx)
}

// Invalidate drops cached reports of a company.
func (s *Service) Invalidate(ctx context.Context, companyID int64) error {
	return s.cache.Bump(ctx, companyID)
}
