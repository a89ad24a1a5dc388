package source

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/stock"
)

// Loader fetches independent feeds concurrently and assembles snapshots.
type Loader struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
	group   singleflight.Group
}

// DefaultFetchTimeout bounds a shared snapshot fetch.
const DefaultFetchTimeout = 30 * time.Second

// NewLoader constructs a Loader.
func NewLoader(repo Repository, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{repo: repo, logger: logger, timeout: DefaultFetchTimeout}
}

// WithTimeout overrides the fetch timeout.
func (l *Loader) WithTimeout(d time.Duration) *Loader {
	if d > 0 {
		l.timeout = d
	}
	return l
}

// Snapshot loads the requested datasets. Identical concurrent calls share one fetch.
// A feed that fails or times out is logged and replaced by an empty dataset; only
// cancellation of the caller's ctx is returned as an error.
func (l *Loader) Snapshot(ctx context.Context, filter Filter, sets Dataset) (*Snapshot, error) {
	ch := l.group.DoChan(filter.Key(sets), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.load(fetchCtx, filter, sets)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (l *Loader) load(ctx context.Context, filter Filter, sets Dataset) (*Snapshot, error) {
	snap := &Snapshot{Filter: filter}
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	fetch := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				l.logger.Warn("source fetch failed, using empty dataset",
					slog.String("feed", name),
					slog.Int64("company_id", filter.CompanyID),
					slog.Any("error", err))
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
			return nil
		})
	}

	if sets.Has(DatasetLedgers) {
		fetch("groups", func() (err error) {
			snap.Groups, err = l.repo.ListGroups(ctx, filter.CompanyID)
			if err != nil {
				snap.Groups = nil
			}
			return err
		})
		fetch("ledgers", func() (err error) {
			snap.Ledgers, err = l.repo.ListLedgers(ctx, filter.CompanyID)
			if err != nil {
				snap.Ledgers = nil
			}
			return err
		})
		fetch("turnovers", func() (err error) {
			snap.Turnovers, err = l.repo.Turnovers(ctx, filter.CompanyID, filter.From, filter.To)
			if err != nil {
				snap.Turnovers = nil
			}
			return err
		})
	}
	if sets.Has(DatasetStock) {
		fetch("purchase_history", func() (err error) {
			snap.Purchases, err = l.repo.PurchaseHistory(ctx, filter.CompanyID, filter.From, filter.To)
			if err != nil {
				snap.Purchases = nil
			}
			return err
		})
		fetch("sales_history", func() (err error) {
			snap.Sales, err = l.repo.SalesHistory(ctx, filter.CompanyID, filter.From, filter.To)
			if err != nil {
				snap.Sales = nil
			}
			return err
		})
		fetch("batch_openings", func() (err error) {
			snap.Openings, err = l.repo.BatchOpenings(ctx, filter.CompanyID)
			if err != nil {
				snap.Openings = nil
			}
			return err
		})
	}
	if sets.Has(DatasetVouchers) {
		fetch("gst_vouchers", func() (err error) {
			snap.Vouchers, err = l.repo.GSTVouchers(ctx, filter.CompanyID, filter.From, filter.To)
			if err != nil {
				snap.Vouchers = nil
			}
			return err
		})
	}

	_ = g.Wait()
	if snap.Turnovers == nil {
		snap.Turnovers = ledger.Turnovers{}
	}
	if snap.Openings == nil {
		snap.Openings = map[stock.BatchKey]stock.Opening{}
	}
	sort.Strings(failed)
	snap.Failed = failed
	return snap, nil
}

// ActiveCompanies lists companies that reports are warmed for.
func (l *Loader) ActiveCompanies(ctx context.Context) ([]int64, error) {
	return l.repo.ActiveCompanies(ctx)
}
