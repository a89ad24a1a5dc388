package source

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/stock"
)

// Dataset selects which backend feeds a snapshot needs.
type Dataset uint8

const (
	DatasetLedgers Dataset = 1 << iota
	DatasetStock
	DatasetVouchers

	DatasetAll = DatasetLedgers | DatasetStock | DatasetVouchers
)

// Has reports whether d includes other.
func (d Dataset) Has(other Dataset) bool {
	return d&other == other
}

// Filter scopes one snapshot. It is passed by value and never mutated.
type Filter struct {
	CompanyID int64
	From      time.Time
	To        time.Time
}

// Key identifies the filter and datasets for request collapsing and caching.
func (f Filter) Key(sets Dataset) string {
	return fmt.Sprintf("%d:%s:%s:%d", f.CompanyID, f.From.Format("2006-01-02"), f.To.Format("2006-01-02"), sets)
}

// Snapshot is a completed set of fetched inputs. Consumers must treat it as read-only.
type Snapshot struct {
	Filter    Filter
	Groups    []ledger.Group
	Ledgers   []ledger.Ledger
	Turnovers ledger.Turnovers
	Purchases []stock.HistoryRow
	Sales     []stock.HistoryRow
	Openings  map[stock.BatchKey]stock.Opening
	Vouchers  []reconcile.Voucher
	// Failed names the feeds that errored and were replaced by empty data.
	Failed []string
}

// Hierarchy validates the snapshot groups together with the built-in primary groups.
func (s *Snapshot) Hierarchy() (*ledger.Hierarchy, error) {
	return ledger.NewHierarchy(ledger.WithBuiltins(s.Groups))
}

// Movements combines purchase and sales history.
func (s *Snapshot) Movements() []stock.Movement {
	return stock.BuildMovements(s.Purchases, s.Sales)
}

// Repository is the backend the snapshots are fetched from.
type Repository interface {
	ListGroups(ctx context.Context, companyID int64) ([]ledger.Group, error)
	ListLedgers(ctx context.Context, companyID int64) ([]ledger.Ledger, error)
	Turnovers(ctx context.Context, companyID int64, from, to time.Time) (ledger.Turnovers, error)
	PurchaseHistory(ctx context.Context, companyID int64, from, to time.Time) ([]stock.HistoryRow, error)
	SalesHistory(ctx context.Context, companyID int64, from, to time.Time) ([]stock.HistoryRow, error)
	BatchOpenings(ctx context.Context, companyID int64) (map[stock.BatchKey]stock.Opening, error)
	GSTVouchers(ctx context.Context, companyID int64, from, to time.Time) ([]reconcile.Voucher, error)
	ActiveCompanies(ctx context.Context) ([]int64, error)
}
