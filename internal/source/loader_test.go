package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/stock"
	_ "github.com/odyssey-erp/bookreports/testing"
)

type memoryRepo struct {
	groups    []ledger.Group
	ledgers   []ledger.Ledger
	turnovers ledger.Turnovers
	vouchers  []reconcile.Voucher
	failFeeds map[string]bool
	calls     atomic.Int32
	gate      chan struct{}
}

var errBackend = errors.New("backend down")

func (r *memoryRepo) fail(name string) error {
	if r.failFeeds[name] {
		return errBackend
	}
	return nil
}

func (r *memoryRepo) ListGroups(ctx context.Context, companyID int64) ([]ledger.Group, error) {
	r.calls.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	return r.groups, r.fail("groups")
}

func (r *memoryRepo) ListLedgers(ctx context.Context, companyID int64) ([]ledger.Ledger, error) {
	if err := r.fail("ledgers"); err != nil {
		return []ledger.Ledger{{ID: 99}}, err
	}
	return r.ledgers, nil
}

func (r *memoryRepo) Turnovers(ctx context.Context, companyID int64, from, to time.Time) (ledger.Turnovers, error) {
	return r.turnovers, r.fail("turnovers")
}

func (r *memoryRepo) PurchaseHistory(ctx context.Context, companyID int64, from, to time.Time) ([]stock.HistoryRow, error) {
	return nil, r.fail("purchase_history")
}

func (r *memoryRepo) SalesHistory(ctx context.Context, companyID int64, from, to time.Time) ([]stock.HistoryRow, error) {
	return nil, r.fail("sales_history")
}

func (r *memoryRepo) BatchOpenings(ctx context.Context, companyID int64) (map[stock.BatchKey]stock.Opening, error) {
	return nil, r.fail("batch_openings")
}

func (r *memoryRepo) GSTVouchers(ctx context.Context, companyID int64, from, to time.Time) ([]reconcile.Voucher, error) {
	return r.vouchers, r.fail("gst_vouchers")
}

func (r *memoryRepo) ActiveCompanies(ctx context.Context) ([]int64, error) {
	return []int64{1}, nil
}

func TestSnapshotLoadsRequestedDatasets(t *testing.T) {
	repo := &memoryRepo{
		ledgers:   []ledger.Ledger{{ID: 1, GroupID: ledger.GroupCurrentAssets, Opening: 10}},
		turnovers: ledger.Turnovers{1: {Debit: 5}},
		vouchers:  []reconcile.Voucher{{VoucherNo: "S-1"}},
	}
	loader := NewLoader(repo, nil)

	snap, err := loader.Snapshot(context.Background(), Filter{CompanyID: 1}, DatasetLedgers)
	require.NoError(t, err)
	require.Len(t, snap.Ledgers, 1)
	require.Empty(t, snap.Vouchers)
	require.Empty(t, snap.Failed)
	require.NotNil(t, snap.Openings)

	h, err := snap.Hierarchy()
	require.NoError(t, err)
	require.InDelta(t, 15.0, h.GroupTotal(ledger.GroupCurrentAssets, snap.Ledgers, snap.Turnovers), 0.0001)
}

func TestSnapshotFailedFeedsBecomeEmpty(t *testing.T) {
	repo := &memoryRepo{
		failFeeds: map[string]bool{"ledgers": true, "turnovers": true},
		vouchers:  []reconcile.Voucher{{VoucherNo: "S-1"}},
	}
	snap, err := NewLoader(repo, nil).Snapshot(context.Background(), Filter{CompanyID: 1}, DatasetAll)
	require.NoError(t, err)
	require.Nil(t, snap.Ledgers)
	require.Empty(t, snap.Turnovers)
	require.Equal(t, []string{"ledgers", "turnovers"}, snap.Failed)
	require.Len(t, snap.Vouchers, 1)
}

func TestSnapshotCollapsesConcurrentCalls(t *testing.T) {
	repo := &memoryRepo{gate: make(chan struct{})}
	loader := NewLoader(repo, nil)

	results := make(chan *Snapshot, 2)
	for i := 0; i < 2; i++ {
		go func() {
			snap, err := loader.Snapshot(context.Background(), Filter{CompanyID: 3}, DatasetLedgers)
			if err == nil {
				results <- snap
			}
		}()
	}
	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)

	first, second := <-results, <-results
	require.Same(t, first, second)
	require.Equal(t, int32(1), repo.calls.Load())
}

func TestSnapshotCallerCancellation(t *testing.T) {
	repo := &memoryRepo{gate: make(chan struct{})}
	defer close(repo.gate)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(repo, nil).Snapshot(ctx, Filter{CompanyID: 4}, DatasetLedgers)
	require.ErrorIs(t, err, context.Canceled)
}
