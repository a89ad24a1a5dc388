package source

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/stock"
)

const pgUndefinedTable = "42P01"

type dbtx interface {
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

type repository struct {
	db dbtx
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// isUndefinedTable reports a missing relation, which callers treat as no data.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

func collect[T any](ctx context.Context, db dbtx, scan func(pgx.Rows) (T, error), sql string, args ...interface{}) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (r *repository) ListGroups(ctx context.Context, companyID int64) ([]ledger.Group, error) {
	return collect(ctx, r.db, func(rows pgx.Rows) (ledger.Group, error) {
		var g ledger.Group
		var nature string
		err := rows.Scan(&g.ID, &g.Name, &nature, &g.ParentID)
		g.Nature = ledger.ParseNature(nature)
		return g, err
	}, `SELECT id, name, nature, parent_id
FROM account_groups
WHERE company_id = $1
ORDER BY id`, companyID)
}

func (r *repository) ListLedgers(ctx context.Context, companyID int64) ([]ledger.Ledger, error) {
	return collect(ctx, r.db, func(rows pgx.Rows) (ledger.Ledger, error) {
		var l ledger.Ledger
		var side, groupName, nature string
		err := rows.Scan(&l.ID, &l.Name, &l.GroupID, &l.Opening, &side, &groupName, &nature)
		l.Side = ledger.ParseSide(side)
		l.GroupName = groupName
		l.GroupNature = ledger.ParseNature(nature)
		return l, err
	}, `SELECT l.id, l.name, l.group_id, COALESCE(l.opening_balance, 0), COALESCE(l.balance_side, 'debit'),
       COALESCE(g.name, ''), COALESCE(g.nature, '')
FROM ledgers l
LEFT JOIN account_groups g ON g.id = l.group_id AND g.company_id = l.company_id
WHERE l.company_id = $1
ORDER BY l.id`, companyID)
}

type turnoverRow struct {
	ledgerID int64
	turnover ledger.Turnover
}

func (r *repository) Turnovers(ctx context.Context, companyID int64, from, to time.Time) (ledger.Turnovers, error) {
	rows, err := collect(ctx, r.db, func(rows pgx.Rows) (turnoverRow, error) {
		var row turnoverRow
		err := rows.Scan(&row.ledgerID, &row.turnover.Debit, &row.turnover.Credit)
		return row, err
	}, `SELECT e.ledger_id, COALESCE(SUM(e.debit), 0), COALESCE(SUM(e.credit), 0)
FROM voucher_entries e
JOIN vouchers v ON v.id = e.voucher_id
WHERE v.company_id = $1 AND v.voucher_date BETWEEN $2 AND $3
GROUP BY e.ledger_id`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	out := make(ledger.Turnovers, len(rows))
	for _, row := range rows {
		out[row.ledgerID] = row.turnover
	}
	return out, nil
}

func scanHistory(rows pgx.Rows) (stock.HistoryRow, error) {
	var h stock.HistoryRow
	err := rows.Scan(&h.Item, &h.Batch, &h.Date, &h.Qty, &h.Rate)
	return h, err
}

func (r *repository) PurchaseHistory(ctx context.Context, companyID int64, from, to time.Time) ([]stock.HistoryRow, error) {
	return collect(ctx, r.db, scanHistory, `SELECT i.name, COALESCE(p.batch_no, ''), p.purchase_date, COALESCE(p.qty, 0), COALESCE(p.rate, 0)
FROM purchase_history p
JOIN stock_items i ON i.id = p.item_id
WHERE p.company_id = $1 AND p.purchase_date BETWEEN $2 AND $3
ORDER BY p.purchase_date, p.id`, companyID, from, to)
}

func (r *repository) SalesHistory(ctx context.Context, companyID int64, from, to time.Time) ([]stock.HistoryRow, error) {
	return collect(ctx, r.db, scanHistory, `SELECT i.name, COALESCE(s.batch_no, ''), s.sale_date, COALESCE(s.qty, 0), COALESCE(s.rate, 0)
FROM sales_history s
JOIN stock_items i ON i.id = s.item_id
WHERE s.company_id = $1 AND s.sale_date BETWEEN $2 AND $3
ORDER BY s.sale_date, s.id`, companyID, from, to)
}

type openingRow struct {
	key     stock.BatchKey
	opening stock.Opening
}

func (r *repository) BatchOpenings(ctx context.Context, companyID int64) (map[stock.BatchKey]stock.Opening, error) {
	rows, err := collect(ctx, r.db, func(rows pgx.Rows) (openingRow, error) {
		var row openingRow
		var mode string
		err := rows.Scan(&row.key.Item, &row.key.Batch, &mode, &row.opening.Qty, &row.opening.Value)
		row.opening.Mode = stock.ModeInferred
		if mode == string(stock.ModeOpening) {
			row.opening.Mode = stock.ModeOpening
		}
		return row, err
	}, `SELECT i.name, COALESCE(b.batch_no, ''), COALESCE(b.mode, 'inferred'), COALESCE(b.opening_qty, 0), COALESCE(b.opening_value, 0)
FROM stock_batches b
JOIN stock_items i ON i.id = b.item_id
WHERE b.company_id = $1`, companyID)
	if err != nil {
		return nil, err
	}
	out := make(map[stock.BatchKey]stock.Opening, len(rows))
	for _, row := range rows {
		out[row.key] = row.opening
	}
	return out, nil
}

func (r *repository) GSTVouchers(ctx context.Context, companyID int64, from, to time.Time) ([]reconcile.Voucher, error) {
	return collect(ctx, r.db, func(rows pgx.Rows) (reconcile.Voucher, error) {
		var v reconcile.Voucher
		err := rows.Scan(&v.VoucherNo, &v.Date, &v.Party, &v.GSTIN, &v.Taxable, &v.CGST, &v.SGST, &v.IGST, &v.Total)
		return v, err
	}, `SELECT v.voucher_no, v.voucher_date, COALESCE(l.name, ''), COALESCE(l.gstin, ''),
       COALESCE(v.taxable_value, 0), COALESCE(v.cgst, 0), COALESCE(v.sgst, 0), COALESCE(v.igst, 0), COALESCE(v.total, 0)
FROM vouchers v
LEFT JOIN ledgers l ON l.id = v.party_ledger_id
WHERE v.company_id = $1 AND v.voucher_type = 'sales' AND v.voucher_date BETWEEN $2 AND $3
ORDER BY v.voucher_date, v.voucher_no`, companyID, from, to)
}

func (r *repository) ActiveCompanies(ctx context.Context) ([]int64, error) {
	return collect(ctx, r.db, func(rows pgx.Rows) (int64, error) {
		var id int64
		err := rows.Scan(&id)
		return id, err
	}, `SELECT id FROM companies WHERE is_active ORDER BY id`)
}
