package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bookreports/internal/platform/db"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
)

// Run is a persisted reconciliation outcome. Only discrepancies are stored row by row.
type Run struct {
	ID        uuid.UUID
	CompanyID int64
	FileName  string
	From      time.Time
	To        time.Time
	CreatedAt time.Time
	Stats     reconcile.Stats
	Rows      []reconcile.Row
}

// RunStore persists reconciliation runs.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
}

type runStore struct {
	pool *pgxpool.Pool
}

// NewRunStore returns a Postgres RunStore.
func NewRunStore(pool *pgxpool.Pool) RunStore {
	return &runStore{pool: pool}
}

func (s *runStore) SaveRun(ctx context.Context, run Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("source: encode stats: %w", err)
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO reconciliation_runs (id, company_id, file_name, period_from, period_to, stats, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.ID.String(), run.CompanyID, run.FileName, run.From, run.To, stats, run.CreatedAt)
		if err != nil {
			return fmt.Errorf("source: insert run: %w", err)
		}
		batch := &pgx.Batch{}
		for idx, row := range run.Rows {
			if row.Status == reconcile.StatusMatched {
				continue
			}
			internal, _ := json.Marshal(row.Internal)
			external, _ := json.Marshal(row.External)
			batch.Queue(`INSERT INTO reconciliation_discrepancies (run_id, position, status, voucher_key, reason, internal_row, external_row)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				run.ID.String(), idx, string(row.Status), row.Key, row.Reason, internal, external)
		}
		if batch.Len() == 0 {
			return nil
		}
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("source: insert discrepancy: %w", err)
			}
		}
		return results.Close()
	})
}
