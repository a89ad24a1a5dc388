package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bookreports/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/bookreports/internal/jobs"
	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/reporting"
)

// TaskLedgerIntegrity checks that every active company's books still balance.
const TaskLedgerIntegrity = "ledger:integrity"

// IntegrityStatus is the discrepancy label used when a company fails the check.
const (
	IntegrityUnbalanced = "UNBALANCED"
	IntegrityMalformed  = "MALFORMED_HIERARCHY"
)

// IntegritySource provides the reports the check inspects.
type IntegritySource interface {
	Companies(ctx context.Context) ([]int64, error)
	CurrentFiscalYear() (int, time.Time, time.Time)
	TrialBalance(ctx context.Context, q reporting.PeriodQuery) (reports.TrialBalanceViewModel, error)
}

// LedgerIntegrityJob builds the current trial balance of each company and reports
// closing columns that disagree and group hierarchies that cannot be resolved.
type LedgerIntegrityJob struct {
	Service IntegritySource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes ledger:integrity tasks. Findings are logged and counted; the task
// only fails when the reports cannot be built at all.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	logger := j.logger()
	tracker := j.metrics().Track(TaskLedgerIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	companies, err := j.Service.Companies(ctx)
	if err != nil {
		resultErr = err
		return resultErr
	}
	_, from, to := j.Service.CurrentFiscalYear()
	findings := 0
	for _, companyID := range companies {
		q := reporting.PeriodQuery{CompanyID: companyID, From: from, To: to, View: ledger.ViewDetailed}
		vm, err := j.Service.TrialBalance(ctx, q)
		switch {
		case errors.Is(err, ledger.ErrMalformedHierarchy):
			findings++
			j.metrics().AddDiscrepancies(IntegrityMalformed, companyID, 1)
			logger.Warn("group hierarchy malformed", slog.Int64("company_id", companyID), slog.Any("error", err))
		case err != nil:
			resultErr = fmt.Errorf("company %d: %w", companyID, err)
			return resultErr
		case !vm.Report.Balanced():
			findings++
			j.metrics().AddDiscrepancies(IntegrityUnbalanced, companyID, 1)
			logger.Warn("trial balance does not balance",
				slog.Int64("company_id", companyID),
				slog.Float64("closing_dr", vm.Report.TotalClosingDr),
				slog.Float64("closing_cr", vm.Report.TotalClosingCr),
				slog.Float64("difference", math.Abs(vm.Report.TotalClosingDr-vm.Report.TotalClosingCr)))
		}
	}
	logger.Info("ledger integrity check executed", slog.Int("companies", len(companies)), slog.Int("findings", findings))
	return resultErr
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
