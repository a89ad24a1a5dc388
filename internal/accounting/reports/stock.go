package reports

import (
	"sort"

	"github.com/odyssey-erp/bookreports/internal/stock"
)

// StockBatch is the sequenced year of one item and batch.
type StockBatch struct {
	Key     stock.BatchKey     `json:"key"`
	Opening stock.Opening      `json:"opening"`
	Periods []stock.PeriodRow  `json:"periods"`
	Totals  stock.PeriodTotals `json:"totals"`
}

// StockSummary is the monthly stock report for a fiscal year.
type StockSummary struct {
	FiscalYear string       `json:"fiscal_year"`
	Months     []string     `json:"months"`
	Batches    []StockBatch `json:"batches"`
}

// BuildStockSummary sequences every batch within fiscal year fy. Batches without a
// declared opening use the inferred mode.
func BuildStockSummary(movements []stock.Movement, cal stock.FiscalCalendar, fy int, openings map[stock.BatchKey]stock.Opening) StockSummary {
	from, to := cal.Bounds(fy, nil)
	summary := StockSummary{FiscalYear: cal.Label(fy)}
	for _, month := range cal.Periods() {
		summary.Months = append(summary.Months, month.String())
	}

	seen := make(map[stock.BatchKey]bool)
	for _, batch := range stock.GroupByBatch(stock.Between(movements, from, to)) {
		seen[batch.Key] = true
		summary.Batches = append(summary.Batches, sequenceBatch(batch.Key, batch.Movements, cal, openings))
	}
	for _, key := range sortedKeys(openings) {
		if seen[key] || openings[key].Mode != stock.ModeOpening {
			continue
		}
		summary.Batches = append(summary.Batches, sequenceBatch(key, nil, cal, openings))
	}
	return summary
}

func sequenceBatch(key stock.BatchKey, movements []stock.Movement, cal stock.FiscalCalendar, openings map[stock.BatchKey]stock.Opening) StockBatch {
	opening, ok := openings[key]
	if !ok {
		opening = stock.Opening{Mode: stock.ModeInferred}
	}
	periods := stock.Sequence(movements, cal, opening)
	return StockBatch{Key: key, Opening: opening, Periods: periods, Totals: stock.Totals(periods)}
}

func sortedKeys(openings map[stock.BatchKey]stock.Opening) []stock.BatchKey {
	keys := make([]stock.BatchKey, 0, len(openings))
	for key := range openings {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Item != keys[j].Item {
			return keys[i].Item < keys[j].Item
		}
		return keys[i].Batch < keys[j].Batch
	})
	return keys
}
