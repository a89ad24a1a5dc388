package stock

import (
	"sort"
	"time"
)

// OpeningMode says whether a batch opening is an authoritative figure.
type OpeningMode string

const (
	ModeOpening  OpeningMode = "opening"
	ModeInferred OpeningMode = "inferred"
)

// Opening is the starting stock of a batch.
type Opening struct {
	Mode  OpeningMode `json:"mode"`
	Qty   float64     `json:"qty"`
	Value float64     `json:"value"`
}

// PeriodRow is one fiscal month of a running balance. Closing values are nil while
// suppressed.
type PeriodRow struct {
	Index        int        `json:"index"`
	Month        time.Month `json:"month"`
	Label        string     `json:"label"`
	InwardQty    float64    `json:"inward_qty"`
	InwardValue  float64    `json:"inward_value"`
	OutwardQty   float64    `json:"outward_qty"`
	OutwardValue float64    `json:"outward_value"`
	ClosingQty   *float64   `json:"closing_qty"`
	ClosingValue *float64   `json:"closing_value"`
}

// Sequence sorts movements by date and produces running closing balances for all twelve
// fiscal periods. The year is anchored to the fiscal year of the earliest movement;
// movements dated in any other fiscal year are left out. Outside ModeOpening the
// opening is ignored and closings before the first movement's period stay nil.
func Sequence(movements []Movement, cal FiscalCalendar, opening Opening) []PeriodRow {
	sorted := make([]Movement, len(movements))
	copy(sorted, movements)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	if len(sorted) > 0 {
		fy := cal.FiscalYear(sorted[0].Date)
		kept := sorted[:0]
		for _, m := range sorted {
			if cal.FiscalYear(m.Date) == fy {
				kept = append(kept, m)
			}
		}
		sorted = kept
	}

	rows := make([]PeriodRow, 12)
	for i, month := range cal.Periods() {
		rows[i] = PeriodRow{Index: i, Month: month, Label: month.String()}
	}

	var qty, value float64
	firstVisible := 0
	if opening.Mode == ModeOpening {
		qty, value = opening.Qty, opening.Value
	} else if len(sorted) > 0 {
		firstVisible = cal.PeriodIndex(sorted[0].Date)
	} else {
		firstVisible = len(rows)
	}

	closingQty := make([]float64, 12)
	closingValue := make([]float64, 12)
	touched := make([]bool, 12)
	for _, m := range sorted {
		idx := cal.PeriodIndex(m.Date)
		row := &rows[idx]
		if m.Direction == Outward {
			qty -= m.Qty
			value -= m.Value()
			row.OutwardQty += m.Qty
			row.OutwardValue += m.Value()
		} else {
			qty += m.Qty
			value += m.Value()
			row.InwardQty += m.Qty
			row.InwardValue += m.Value()
		}
		closingQty[idx], closingValue[idx] = qty, value
		touched[idx] = true
	}

	carryQty, carryValue := 0.0, 0.0
	if opening.Mode == ModeOpening {
		carryQty, carryValue = opening.Qty, opening.Value
	}
	for i := range rows {
		if touched[i] {
			carryQty, carryValue = closingQty[i], closingValue[i]
		}
		if i < firstVisible {
			continue
		}
		q, v := carryQty, carryValue
		rows[i].ClosingQty = &q
		rows[i].ClosingValue = &v
	}
	return rows
}

// PeriodTotals sums a sequenced year.
type PeriodTotals struct {
	InwardQty    float64 `json:"inward_qty"`
	InwardValue  float64 `json:"inward_value"`
	OutwardQty   float64 `json:"outward_qty"`
	OutwardValue float64 `json:"outward_value"`
	ClosingQty   float64 `json:"closing_qty"`
	ClosingValue float64 `json:"closing_value"`
}

// Totals aggregates period rows; the closing is taken from the last visible period.
func Totals(rows []PeriodRow) PeriodTotals {
	var t PeriodTotals
	for _, row := range rows {
		t.InwardQty += row.InwardQty
		t.InwardValue += row.InwardValue
		t.OutwardQty += row.OutwardQty
		t.OutwardValue += row.OutwardValue
		if row.ClosingQty != nil {
			t.ClosingQty = *row.ClosingQty
			t.ClosingValue = *row.ClosingValue
		}
	}
	return t
}
