package stock

import (
	"sort"
	"strings"
	"time"
)

// Direction marks a movement as stock coming in or going out.
type Direction string

const (
	Inward  Direction = "IN"
	Outward Direction = "OUT"
)

// Movement is one dated stock event for an item and batch.
type Movement struct {
	Item      string    `json:"item"`
	Batch     string    `json:"batch"`
	Date      time.Time `json:"date"`
	Direction Direction `json:"direction"`
	Qty       float64   `json:"qty"`
	Rate      float64   `json:"rate"`
}

// Value is quantity times rate.
func (m Movement) Value() float64 {
	return m.Qty * m.Rate
}

// HistoryRow is one purchase or sales history line.
type HistoryRow struct {
	Item  string
	Batch string
	Date  time.Time
	Qty   float64
	Rate  float64
}

// BuildMovements turns purchase history into inward and sales history into outward
// movements. Rows without a date cannot be placed and are dropped.
func BuildMovements(purchases, sales []HistoryRow) []Movement {
	out := make([]Movement, 0, len(purchases)+len(sales))
	appendRows := func(rows []HistoryRow, dir Direction) {
		for _, row := range rows {
			if row.Date.IsZero() {
				continue
			}
			out = append(out, Movement{
				Item:      strings.TrimSpace(row.Item),
				Batch:     strings.TrimSpace(row.Batch),
				Date:      row.Date,
				Direction: dir,
				Qty:       row.Qty,
				Rate:      row.Rate,
			})
		}
	}
	appendRows(purchases, Inward)
	appendRows(sales, Outward)
	return out
}

// BatchKey identifies an item and batch.
type BatchKey struct {
	Item  string `json:"item"`
	Batch string `json:"batch"`
}

// BatchMovements are the movements of one batch in input order.
type BatchMovements struct {
	Key       BatchKey
	Movements []Movement
}

// GroupByBatch splits movements per item and batch, ordered by item then batch.
func GroupByBatch(movements []Movement) []BatchMovements {
	index := make(map[BatchKey]int)
	var out []BatchMovements
	for _, m := range movements {
		key := BatchKey{Item: m.Item, Batch: m.Batch}
		idx, ok := index[key]
		if !ok {
			idx = len(out)
			index[key] = idx
			out = append(out, BatchMovements{Key: key})
		}
		out[idx].Movements = append(out[idx].Movements, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key.Item != out[j].Key.Item {
			return out[i].Key.Item < out[j].Key.Item
		}
		return out[i].Key.Batch < out[j].Key.Batch
	})
	return out
}

// Between keeps movements dated in [from, to).
func Between(movements []Movement, from, to time.Time) []Movement {
	out := make([]Movement, 0, len(movements))
	for _, m := range movements {
		if m.Date.Before(from) || !m.Date.Before(to) {
			continue
		}
		out = append(out, m)
	}
	return out
}
