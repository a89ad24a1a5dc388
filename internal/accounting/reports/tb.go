package reports

import (
	"sort"

	"github.com/odyssey-erp/bookreports/internal/ledger"
)

// TrialBalanceAccount represents a ledger row inside a trial balance group.
type TrialBalanceAccount struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Opening   float64 `json:"opening"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
	Closing   float64 `json:"closing"`
	ClosingDr float64 `json:"closing_dr"`
	ClosingCr float64 `json:"closing_cr"`
}

// TrialBalanceGroup aggregates ledgers under one primary group.
type TrialBalanceGroup struct {
	GroupID   int64                 `json:"group_id"`
	Name      string                `json:"name"`
	Nature    ledger.Nature         `json:"nature"`
	Accounts  []TrialBalanceAccount `json:"accounts"`
	Opening   float64               `json:"opening"`
	Debit     float64               `json:"debit"`
	Credit    float64               `json:"credit"`
	ClosingDr float64               `json:"closing_dr"`
	ClosingCr float64               `json:"closing_cr"`
}

// TrialBalance is the final structure returned to clients.
type TrialBalance struct {
	Groups         []TrialBalanceGroup `json:"groups"`
	TotalOpening   float64             `json:"total_opening"`
	TotalDebit     float64             `json:"total_debit"`
	TotalCredit    float64             `json:"total_credit"`
	TotalClosingDr float64             `json:"total_closing_dr"`
	TotalClosingCr float64             `json:"total_closing_cr"`
}

// Balanced reports whether closing debit and credit columns agree within a paisa.
func (tb TrialBalance) Balanced() bool {
	diff := tb.TotalClosingDr - tb.TotalClosingCr
	return diff < 0.005 && diff > -0.005
}

// BuildTrialBalance groups ledger balances under their primary group.
func BuildTrialBalance(h *ledger.Hierarchy, ledgers []ledger.Ledger, turnovers ledger.Turnovers) TrialBalance {
	groups := make(map[int64]*TrialBalanceGroup)
	for _, l := range ledgers {
		rootID := h.RootOf(l.GroupID)
		grp, ok := groups[rootID]
		if !ok {
			root, _ := h.Group(rootID)
			grp = &TrialBalanceGroup{GroupID: rootID, Name: root.Name, Nature: root.Nature}
			groups[rootID] = grp
		}
		bal := ledger.Resolve(l, turnovers)
		row := TrialBalanceAccount{
			ID:        l.ID,
			Name:      l.Name,
			Opening:   l.Opening,
			Debit:     bal.Debit,
			Credit:    bal.Credit,
			Closing:   bal.Closing,
			ClosingDr: bal.ClosingDr(),
			ClosingCr: bal.ClosingCr(),
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Opening += row.Opening
		grp.Debit += row.Debit
		grp.Credit += row.Credit
		grp.ClosingDr += row.ClosingDr
		grp.ClosingCr += row.ClosingCr
	}

	result := TrialBalance{}
	for _, rootID := range orderedRoots(h, groups) {
		grp := groups[rootID]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].ID < grp.Accounts[j].ID
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalOpening += grp.Opening
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
		result.TotalClosingDr += grp.ClosingDr
		result.TotalClosingCr += grp.ClosingCr
	}
	return result
}

// orderedRoots returns the ids in present following hierarchy root order, strays last.
func orderedRoots[T any](h *ledger.Hierarchy, present map[int64]T) []int64 {
	out := make([]int64, 0, len(present))
	seen := make(map[int64]bool, len(present))
	for _, id := range h.Roots() {
		if _, ok := present[id]; ok {
			out = append(out, id)
			seen[id] = true
		}
	}
	var stray []int64
	for id := range present {
		if !seen[id] {
			stray = append(stray, id)
		}
	}
	sort.Slice(stray, func(i, j int) bool { return stray[i] < stray[j] })
	return append(out, stray...)
}
