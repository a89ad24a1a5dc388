package reports

import (
	"github.com/odyssey-erp/bookreports/internal/ledger"
)

// ProfitAndLossGroup is one primary income or expense group.
type ProfitAndLossGroup struct {
	GroupID int64              `json:"group_id"`
	Name    string             `json:"name"`
	Amount  float64            `json:"amount"`
	Tree    []ledger.GroupNode `json:"tree,omitempty"`
}

// ProfitAndLossSection groups primary groups by nature.
type ProfitAndLossSection struct {
	Label  string               `json:"label"`
	Groups []ProfitAndLossGroup `json:"groups"`
	Total  float64              `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Income    ProfitAndLossSection `json:"income"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetProfit float64              `json:"net_profit"`
}

// BuildProfitAndLoss totals primary groups of income and expense nature.
func BuildProfitAndLoss(h *ledger.Hierarchy, ledgers []ledger.Ledger, turnovers ledger.Turnovers, mode ledger.ViewMode) ProfitAndLoss {
	income := ProfitAndLossSection{Label: "Income"}
	expense := ProfitAndLossSection{Label: "Expenses"}

	for _, rootID := range h.Roots() {
		root, _ := h.Group(rootID)
		var section *ProfitAndLossSection
		switch root.Nature {
		case ledger.NatureIncome:
			section = &income
		case ledger.NatureExpenses:
			section = &expense
		default:
			continue
		}
		amount := h.GroupTotal(rootID, ledgers, turnovers)
		if mode == ledger.ViewSummary && amount == 0 {
			continue
		}
		section.Groups = append(section.Groups, ProfitAndLossGroup{
			GroupID: rootID,
			Name:    root.Name,
			Amount:  amount,
			Tree:    h.Tree([]int64{rootID}, ledgers, turnovers, mode),
		})
		section.Total += amount
	}

	return ProfitAndLoss{
		Income:    income,
		Expense:   expense,
		NetProfit: income.Total - expense.Total,
	}
}
