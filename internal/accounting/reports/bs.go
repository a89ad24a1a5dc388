package reports

import (
	"github.com/odyssey-erp/bookreports/internal/ledger"
)

// BalanceSheetGroup summarises one primary group.
type BalanceSheetGroup struct {
	GroupID int64              `json:"group_id"`
	Name    string             `json:"name"`
	Total   float64            `json:"total"`
	Tree    []ledger.GroupNode `json:"tree,omitempty"`
}

// BalanceSheetSection contains the groups and totals for one side.
type BalanceSheetSection struct {
	Label  string              `json:"label"`
	Groups []BalanceSheetGroup `json:"groups"`
	Total  float64             `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets      BalanceSheetSection `json:"assets"`
	Liabilities BalanceSheetSection `json:"liabilities"`
	ProfitLoss  float64             `json:"profit_loss"`
	Difference  float64             `json:"difference"`
}

// BuildBalanceSheet totals primary asset and liability groups. The net profit of the
// period is carried to the liabilities side as the profit and loss account.
func BuildBalanceSheet(h *ledger.Hierarchy, ledgers []ledger.Ledger, turnovers ledger.Turnovers, mode ledger.ViewMode) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}

	for _, rootID := range h.Roots() {
		root, _ := h.Group(rootID)
		var section *BalanceSheetSection
		switch root.Nature {
		case ledger.NatureAssets:
			section = &assets
		case ledger.NatureLiabilities:
			section = &liabilities
		default:
			continue
		}
		total := h.GroupTotal(rootID, ledgers, turnovers)
		if mode == ledger.ViewSummary && total == 0 {
			continue
		}
		section.Groups = append(section.Groups, BalanceSheetGroup{
			GroupID: rootID,
			Name:    root.Name,
			Total:   total,
			Tree:    h.Tree([]int64{rootID}, ledgers, turnovers, mode),
		})
		section.Total += total
	}

	pl := BuildProfitAndLoss(h, ledgers, turnovers, ledger.ViewSummary)
	liabilities.Total += pl.NetProfit

	return BalanceSheet{
		Assets:      assets,
		Liabilities: liabilities,
		ProfitLoss:  pl.NetProfit,
		Difference:  assets.Total - liabilities.Total,
	}
}
