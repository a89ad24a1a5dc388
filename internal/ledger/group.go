package ledger

import "strings"

// Nature classifies a group for statement placement.
type Nature string

const (
	NatureAssets      Nature = "Assets"
	NatureLiabilities Nature = "Liabilities"
	NatureIncome      Nature = "Income"
	NatureExpenses    Nature = "Expenses"
)

// ParseNature maps loose backend labels onto a Nature. Unknown labels map to Assets.
func ParseNature(raw string) Nature {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "liabilities", "liability":
		return NatureLiabilities
	case "income", "incomes", "revenue":
		return NatureIncome
	case "expenses", "expense":
		return NatureExpenses
	default:
		return NatureAssets
	}
}

// IsBalanceSheet reports whether groups of this nature belong on the balance sheet.
func (n Nature) IsBalanceSheet() bool {
	return n == NatureAssets || n == NatureLiabilities
}

// Group is a chart-of-accounts node.
type Group struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Nature   Nature `json:"nature"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// IsBuiltin reports whether the group is one of the predefined primary groups.
func (g Group) IsBuiltin() bool {
	return g.ID < 0
}

// Built-in primary group ids.
const (
	GroupCapitalAccount     int64 = -1
	GroupLoansLiability     int64 = -2
	GroupCurrentLiabilities int64 = -3
	GroupFixedAssets        int64 = -4
	GroupInvestments        int64 = -5
	GroupCurrentAssets      int64 = -6
	GroupBranchDivisions    int64 = -7
	GroupMiscExpensesAsset  int64 = -8
	GroupSuspense           int64 = -9
	GroupSalesAccounts      int64 = -10
	GroupPurchaseAccounts   int64 = -11
	GroupDirectIncomes      int64 = -12
	GroupIndirectIncomes    int64 = -13
	GroupDirectExpenses     int64 = -14
	GroupIndirectExpenses   int64 = -15
)

var builtinGroups = []Group{
	{ID: GroupCapitalAccount, Name: "Capital Account", Nature: NatureLiabilities},
	{ID: GroupLoansLiability, Name: "Loans (Liability)", Nature: NatureLiabilities},
	{ID: GroupCurrentLiabilities, Name: "Current Liabilities", Nature: NatureLiabilities},
	{ID: GroupFixedAssets, Name: "Fixed Assets", Nature: NatureAssets},
	{ID: GroupInvestments, Name: "Investments", Nature: NatureAssets},
	{ID: GroupCurrentAssets, Name: "Current Assets", Nature: NatureAssets},
	{ID: GroupBranchDivisions, Name: "Branch / Divisions", Nature: NatureLiabilities},
	{ID: GroupMiscExpensesAsset, Name: "Misc. Expenses (Asset)", Nature: NatureAssets},
	{ID: GroupSuspense, Name: "Suspense A/c", Nature: NatureLiabilities},
	{ID: GroupSalesAccounts, Name: "Sales Accounts", Nature: NatureIncome},
	{ID: GroupPurchaseAccounts, Name: "Purchase Accounts", Nature: NatureExpenses},
	{ID: GroupDirectIncomes, Name: "Direct Incomes", Nature: NatureIncome},
	{ID: GroupIndirectIncomes, Name: "Indirect Incomes", Nature: NatureIncome},
	{ID: GroupDirectExpenses, Name: "Direct Expenses", Nature: NatureExpenses},
	{ID: GroupIndirectExpenses, Name: "Indirect Expenses", Nature: NatureExpenses},
}

// BuiltinGroups returns a copy of the predefined primary groups in display order.
func BuiltinGroups() []Group {
	out := make([]Group, len(builtinGroups))
	copy(out, builtinGroups)
	return out
}

// WithBuiltins prepends the primary groups to user groups, skipping user rows that reuse a
// built-in id.
func WithBuiltins(groups []Group) []Group {
	out := BuiltinGroups()
	for _, g := range groups {
		if g.IsBuiltin() && isBuiltinID(g.ID) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func isBuiltinID(id int64) bool {
	for _, g := range builtinGroups {
		if g.ID == id {
			return true
		}
	}
	return false
}
