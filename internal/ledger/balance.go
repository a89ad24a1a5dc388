package ledger

import "strings"

// Side is the balance-side convention of a ledger.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// ParseSide normalises raw side labels coming from the backend. Anything that is not
// recognisably credit is treated as debit.
func ParseSide(raw string) Side {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "credit", "cr", "c":
		return SideCredit
	default:
		return SideDebit
	}
}

// ClosingBalance applies accumulated turnover to an opening balance according to the
// side convention.
func ClosingBalance(opening float64, side Side, debit, credit float64) float64 {
	if side == SideCredit {
		return opening + credit - debit
	}
	return opening + debit - credit
}

// Turnover is the accumulated debit and credit movement of a ledger over a period.
type Turnover struct {
	Debit  float64 `json:"debit"`
	Credit float64 `json:"credit"`
}

// Turnovers maps ledger ids to their period turnover.
type Turnovers map[int64]Turnover

// For returns the turnover for a ledger, zero when absent.
func (t Turnovers) For(ledgerID int64) Turnover {
	if t == nil {
		return Turnover{}
	}
	return t[ledgerID]
}

// Ledger is an individual account under a group.
type Ledger struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	GroupID     int64   `json:"group_id"`
	Opening     float64 `json:"opening"`
	Side        Side    `json:"side"`
	GroupName   string  `json:"group_name,omitempty"`
	GroupNature Nature  `json:"group_nature,omitempty"`
}

// Closing returns the closing balance of the ledger for the supplied turnover table.
func (l Ledger) Closing(turnovers Turnovers) float64 {
	t := turnovers.For(l.ID)
	return ClosingBalance(l.Opening, l.Side, t.Debit, t.Credit)
}

// Balance is a ledger with its turnover and closing resolved.
type Balance struct {
	Ledger  Ledger  `json:"ledger"`
	Debit   float64 `json:"debit"`
	Credit  float64 `json:"credit"`
	Closing float64 `json:"closing"`
}

// ClosingDr returns the closing balance when it sits on the debit side, else zero.
func (b Balance) ClosingDr() float64 {
	if b.onDebit() {
		return abs(b.Closing)
	}
	return 0
}

// ClosingCr returns the closing balance when it sits on the credit side, else zero.
func (b Balance) ClosingCr() float64 {
	if b.onDebit() {
		return 0
	}
	return abs(b.Closing)
}

func (b Balance) onDebit() bool {
	if b.Ledger.Side == SideCredit {
		return b.Closing < 0
	}
	return b.Closing >= 0
}

// Resolve computes the balance row of a ledger.
func Resolve(l Ledger, turnovers Turnovers) Balance {
	t := turnovers.For(l.ID)
	return Balance{
		Ledger:  l,
		Debit:   t.Debit,
		Credit:  t.Credit,
		Closing: ClosingBalance(l.Opening, l.Side, t.Debit, t.Credit),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
