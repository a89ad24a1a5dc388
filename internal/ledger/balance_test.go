package ledger

import (
	"testing"

	_ "github.com/odyssey-erp/bookreports/testing"
)

func TestClosingBalanceDebitSideWithoutTurnover(t *testing.T) {
	for _, opening := range []float64{0, 125.5, -40} {
		if got := ClosingBalance(opening, SideDebit, 0, 0); got != opening {
			t.Fatalf("expected %v, got %v", opening, got)
		}
	}
}

func TestClosingBalanceCreditSide(t *testing.T) {
	got := ClosingBalance(1000, SideCredit, 150, 400)
	if got != 1250 {
		t.Fatalf("expected 1250, got %v", got)
	}
}

func TestClosingBalanceUnknownSideActsAsDebit(t *testing.T) {
	got := ClosingBalance(100, Side(""), 50, 20)
	if got != 130 {
		t.Fatalf("expected 130, got %v", got)
	}
}

func TestLedgerClosingMissingTurnover(t *testing.T) {
	l := Ledger{ID: 9, Opening: 75, Side: SideCredit}
	if got := l.Closing(nil); got != 75 {
		t.Fatalf("expected opening when turnover missing, got %v", got)
	}
	if got := l.Closing(Turnovers{1: {Debit: 10}}); got != 75 {
		t.Fatalf("expected opening for unrelated turnover, got %v", got)
	}
}

func TestBalanceDrCrSplit(t *testing.T) {
	cash := Resolve(Ledger{ID: 1, Opening: 100, Side: SideDebit}, Turnovers{1: {Credit: 150}})
	if cash.ClosingDr() != 0 || cash.ClosingCr() != 50 {
		t.Fatalf("overdrawn debit ledger should sit on credit side: %+v", cash)
	}
	capital := Resolve(Ledger{ID: 2, Opening: 500, Side: SideCredit}, nil)
	if capital.ClosingCr() != 500 || capital.ClosingDr() != 0 {
		t.Fatalf("unexpected split for capital: %+v", capital)
	}
}

func TestParseSide(t *testing.T) {
	cases := map[string]Side{"credit": SideCredit, " CR ": SideCredit, "debit": SideDebit, "": SideDebit, "x": SideDebit}
	for in, want := range cases {
		if got := ParseSide(in); got != want {
			t.Fatalf("ParseSide(%q) = %q, want %q", in, got, want)
		}
	}
}
