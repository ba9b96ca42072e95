package utxo

import (
	"testing"

	"github.com/axnchain/axnd/chainwire"
)

func amt(t *testing.T, f float64) chainwire.Amount {
	t.Helper()
	a, err := chainwire.NewAmount(f)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestCreditAndBalance(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 12), 0)
	if got := s.Balance("AXNalice", 0); got != amt(t, 12) {
		t.Fatalf("got %s want 12", got)
	}
}

func TestSelectSpendableFirstFit(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 3), 0)
	s.Credit("AXNalice", "tx2", amt(t, 4), 0)
	s.Credit("AXNalice", "tx3", amt(t, 10), 0)

	entries, ok := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	if !ok {
		t.Fatal("expected a spendable prefix")
	}
	if len(entries) != 2 || entries[0].TxID != "tx1" || entries[1].TxID != "tx2" {
		t.Fatalf("expected the shortest prefix [tx1,tx2], got %+v", entries)
	}
}

func TestSelectSpendableInsufficientFunds(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 1), 0)
	if _, ok := s.SelectSpendable("AXNalice", amt(t, 5), 0); ok {
		t.Fatal("expected no spendable prefix when funds are insufficient")
	}
}

func TestSelectSpendableSkipsReserved(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 5), 0)
	s.Credit("AXNalice", "tx2", amt(t, 5), 0)

	first, ok := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	if !ok {
		t.Fatal("expected tx1 to be spendable")
	}
	s.Reserve("AXNalice", "pending1", first)

	second, ok := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	if !ok {
		t.Fatal("expected tx2 to be spendable once tx1 is reserved")
	}
	if second[0].TxID != "tx2" {
		t.Fatalf("expected the reserved entry to be skipped, got %+v", second)
	}
}

// TestApplySpendCreatesChange covers spec.md §4.3's change-output rule.
func TestApplySpendCreatesChange(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "coinbase1", amt(t, 10), 0)
	entries, ok := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	if !ok {
		t.Fatal("expected a spendable prefix")
	}

	s.ApplySpend("AXNalice", "tx1", entries, amt(t, 5), 1)

	if got := s.Balance("AXNalice", 0); got != amt(t, 5) {
		t.Fatalf("got %s want 5 (10 spent, 5 change back)", got)
	}
	if !entries[0].Spent {
		t.Fatal("expected the consumed entry to be marked spent")
	}
}

func TestApplySpendNoChangeWhenExact(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "coinbase1", amt(t, 5), 0)
	entries, _ := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	s.ApplySpend("AXNalice", "tx1", entries, amt(t, 5), 1)

	if got := s.Balance("AXNalice", 0); got != 0 {
		t.Fatalf("got %s want 0, an exact spend should create no change", got)
	}
}

func TestApplySpendClearsReservation(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "coinbase1", amt(t, 5), 0)
	entries, _ := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	s.Reserve("AXNalice", "tx1", entries)

	if got := s.SpendableBalance("AXNalice", 0); got != 0 {
		t.Fatalf("got %s want 0 while reserved", got)
	}

	s.ApplySpend("AXNalice", "tx1", entries, amt(t, 5), 1)

	if got := s.SpendableBalance("AXNalice", 0); got != 0 {
		t.Fatalf("got %s want 0 after the entry is spent", got)
	}
}

func TestReleaseFreesReservation(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "coinbase1", amt(t, 5), 0)
	entries, _ := s.SelectSpendable("AXNalice", amt(t, 5), 0)
	s.Reserve("AXNalice", "tx1", entries)
	s.Release("AXNalice", "tx1", entries)

	if got := s.SpendableBalance("AXNalice", 0); got != amt(t, 5) {
		t.Fatalf("got %s want 5 once the reservation is released", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 5), 0)
	clone := s.Clone()
	clone.Credit("AXNalice", "tx2", amt(t, 5), 0)

	if got := s.Balance("AXNalice", 0); got != amt(t, 5) {
		t.Fatalf("mutating the clone must not affect the original, got %s", got)
	}
}

func TestTotalUnspent(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 5), 0)
	s.Credit("AXNbob", "tx2", amt(t, 7), 0)
	if got := s.TotalUnspent(); got != amt(t, 12) {
		t.Fatalf("got %s want 12", got)
	}
}

// TestBalanceSkipsUnmaturedEntries covers spec.md §4.3's
// "unlock_height <= current_height" clause, used by locked outputs such as
// time-capsule escrows.
func TestBalanceSkipsUnmaturedEntries(t *testing.T) {
	s := New()
	s.Credit("AXNalice", "tx1", amt(t, 5), 100)

	if got := s.Balance("AXNalice", 50); got != 0 {
		t.Fatalf("got %s want 0 before maturity height 100", got)
	}
	if got := s.Balance("AXNalice", 100); got != amt(t, 5) {
		t.Fatalf("got %s want 5 once maturity height is reached", got)
	}
	if _, ok := s.SelectSpendable("AXNalice", amt(t, 5), 50); ok {
		t.Fatal("expected the unmatured entry to be unselectable before its unlock height")
	}
	if _, ok := s.SelectSpendable("AXNalice", amt(t, 5), 100); !ok {
		t.Fatal("expected the entry to be selectable once matured")
	}
}
