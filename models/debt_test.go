package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecomputeDebtStatus(t *testing.T) {
	cases := []struct {
		total, paid int64
		want        DebtStatus
	}{
		{1000, 0, DebtStatusUnpaid},
		{1000, 999, DebtStatusUnpaid},
		{1000, 1000, DebtStatusPaid},
		{0, 0, DebtStatusPaid},
	}
	for _, c := range cases {
		got := RecomputeDebtStatus(decimal.NewFromInt(c.total), decimal.NewFromInt(c.paid))
		if got != c.want {
			t.Fatalf("total=%d paid=%d: expected %s; got %s", c.total, c.paid, c.want, got)
		}
	}
}

func TestDebtStatusAfterSettlementRoundTrip(t *testing.T) {
	total := decimal.NewFromInt(500)
	paid := decimal.Zero

	paid = paid.Add(decimal.NewFromInt(500))
	if RecomputeDebtStatus(total, paid) != DebtStatusPaid {
		t.Fatalf("expected paid after full settlement")
	}

	paid = paid.Sub(decimal.NewFromInt(500))
	if RecomputeDebtStatus(total, paid) != DebtStatusUnpaid {
		t.Fatalf("expected unpaid after settlement reversal")
	}
	if paid.IsNegative() {
		t.Fatalf("reversal must not drive paid amount negative")
	}
}
