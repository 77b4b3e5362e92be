package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionBalanceDeltaDeposit(t *testing.T) {
	delta := TransactionBalanceDelta(AccountTypeCash, TransactionTypeDeposit,
		decimal.NewFromInt(500), decimal.Zero)
	if delta.Cmp(decimal.NewFromInt(500)) != 0 {
		t.Fatalf("expected +500; got %s", delta.String())
	}
}

func TestTransactionBalanceDeltaWithdrawIncludesFee(t *testing.T) {
	delta := TransactionBalanceDelta(AccountTypeMobile, TransactionTypeWithdraw,
		decimal.NewFromInt(500), decimal.NewFromInt(15))
	if delta.Cmp(decimal.NewFromInt(-515)) != 0 {
		t.Fatalf("expected -515 (amount+fee); got %s", delta.String())
	}
}

func TestTransactionBalanceDeltaSupplierAccountInvertsSign(t *testing.T) {
	deposit := TransactionBalanceDelta(AccountTypeSupplier, TransactionTypeDeposit,
		decimal.NewFromInt(200), decimal.Zero)
	if deposit.Cmp(decimal.NewFromInt(-200)) != 0 {
		t.Fatalf("expected supplier deposit -200; got %s", deposit.String())
	}
	withdraw := TransactionBalanceDelta(AccountTypeSupplier, TransactionTypeWithdraw,
		decimal.NewFromInt(200), decimal.NewFromInt(10))
	if withdraw.Cmp(decimal.NewFromInt(210)) != 0 {
		t.Fatalf("expected supplier withdraw +210; got %s", withdraw.String())
	}
}

func TestImpactedBalanceDeltaMirrorsWithoutFee(t *testing.T) {
	deposit := ImpactedBalanceDelta(TransactionTypeDeposit, decimal.NewFromInt(300))
	if deposit.Cmp(decimal.NewFromInt(-300)) != 0 {
		t.Fatalf("expected impacted -300 for deposit; got %s", deposit.String())
	}
	withdraw := ImpactedBalanceDelta(TransactionTypeWithdraw, decimal.NewFromInt(300))
	if withdraw.Cmp(decimal.NewFromInt(300)) != 0 {
		t.Fatalf("expected impacted +300 for withdraw; got %s", withdraw.String())
	}
}

func TestReverseTransactionDeltaIsExactInverse(t *testing.T) {
	amount := decimal.NewFromInt(450)
	fee := decimal.NewFromInt(25)
	for _, accType := range []AccountType{AccountTypeCash, AccountTypeBank, AccountTypeMobile, AccountTypeSupplier} {
		for _, txType := range []TransactionType{TransactionTypeDeposit, TransactionTypeWithdraw} {
			do := TransactionBalanceDelta(accType, txType, amount, fee)
			undo := do.Neg()
			if !do.Add(undo).IsZero() {
				t.Fatalf("%s/%s: do+undo != 0", accType, txType)
			}
		}
	}
}
