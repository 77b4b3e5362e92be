package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeSaleAmountsAtListPrice(t *testing.T) {
	amounts := ComputeSaleAmounts(
		decimal.NewFromInt(700),  // buying
		decimal.NewFromInt(1000), // list
		decimal.NewFromInt(1000), // sold
		decimal.NewFromInt(3),
	)
	if amounts.TotalAmount.Cmp(decimal.NewFromInt(3000)) != 0 {
		t.Fatalf("expected total 3000; got %s", amounts.TotalAmount.String())
	}
	if amounts.Profit.Cmp(decimal.NewFromInt(900)) != 0 {
		t.Fatalf("expected profit 900; got %s", amounts.Profit.String())
	}
	if !amounts.Discount.IsZero() {
		t.Fatalf("expected no discount at list price; got %s", amounts.Discount.String())
	}
}

func TestComputeSaleAmountsUnderListPrice(t *testing.T) {
	amounts := ComputeSaleAmounts(
		decimal.NewFromInt(700),
		decimal.NewFromInt(1000),
		decimal.NewFromInt(900),
		decimal.NewFromInt(2),
	)
	if amounts.TotalAmount.Cmp(decimal.NewFromInt(1800)) != 0 {
		t.Fatalf("expected total 1800; got %s", amounts.TotalAmount.String())
	}
	if amounts.Profit.Cmp(decimal.NewFromInt(400)) != 0 {
		t.Fatalf("expected profit 400; got %s", amounts.Profit.String())
	}
	if amounts.Discount.Cmp(decimal.NewFromInt(200)) != 0 {
		t.Fatalf("expected discount 200; got %s", amounts.Discount.String())
	}
}

func TestComputeSaleAmountsOverListPriceHasNoDiscount(t *testing.T) {
	amounts := ComputeSaleAmounts(
		decimal.NewFromInt(700),
		decimal.NewFromInt(1000),
		decimal.NewFromInt(1200),
		decimal.NewFromInt(1),
	)
	if !amounts.Discount.IsZero() {
		t.Fatalf("expected no discount above list price; got %s", amounts.Discount.String())
	}
	if amounts.Profit.Cmp(decimal.NewFromInt(500)) != 0 {
		t.Fatalf("expected profit 500; got %s", amounts.Profit.String())
	}
}

func TestComputeSaleAmountsSellingAtLoss(t *testing.T) {
	amounts := ComputeSaleAmounts(
		decimal.NewFromInt(1000),
		decimal.NewFromInt(1200),
		decimal.NewFromInt(800),
		decimal.NewFromInt(2),
	)
	if amounts.Profit.Cmp(decimal.NewFromInt(-400)) != 0 {
		t.Fatalf("expected negative profit -400; got %s", amounts.Profit.String())
	}
	if amounts.Discount.Cmp(decimal.NewFromInt(800)) != 0 {
		t.Fatalf("expected discount 800; got %s", amounts.Discount.String())
	}
}
