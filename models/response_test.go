package models

import (
	"fmt"
	"testing"

	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

func TestFailEnvelopeMapsNotFound(t *testing.T) {
	env := FailEnvelope(utils.ErrorRecordNotFound)
	if env.Success {
		t.Fatalf("expected failure envelope")
	}
	if env.Message != "record not found" {
		t.Fatalf("expected record not found message; got %v", env.Message)
	}
}

func TestFailEnvelopeMapsWrappedNotFound(t *testing.T) {
	env := FailEnvelope(fmt.Errorf("load sale: %w", utils.ErrorRecordNotFound))
	if env.Message != "record not found" {
		t.Fatalf("expected wrapped not-found to map; got %v", env.Message)
	}
}

func TestFailEnvelopeCarriesInsufficientStockDetail(t *testing.T) {
	err := &utils.InsufficientStockError{
		ProductName: "Rice 5kg",
		Available:   decimal.NewFromInt(5),
		Required:    decimal.NewFromInt(8),
	}
	env := FailEnvelope(err)
	if env.Success {
		t.Fatalf("expected failure envelope")
	}
	msg, ok := env.Message.(string)
	if !ok {
		t.Fatalf("expected string message; got %T", env.Message)
	}
	if msg != "insufficient stock for Rice 5kg: available 5, required 8" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestOkEnvelopeWrapsData(t *testing.T) {
	env := OkEnvelope(map[string]int{"id": 7})
	if !env.Success {
		t.Fatalf("expected success envelope")
	}
}
