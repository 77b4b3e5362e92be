package models

import (
	"encoding/json"
	"testing"
)

func TestSaleTypeRejectsUnknownWireValue(t *testing.T) {
	var v SaleType
	if err := json.Unmarshal([]byte(`"refund"`), &v); err == nil {
		t.Fatalf("expected error for unknown sale type")
	}
	if err := json.Unmarshal([]byte(`"cart"`), &v); err != nil {
		t.Fatalf("unexpected error for valid sale type: %v", err)
	}
	if v != SaleTypeCart {
		t.Fatalf("expected cart; got %s", v)
	}
}

func TestSaleTypeAcceptsOrderAlias(t *testing.T) {
	var v SaleType
	if err := json.Unmarshal([]byte(`"order"`), &v); err != nil {
		t.Fatalf("order is a valid wire alias: %v", err)
	}
}

func TestSaleStatusRejectsNonString(t *testing.T) {
	var v SaleStatus
	if err := json.Unmarshal([]byte(`3`), &v); err == nil {
		t.Fatalf("expected error for numeric sale status")
	}
}

func TestOrderTypeRejectsUnknownWireValue(t *testing.T) {
	var v OrderType
	if err := json.Unmarshal([]byte(`"quotation"`), &v); err == nil {
		t.Fatalf("expected error for unknown order type")
	}
	if err := json.Unmarshal([]byte(`"proforma"`), &v); err != nil {
		t.Fatalf("unexpected error for valid order type: %v", err)
	}
}

func TestTransactionTypeRejectsUnknownWireValue(t *testing.T) {
	var v TransactionType
	if err := json.Unmarshal([]byte(`"transfer"`), &v); err == nil {
		t.Fatalf("expected error for unknown transaction type")
	}
}

func TestDebtReferenceTypeCoversAllSourceDocuments(t *testing.T) {
	for _, ref := range []DebtReferenceType{
		DebtReferenceTypeSale, DebtReferenceTypePurchase, DebtReferenceTypeExpense,
		DebtReferenceTypeQuotationInvoice, DebtReferenceTypeTruckOrder,
	} {
		if !ref.Valid() {
			t.Fatalf("%s should be valid", ref)
		}
	}
	if DebtReferenceType("invoice").Valid() {
		t.Fatalf("invoice is not a debt source document")
	}
}
