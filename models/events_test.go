package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDomainEventRouting(t *testing.T) {
	sale := &Sale{ID: 7, ProductId: 3}
	var event DomainEvent = SaleCreated{Sale: sale}
	if event.Module() != "sale" || event.Action() != ActivityActionCreation || event.ReferenceId() != 7 {
		t.Fatalf("SaleCreated routed wrong: %s/%s/%d", event.Module(), event.Action(), event.ReferenceId())
	}

	event = SaleRemoved{Sale: sale}
	if event.Action() != ActivityActionDeletion {
		t.Fatalf("SaleRemoved should be a deletion")
	}

	order := &Order{ID: 9, Type: OrderTypeProforma, SaleIds: []int{1, 2}}
	event = OrderConfirmed{Order: order, StockCommitted: false}
	if event.Describe() != "proforma confirmed as invoice" {
		t.Fatalf("unexpected description: %s", event.Describe())
	}
	event = OrderConfirmed{Order: order, StockCommitted: true}
	if event.Describe() != "invoice confirmed, stock committed" {
		t.Fatalf("unexpected description: %s", event.Describe())
	}

	entry := &DebtHistory{ID: 4, TotalAmount: decimal.NewFromInt(250)}
	event = DebtSettled{Debt: &Debt{ID: 11}, Entry: entry}
	if event.ReferenceId() != 11 {
		t.Fatalf("DebtSettled should reference the debt, not the entry")
	}
}

func TestSalesDeletedReferenceIdHandlesEmptySet(t *testing.T) {
	event := SalesDeleted{}
	if event.ReferenceId() != 0 {
		t.Fatalf("empty set should reference 0")
	}
}
