package models

import "strconv"

// DomainEvent is the typed result of a primary write. The orchestrator
// routes each event explicitly to the audit trail and the outbox, so
// every cascade is visible at the call site instead of hidden in store
// hooks.
type DomainEvent interface {
	Module() string
	Action() ActivityAction
	ReferenceId() int
	Describe() string
}

type SaleCreated struct {
	Sale *Sale
}

func (e SaleCreated) Module() string         { return "sale" }
func (e SaleCreated) Action() ActivityAction { return ActivityActionCreation }
func (e SaleCreated) ReferenceId() int       { return e.Sale.ID }
func (e SaleCreated) Describe() string {
	return "sale added to cart for product " + strconv.Itoa(e.Sale.ProductId)
}

type SaleRemoved struct {
	Sale *Sale
}

func (e SaleRemoved) Module() string         { return "sale" }
func (e SaleRemoved) Action() ActivityAction { return ActivityActionDeletion }
func (e SaleRemoved) ReferenceId() int       { return e.Sale.ID }
func (e SaleRemoved) Describe() string       { return "sale removed from cart" }

type OrderCreated struct {
	Order *Order
}

func (e OrderCreated) Module() string         { return "order" }
func (e OrderCreated) Action() ActivityAction { return ActivityActionCreation }
func (e OrderCreated) ReferenceId() int       { return e.Order.ID }
func (e OrderCreated) Describe() string {
	return string(e.Order.Type) + " created with " + strconv.Itoa(len(e.Order.SaleIds)) + " sales"
}

type OrderConfirmed struct {
	Order *Order
	// StockCommitted is true for the invoice confirmation path that
	// performs the deferred stock decrement.
	StockCommitted bool
}

func (e OrderConfirmed) Module() string         { return "order" }
func (e OrderConfirmed) Action() ActivityAction { return ActivityActionModification }
func (e OrderConfirmed) ReferenceId() int       { return e.Order.ID }
func (e OrderConfirmed) Describe() string {
	if e.StockCommitted {
		return "invoice confirmed, stock committed"
	}
	return "proforma confirmed as invoice"
}

type OrderDeleted struct {
	Order *Order
}

func (e OrderDeleted) Module() string         { return "order" }
func (e OrderDeleted) Action() ActivityAction { return ActivityActionDeletion }
func (e OrderDeleted) ReferenceId() int       { return e.Order.ID }
func (e OrderDeleted) Describe() string       { return string(e.Order.Type) + " deleted" }

type SalesDeleted struct {
	SaleIds []int
}

func (e SalesDeleted) Module() string         { return "sale" }
func (e SalesDeleted) Action() ActivityAction { return ActivityActionDeletion }
func (e SalesDeleted) ReferenceId() int {
	if len(e.SaleIds) == 0 {
		return 0
	}
	return e.SaleIds[0]
}
func (e SalesDeleted) Describe() string { return strconv.Itoa(len(e.SaleIds)) + " sales deleted" }

type PurchaseCreated struct {
	Purchase *Purchase
}

func (e PurchaseCreated) Module() string         { return "purchase" }
func (e PurchaseCreated) Action() ActivityAction { return ActivityActionCreation }
func (e PurchaseCreated) ReferenceId() int       { return e.Purchase.ID }
func (e PurchaseCreated) Describe() string {
	return "purchase received for product " + strconv.Itoa(e.Purchase.ProductId)
}

type PurchaseReversed struct {
	Purchase *Purchase
}

func (e PurchaseReversed) Module() string         { return "purchase" }
func (e PurchaseReversed) Action() ActivityAction { return ActivityActionDeletion }
func (e PurchaseReversed) ReferenceId() int       { return e.Purchase.ID }
func (e PurchaseReversed) Describe() string       { return "purchase reversed" }

type DebtSettled struct {
	Debt  *Debt
	Entry *DebtHistory
}

func (e DebtSettled) Module() string         { return "debt" }
func (e DebtSettled) Action() ActivityAction { return ActivityActionModification }
func (e DebtSettled) ReferenceId() int       { return e.Debt.ID }
func (e DebtSettled) Describe() string {
	return "debt settlement of " + e.Entry.TotalAmount.String()
}

type DebtSettlementReversed struct {
	Debt  *Debt
	Entry *DebtHistory
}

func (e DebtSettlementReversed) Module() string         { return "debt" }
func (e DebtSettlementReversed) Action() ActivityAction { return ActivityActionDeletion }
func (e DebtSettlementReversed) ReferenceId() int       { return e.Debt.ID }
func (e DebtSettlementReversed) Describe() string {
	return "debt settlement of " + e.Entry.TotalAmount.String() + " reversed"
}

type ProductCreated struct {
	Product *Product
}

func (e ProductCreated) Module() string         { return "product" }
func (e ProductCreated) Action() ActivityAction { return ActivityActionCreation }
func (e ProductCreated) ReferenceId() int       { return e.Product.ID }
func (e ProductCreated) Describe() string       { return "product " + e.Product.Name + " created" }

type ProductUpdated struct {
	Old *Product
	New *Product
}

func (e ProductUpdated) Module() string         { return "product" }
func (e ProductUpdated) Action() ActivityAction { return ActivityActionModification }
func (e ProductUpdated) ReferenceId() int       { return e.New.ID }
func (e ProductUpdated) Describe() string       { return "product " + e.New.Name + " updated" }

type CustomerCreated struct {
	Customer *Customer
}

func (e CustomerCreated) Module() string         { return "customer" }
func (e CustomerCreated) Action() ActivityAction { return ActivityActionCreation }
func (e CustomerCreated) ReferenceId() int       { return e.Customer.ID }
func (e CustomerCreated) Describe() string       { return "customer " + e.Customer.Name + " created" }

type SupplierCreated struct {
	Supplier *Supplier
}

func (e SupplierCreated) Module() string         { return "supplier" }
func (e SupplierCreated) Action() ActivityAction { return ActivityActionCreation }
func (e SupplierCreated) ReferenceId() int       { return e.Supplier.ID }
func (e SupplierCreated) Describe() string       { return "supplier " + e.Supplier.Name + " created" }

