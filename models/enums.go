package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Closed string enums for every lifecycle field. Each type rejects unknown
// wire values at unmarshal time, so an invalid type/status never reaches a
// write path.

type SaleType string

const (
	SaleTypeCart    SaleType = "cart"
	SaleTypeSale    SaleType = "sale"
	SaleTypeInvoice SaleType = "invoice"
	// SaleTypeOrder is accepted on the wire by addToCart only; it is
	// normalized to cart before the row is written.
	SaleTypeOrder SaleType = "order"
)

func (t SaleType) Valid() bool {
	switch t {
	case SaleTypeCart, SaleTypeSale, SaleTypeInvoice, SaleTypeOrder:
		return true
	}
	return false
}

func (t *SaleType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("sale type must be string")
	}
	v := SaleType(s)
	if !v.Valid() {
		return fmt.Errorf("invalid sale type %q", s)
	}
	*t = v
	return nil
}

type SaleStatus string

const (
	SaleStatusCash    SaleStatus = "cash"
	SaleStatusCredit  SaleStatus = "credit"
	SaleStatusInvoice SaleStatus = "invoice"
)

func (t SaleStatus) Valid() bool {
	switch t {
	case SaleStatusCash, SaleStatusCredit, SaleStatusInvoice:
		return true
	}
	return false
}

func (t *SaleStatus) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("sale status must be string")
	}
	v := SaleStatus(s)
	if !v.Valid() {
		return fmt.Errorf("invalid sale status %q", s)
	}
	*t = v
	return nil
}

type OrderType string

const (
	OrderTypeOrder    OrderType = "order"
	OrderTypeProforma OrderType = "proforma"
	OrderTypeInvoice  OrderType = "invoice"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeOrder, OrderTypeProforma, OrderTypeInvoice:
		return true
	}
	return false
}

func (t *OrderType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("order type must be string")
	}
	v := OrderType(s)
	if !v.Valid() {
		return fmt.Errorf("invalid order type %q", s)
	}
	*t = v
	return nil
}

type OrderStatus string

const (
	OrderStatusActive  OrderStatus = "active"
	OrderStatusPending OrderStatus = "pending"
	OrderStatusDone    OrderStatus = "done"
)

func (t OrderStatus) Valid() bool {
	switch t {
	case OrderStatusActive, OrderStatusPending, OrderStatusDone:
		return true
	}
	return false
}

func (t *OrderStatus) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("order status must be string")
	}
	v := OrderStatus(s)
	if !v.Valid() {
		return fmt.Errorf("invalid order status %q", s)
	}
	*t = v
	return nil
}

type DebtType string

const (
	DebtTypeDebtor   DebtType = "debtor"
	DebtTypeCreditor DebtType = "creditor"
)

func (t DebtType) Valid() bool {
	return t == DebtTypeDebtor || t == DebtTypeCreditor
}

func (t *DebtType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("debt type must be string")
	}
	v := DebtType(s)
	if !v.Valid() {
		return fmt.Errorf("invalid debt type %q", s)
	}
	*t = v
	return nil
}

type DebtStatus string

const (
	DebtStatusPaid   DebtStatus = "paid"
	DebtStatusUnpaid DebtStatus = "unpaid"
)

type DebtReferenceType string

const (
	DebtReferenceTypeSale             DebtReferenceType = "sale"
	DebtReferenceTypePurchase         DebtReferenceType = "purchase"
	DebtReferenceTypeExpense          DebtReferenceType = "expense"
	DebtReferenceTypeQuotationInvoice DebtReferenceType = "quotation_invoice"
	DebtReferenceTypeTruckOrder       DebtReferenceType = "truck_order"
)

func (t DebtReferenceType) Valid() bool {
	switch t {
	case DebtReferenceTypeSale, DebtReferenceTypePurchase, DebtReferenceTypeExpense,
		DebtReferenceTypeQuotationInvoice, DebtReferenceTypeTruckOrder:
		return true
	}
	return false
}

func (t *DebtReferenceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("debt reference type must be string")
	}
	v := DebtReferenceType(s)
	if !v.Valid() {
		return fmt.Errorf("invalid debt reference type %q", s)
	}
	*t = v
	return nil
}

type AccountType string

const (
	AccountTypeCash     AccountType = "cash"
	AccountTypeBank     AccountType = "bank"
	AccountTypeMobile   AccountType = "mobile"
	AccountTypeSupplier AccountType = "supplier"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeMobile, AccountTypeSupplier:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdraw
}

func (t *TransactionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("transaction type must be string")
	}
	v := TransactionType(s)
	if !v.Valid() {
		return fmt.Errorf("invalid transaction type %q", s)
	}
	*t = v
	return nil
}

type AdjustmentType string

const (
	AdjustmentTypeIncrease AdjustmentType = "increase"
	AdjustmentTypeDecrease AdjustmentType = "decrease"
)

type AdjustmentSource string

const (
	AdjustmentSourceSaleCart AdjustmentSource = "sale_cart"
	AdjustmentSourcePurchase AdjustmentSource = "purchase"
	AdjustmentSourceService  AdjustmentSource = "service"
	AdjustmentSourceRequest  AdjustmentSource = "request"
	AdjustmentSourceUser     AdjustmentSource = "user"
)

type ActivityAction string

const (
	ActivityActionCreation     ActivityAction = "creation"
	ActivityActionModification ActivityAction = "modification"
	ActivityActionDeletion     ActivityAction = "deletion"
)

// Outbox publish lifecycle (Phase 0 transactional outbox).
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

type OutboxAction string

const (
	OutboxActionCreate OutboxAction = "C"
	OutboxActionUpdate OutboxAction = "U"
	OutboxActionDelete OutboxAction = "D"
)
