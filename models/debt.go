package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

// Debt tracks an outstanding amount owed by a customer (debtor) or to a
// supplier (creditor). PaidAmount only ever advances through DebtHistory
// entries. Invariant: PaidAmount <= TotalAmount, Status == paid iff they
// are equal.
type Debt struct {
	ID            int               `gorm:"primary_key" json:"id"`
	Type          DebtType          `gorm:"type:enum('debtor','creditor');not null;index" json:"type"`
	Status        DebtStatus        `gorm:"type:enum('paid','unpaid');not null;index" json:"status"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	ReferenceType DebtReferenceType `gorm:"type:enum('sale','purchase','expense','quotation_invoice','truck_order');not null;index:idx_debt_ref,priority:1" json:"reference_type"`
	ReferenceId   int               `gorm:"not null;index:idx_debt_ref,priority:2" json:"reference_id"`
	CustomerId    int               `gorm:"index;default:0" json:"customer_id"`
	SupplierId    int               `gorm:"index;default:0" json:"supplier_id"`
	BranchId      int               `gorm:"index" json:"branch_id"`
	Visible       *bool             `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// DebtHistory is one settlement event against a Debt. Append-only;
// "deleting" one is a visibility flip plus the exact inverse arithmetic.
type DebtHistory struct {
	ID            int             `gorm:"primary_key" json:"id"`
	DebtId        int             `gorm:"index;not null" json:"debt_id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	AccountId     int             `gorm:"index;default:0" json:"account_id"`
	TransactionId int             `gorm:"index;default:0" json:"transaction_id"`
	Description   string          `gorm:"size:255" json:"description"`
	Visible       *bool           `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// RecomputeDebtStatus applies the paid-iff-fully-settled rule.
func RecomputeDebtStatus(totalAmount, paidAmount decimal.Decimal) DebtStatus {
	if paidAmount.GreaterThanOrEqual(totalAmount) {
		return DebtStatusPaid
	}
	return DebtStatusUnpaid
}

func GetDebt(ctx context.Context, id int) (*Debt, error) {
	var debt Debt
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&debt).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &debt, nil
}

func GetDebtHistory(ctx context.Context, id int) (*DebtHistory, error) {
	var entry DebtHistory
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&entry).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &entry, nil
}

// DebtForReference finds the visible Debt keyed to a source document.
func DebtForReference(ctx context.Context, refType DebtReferenceType, refId int) (*Debt, error) {
	var debt Debt
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ? AND visible = true", refType, refId).
		First(&debt).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &debt, nil
}
