package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

// Account holds a monetary balance. The balance is only ever mutated by
// creating or soft-deleting a Transaction; nothing else writes it.
type Account struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Type      AccountType     `gorm:"type:enum('cash','bank','mobile','supplier');not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	Fee       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fee"`
	BranchId  int             `gorm:"index" json:"branch_id"`
	Visible   *bool           `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Transaction is the append-only ledger entry paired with every balance
// mutation. AccountToImpact carries the far side of a two-sided movement
// (transfers); it receives the mirrored delta.
type Transaction struct {
	ID              int             `gorm:"primary_key" json:"id"`
	AccountId       int             `gorm:"index;not null" json:"account_id"`
	Type            TransactionType `gorm:"type:enum('deposit','withdraw');not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Fee             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fee"`
	AccountToImpact int             `gorm:"index;default:0" json:"account_to_impact"`
	ReferenceType   string          `gorm:"size:50;index" json:"reference_type"`
	ReferenceId     int             `gorm:"index;default:0" json:"reference_id"`
	Description     string          `gorm:"size:255" json:"description"`
	BranchId        int             `gorm:"index" json:"branch_id"`
	Visible         *bool           `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewTransaction struct {
	AccountId       int             `json:"account_id" validate:"required"`
	Type            TransactionType `json:"type" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Fee             decimal.Decimal `json:"fee"`
	AccountToImpact int             `json:"account_to_impact"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceId     int             `json:"reference_id"`
	Description     string          `json:"description"`
}

// TransactionBalanceDelta is the signed amount a transaction applies to
// its primary account's balance: +amount for a deposit, -(amount+fee)
// for a withdrawal, with the sign inverted for supplier-type accounts
// (a supplier account balance tracks what we owe, so money moving to the
// supplier reduces it).
func TransactionBalanceDelta(accountType AccountType, txType TransactionType, amount, fee decimal.Decimal) decimal.Decimal {
	var delta decimal.Decimal
	switch txType {
	case TransactionTypeDeposit:
		delta = amount
	case TransactionTypeWithdraw:
		delta = amount.Add(fee).Neg()
	default:
		return decimal.Zero
	}
	if accountType == AccountTypeSupplier {
		delta = delta.Neg()
	}
	return delta
}

// ImpactedBalanceDelta is the mirrored delta applied to AccountToImpact:
// what leaves one account arrives at the other, fee excluded.
func ImpactedBalanceDelta(txType TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch txType {
	case TransactionTypeDeposit:
		return amount.Neg()
	case TransactionTypeWithdraw:
		return amount
	}
	return decimal.Zero
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	var account Account
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&account).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &account, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	var transaction Transaction
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&transaction).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &transaction, nil
}
