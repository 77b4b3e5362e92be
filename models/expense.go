package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense exists here only as a debt source document; expense management
// itself lives outside the engine.
type Expense struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"size:255" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	AccountId int             `gorm:"index;default:0" json:"account_id"`
	Status    DebtStatus      `gorm:"type:enum('paid','unpaid');default:'unpaid'" json:"status"`
	BranchId  int             `gorm:"index" json:"branch_id"`
	Visible   *bool           `gorm:"not null;default:true" json:"visible"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
