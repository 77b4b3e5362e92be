package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase is incoming stock from a supplier. Creating one increases
// Product.stock; reversing it (updatePurchase with visible=false)
// decreases stock and drops the creditor debt, but does not restore the
// product's prior price fields.
type Purchase struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	SupplierId   int             `gorm:"index;default:0" json:"supplier_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	BuyingPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"buying_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	StockBefore  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_before"`
	StockAfter   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_after"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	BranchId     int             `gorm:"index" json:"branch_id"`
	Visible      *bool           `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchase struct {
	ProductId    int             `json:"product_id" validate:"required"`
	SupplierId   int             `json:"supplier_id"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
}

type UpdatePurchaseInput struct {
	ID      int   `json:"id" validate:"required"`
	Visible *bool `json:"visible"`
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	var purchase Purchase
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&purchase).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &purchase, nil
}
