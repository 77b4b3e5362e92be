package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"github.com/shopspring/decimal"
)

// Adjustment is the append-only journal of every stock mutation. One row
// is written inside the same transaction as the products.stock write, so
// the pair (stock delta, journal entry) is atomic and the journal is a
// replayable history of the counter.
type Adjustment struct {
	ID               int              `gorm:"primary_key" json:"id"`
	ProductId        int              `gorm:"index;not null" json:"product_id"`
	Type             AdjustmentType   `gorm:"type:enum('increase','decrease');not null" json:"type"`
	From             AdjustmentSource `gorm:"type:enum('sale_cart','purchase','service','request','user');not null" json:"from"`
	BeforeAdjustment decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"before_adjustment"`
	AfterAdjustment  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"after_adjustment"`
	Amount           decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"amount"`
	SaleId           int              `gorm:"index;default:0" json:"sale_id"`
	PurchaseId       int              `gorm:"index;default:0" json:"purchase_id"`
	BranchId         int              `gorm:"index" json:"branch_id"`
	Visible          *bool            `gorm:"not null;default:true" json:"visible"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// AdjustmentsForSale returns the visible journal entries keyed to a sale,
// oldest first.
func AdjustmentsForSale(ctx context.Context, saleId int) ([]*Adjustment, error) {
	var rows []*Adjustment
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("sale_id = ? AND visible = true", saleId).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func AdjustmentsForProduct(ctx context.Context, productId int) ([]*Adjustment, error) {
	var rows []*Adjustment
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("product_id = ? AND visible = true", productId).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
