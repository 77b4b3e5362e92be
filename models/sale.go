package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

// Sale is one cart line item. It is born as type=cart, becomes type=sale
// when folded into an Order, and type=invoice when the Order is confirmed
// as an invoice. Exactly one Order owns it once committed.
type Sale struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	CustomerId   int             `gorm:"index;default:0" json:"customer_id"`
	OrderNumber  string          `gorm:"size:100;index" json:"order_number"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Profit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"profit"`
	Discount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	StockBefore  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_before"`
	StockAfter   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_after"`
	Type         SaleType        `gorm:"type:enum('cart','sale','invoice');not null;index" json:"type"`
	Status       SaleStatus      `gorm:"type:enum('cash','credit','invoice');not null;index" json:"status"`
	BranchId     int             `gorm:"index" json:"branch_id"`
	Visible      *bool           `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSale struct {
	ProductId    int             `json:"product_id" validate:"required"`
	CustomerId   int             `json:"customer_id"`
	OrderNumber  string          `json:"order_number"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Type         SaleType        `json:"type" validate:"required"`
	Status       SaleStatus      `json:"status" validate:"required"`
}

// SaleAmounts are the monetary fields derived from the product's current
// prices at the moment of sale.
type SaleAmounts struct {
	TotalAmount decimal.Decimal
	Profit      decimal.Decimal
	Discount    decimal.Decimal
}

// ComputeSaleAmounts derives total/profit/discount for qty units sold at
// soldPrice against a product's current buying and list selling prices.
// Discount only accrues when the item is sold under list price.
func ComputeSaleAmounts(buyingPrice, listPrice, soldPrice, qty decimal.Decimal) SaleAmounts {
	total := soldPrice.Mul(qty)
	profit := soldPrice.Sub(buyingPrice).Mul(qty)
	discount := utils.DecimalMax(listPrice.Sub(soldPrice), decimal.Zero).Mul(qty)
	return SaleAmounts{TotalAmount: total, Profit: profit, Discount: discount}
}

// GetSale returns the visible sale or ErrorRecordNotFound.
func GetSale(ctx context.Context, id int) (*Sale, error) {
	var sale Sale
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&sale).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &sale, nil
}

// GetSales loads all visible sales for the given ids; missing ids are a
// not-found error so callers fail before mutating anything.
func GetSales(ctx context.Context, ids []int) ([]*Sale, error) {
	unq := utils.UniqueSlice(ids)
	var sales []*Sale
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id IN ? AND visible = true", unq).Find(&sales).Error; err != nil {
		return nil, err
	}
	if len(sales) != len(unq) {
		return nil, utils.ErrorRecordNotFound
	}
	return sales, nil
}

// GetSalesIncludingHidden loads sales regardless of visibility. Hard
// deletion must reach sales an order delete already hid, or the stock
// they still hold could never be given back.
func GetSalesIncludingHidden(ctx context.Context, ids []int) ([]*Sale, error) {
	unq := utils.UniqueSlice(ids)
	var sales []*Sale
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id IN ?", unq).Find(&sales).Error; err != nil {
		return nil, err
	}
	if len(sales) != len(unq) {
		return nil, utils.ErrorRecordNotFound
	}
	return sales, nil
}

// CartList lists visible cart-stage sales, newest first, optionally
// scoped to a branch.
func CartList(ctx context.Context, branchId int) ([]*Sale, error) {
	var sales []*Sale
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("type = ? AND visible = true", SaleTypeCart)
	if branchId > 0 {
		dbCtx = dbCtx.Where("branch_id = ?", branchId)
	}
	if err := dbCtx.Order("id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
