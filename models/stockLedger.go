package models

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is the before/after capture of one products.stock write.
type StockMovement struct {
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
}

// StockRef keys a ledger mutation back to the document that caused it.
type StockRef struct {
	SaleId     int
	PurchaseId int
}

// ReserveStock decrements products.stock by qty as a single conditional
// write: `stock = stock - qty WHERE stock >= qty`. A zero modified-count
// means insufficient stock, never a silent overdraw; two concurrent
// reservations cannot race past zero. The paired Adjustment row is
// written in the same transaction, so the stock delta and its journal
// entry commit or fail together.
func ReserveStock(ctx context.Context, productId int, qty decimal.Decimal, from AdjustmentSource, ref StockRef) (*StockMovement, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("quantity", "must be positive")
	}
	db := config.GetDB()

	var movement *StockMovement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := lockProductRow(tx, productId)
		if err != nil {
			return err
		}

		res := tx.Model(&Product{}).
			Where("id = ? AND visible = true AND stock >= ?", productId, qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &utils.InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
				Required:    qty,
			}
		}

		before := product.Stock
		after := before.Sub(qty)
		movement = &StockMovement{Before: before, After: after}

		adjustment := Adjustment{
			ProductId:        productId,
			Type:             AdjustmentTypeDecrease,
			From:             from,
			BeforeAdjustment: before,
			AfterAdjustment:  after,
			Amount:           qty,
			SaleId:           ref.SaleId,
			PurchaseId:       ref.PurchaseId,
			BranchId:         product.BranchId,
			Visible:          utils.NewTrue(),
		}
		if err := tx.Create(&adjustment).Error; err != nil {
			return &utils.DependentWriteError{Primary: "stock decrement", Dependent: "adjustment journal", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	InvalidateProductCache(productId)
	return movement, nil
}

// ReleaseStock increments products.stock by qty, undoing a reservation.
// Same pairing rule as ReserveStock: no stock write without its journal
// entry.
func ReleaseStock(ctx context.Context, productId int, qty decimal.Decimal, from AdjustmentSource, ref StockRef) (*StockMovement, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("quantity", "must be positive")
	}
	db := config.GetDB()

	var movement *StockMovement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := lockProductRow(tx, productId)
		if err != nil {
			return err
		}

		res := tx.Model(&Product{}).
			Where("id = ?", productId).
			UpdateColumn("stock", gorm.Expr("stock + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
		}

		before := product.Stock
		after := before.Add(qty)
		movement = &StockMovement{Before: before, After: after}

		adjustment := Adjustment{
			ProductId:        productId,
			Type:             AdjustmentTypeIncrease,
			From:             from,
			BeforeAdjustment: before,
			AfterAdjustment:  after,
			Amount:           qty,
			SaleId:           ref.SaleId,
			PurchaseId:       ref.PurchaseId,
			BranchId:         product.BranchId,
			Visible:          utils.NewTrue(),
		}
		if err := tx.Create(&adjustment).Error; err != nil {
			return &utils.DependentWriteError{Primary: "stock increment", Dependent: "adjustment journal", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	InvalidateProductCache(productId)
	return movement, nil
}

// lockProductRow reads the product FOR UPDATE so the before value we
// journal is the value the conditional write saw.
func lockProductRow(tx *gorm.DB, productId int) (*Product, error) {
	var product Product
	err := tx.Raw("SELECT * FROM products WHERE id = ? AND visible = true FOR UPDATE", productId).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &product, nil
}

// ValidateProductStock checks stock sufficiency without mutating; used by
// createOrder to fail fast before the bulk sale update. It names the
// offending product in the error.
func ValidateProductStock(ctx context.Context, productId int, required decimal.Decimal) error {
	product, err := GetProduct(ctx, productId)
	if err != nil {
		return err
	}
	if product.Stock.LessThan(required) {
		return &utils.InsufficientStockError{
			ProductName: product.Name,
			Available:   product.Stock,
			Required:    required,
		}
	}
	return nil
}
