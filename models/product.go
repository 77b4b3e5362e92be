package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"size:255;not null;index" json:"name" binding:"required"`
	Stock        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	BuyingPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"buying_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	CategoryId   int             `gorm:"index" json:"category_id"`
	BranchId     int             `gorm:"index;not null" json:"branch_id"`
	Visible      *bool           `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name         string          `json:"name" validate:"required"`
	Stock        decimal.Decimal `json:"stock"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	CategoryId   int             `json:"category_id"`
	BranchId     int             `json:"branch_id" validate:"required"`
}

type UpdateProductInput struct {
	ID           int              `json:"id" validate:"required"`
	Name         *string          `json:"name"`
	BuyingPrice  *decimal.Decimal `json:"buying_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	ReorderLevel *decimal.Decimal `json:"reorder_level"`
	CategoryId   *int             `json:"category_id"`
	Visible      *bool            `json:"visible"`
}

func productCacheKey(id int) string {
	return fmt.Sprintf("productCache:%d", id)
}

// InvalidateProductCache evicts the cached copy after any write to the
// product row. Nil-safe when Redis is down.
func InvalidateProductCache(id int) {
	_ = config.RemoveRedisKey(productCacheKey(id))
}

// GetProduct returns the visible product or ErrorRecordNotFound. Reads
// go through a short-lived Redis cache; every product write evicts it,
// and the conditional stock decrement never trusts a cached value.
func GetProduct(ctx context.Context, id int) (*Product, error) {
	var product Product
	if found, err := config.GetRedisObject(productCacheKey(id), &product); err == nil && found && product.ID == id {
		return &product, nil
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&product).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = config.SetRedisObject(productCacheKey(id), product, time.Minute)
	return &product, nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Stock.IsNegative() {
		return nil, utils.NewValidationError("stock", "cannot be negative")
	}
	if input.CategoryId != 0 {
		if err := utils.ValidateResourceId[Category](ctx, input.CategoryId); err != nil {
			return nil, errors.New("category not found")
		}
	}

	product := Product{
		Name:         input.Name,
		Stock:        input.Stock,
		Quantity:     input.Stock,
		BuyingPrice:  input.BuyingPrice,
		SellingPrice: input.SellingPrice,
		ReorderLevel: input.ReorderLevel,
		CategoryId:   input.CategoryId,
		BranchId:     input.BranchId,
		Visible:      utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct patches descriptive fields only. Stock is deliberately
// absent: all stock movement goes through the stock ledger so the
// adjustment journal stays complete.
func UpdateProduct(ctx context.Context, input *UpdateProductInput) (*Product, *Product, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	product, err := GetProduct(ctx, input.ID)
	if err != nil {
		return nil, nil, err
	}
	old := *product

	patch := map[string]interface{}{}
	if input.Name != nil {
		patch["name"] = *input.Name
	}
	if input.BuyingPrice != nil {
		patch["buying_price"] = *input.BuyingPrice
	}
	if input.SellingPrice != nil {
		patch["selling_price"] = *input.SellingPrice
	}
	if input.ReorderLevel != nil {
		patch["reorder_level"] = *input.ReorderLevel
	}
	if input.CategoryId != nil {
		patch["category_id"] = *input.CategoryId
	}
	if input.Visible != nil {
		patch["visible"] = *input.Visible
	}
	if len(patch) == 0 {
		return &old, product, nil
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&Product{}).Where("id = ?", input.ID).Updates(patch)
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	InvalidateProductCache(input.ID)

	var updated Product
	if err := db.WithContext(ctx).Where("id = ?", input.ID).First(&updated).Error; err != nil {
		return nil, nil, err
	}
	return &old, &updated, nil
}

// BelowReorderLevel lists visible products whose stock has fallen to or
// under their reorder level; consumed by the notification jobs.
func BelowReorderLevel(ctx context.Context, branchId int) ([]*Product, error) {
	var products []*Product
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("visible = true AND stock <= reorder_level")
	if branchId > 0 {
		dbCtx = dbCtx.Where("branch_id = ?", branchId)
	}
	if err := dbCtx.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
