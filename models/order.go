package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
)

// Order groups committed Sales. Invariant: a visible Order references at
// least one Sale; when its sales set empties the Order itself is deleted.
type Order struct {
	ID          int         `gorm:"primary_key" json:"id"`
	OrderNumber string      `gorm:"size:100;index" json:"order_number"`
	Type        OrderType   `gorm:"type:enum('order','proforma','invoice');not null;index" json:"type"`
	Status      OrderStatus `gorm:"type:enum('active','pending','done');not null" json:"status"`
	IsPrinted   *bool       `gorm:"not null;default:false" json:"is_printed"`
	IsVerified  *bool       `gorm:"not null;default:false" json:"is_verified"`
	BranchId    int         `gorm:"index" json:"branch_id"`
	Visible     *bool       `gorm:"not null;default:true;index" json:"visible"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	SaleIds     []int       `gorm:"-" json:"sale_ids"`
}

// OrderSale is the join row binding a Sale to its owning Order.
type OrderSale struct {
	ID      int `gorm:"primary_key" json:"id"`
	OrderId int `gorm:"index;not null" json:"order_id"`
	SaleId  int `gorm:"uniqueIndex;not null" json:"sale_id"`
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	var order Order
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ? AND visible = true", id).First(&order).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	saleIds, err := OrderSaleIds(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.SaleIds = saleIds
	return &order, nil
}

func OrderSaleIds(ctx context.Context, orderId int) ([]int, error) {
	var ids []int
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&OrderSale{}).
		Where("order_id = ?", orderId).Order("sale_id ASC").
		Pluck("sale_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// OrderForSale finds the Order owning a sale, if any.
func OrderForSale(ctx context.Context, saleId int) (*Order, error) {
	var join OrderSale
	db := config.GetDB()
	err := db.WithContext(ctx).Where("sale_id = ?", saleId).First(&join).Error
	if err != nil {
		return nil, nil
	}
	var order Order
	if err := db.WithContext(ctx).Where("id = ?", join.OrderId).First(&order).Error; err != nil {
		return nil, nil
	}
	return &order, nil
}

// OrdersList lists visible orders, newest first, optionally filtered by
// type and branch.
func OrdersList(ctx context.Context, orderType OrderType, branchId int) ([]*Order, error) {
	var orders []*Order
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("visible = true")
	if orderType != "" {
		if !orderType.Valid() {
			return nil, utils.NewValidationError("type", "invalid order type")
		}
		dbCtx = dbCtx.Where("type = ?", orderType)
	}
	if branchId > 0 {
		dbCtx = dbCtx.Where("branch_id = ?", branchId)
	}
	if err := dbCtx.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	for _, order := range orders {
		saleIds, err := OrderSaleIds(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.SaleIds = saleIds
	}
	return orders, nil
}
