package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Phone     string    `gorm:"size:50" json:"phone"`
	BranchId  int       `gorm:"index" json:"branch_id"`
	Visible   *bool     `gorm:"not null;default:true" json:"visible"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, utils.NewValidationError("phone", err.Error())
		}
	}
	branchId, _ := utils.GetBranchIdFromContext(ctx)
	customer := Customer{
		Name:     input.Name,
		Phone:    input.Phone,
		BranchId: branchId,
		Visible:  utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}
