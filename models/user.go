package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
)

// User exists for audit attribution; authentication is handled upstream.
type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Name         string    `gorm:"size:100" json:"name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Visible      *bool     `gorm:"not null;default:true" json:"visible"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateUser(ctx context.Context, username, name, password string) (*User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username:     username,
		Name:         name,
		PasswordHash: string(hash),
		Visible:      utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
