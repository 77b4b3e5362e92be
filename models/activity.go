package models

import (
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/shweretail/shop_backend/utils"
	"gorm.io/gorm"
)

// Activity is the append-only audit trail. It is consumed by the
// activity feed, never read back by the engine.
type Activity struct {
	ID          int            `gorm:"primary_key" json:"id"`
	UserId      int            `gorm:"index;not null" json:"user_id"`
	UserName    string         `gorm:"size:100" json:"user_name"`
	Module      string         `gorm:"size:50;index;not null" json:"module"`
	ActionType  ActivityAction `gorm:"type:enum('creation','modification','deletion');not null" json:"action_type"`
	Data        string         `gorm:"type:text" json:"data"`
	Description string         `gorm:"type:text;not null" json:"description"`
	BranchId    int            `gorm:"index" json:"branch_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// CreateActivity appends an audit row inside the caller's transaction,
// pulling user identity from the transaction's context.
func CreateActivity(tx *gorm.DB, module string, actionType ActivityAction, data interface{}, description string) error {
	ctx := tx.Statement.Context

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}
	branchId, _ := utils.GetBranchIdFromContext(ctx)

	b, _ := json.Marshal(data)

	activity := Activity{
		UserId:      userId,
		UserName:    userName,
		Module:      module,
		ActionType:  actionType,
		Data:        string(b),
		Description: description,
		BranchId:    branchId,
	}
	return tx.Create(&activity).Error
}
