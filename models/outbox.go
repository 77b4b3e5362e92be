package models

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxRecord implements the transactional outbox: the row is written
// inside the caller's DB transaction, publishing to the activity feed
// happens asynchronously after commit.
type OutboxRecord struct {
	ID               int          `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	OccurredAt       time.Time    `gorm:"index;not null" json:"occurred_at"`
	ReferenceId      int          `json:"reference_id"`
	ReferenceType    string       `gorm:"size:50;index" json:"reference_type"`
	Action           OutboxAction `gorm:"type:enum('C','U','D')" json:"action"`
	OldObj           []byte       `gorm:"type:blob" json:"old_obj"`
	NewObj           []byte       `gorm:"type:blob" json:"new_obj"`
	BranchId         int          `gorm:"index" json:"branch_id"`
	PublishStatus    string       `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time   `gorm:"index" json:"published_at"`
	PubSubMessageId  *string      `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int          `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time   `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time   `gorm:"index" json:"locked_at"`
	LockedBy         *string      `gorm:"size:100" json:"locked_by"`
	LastPublishError *string      `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string       `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// WriteOutbox appends the outbox row inside the caller's transaction.
func WriteOutbox(tx *gorm.DB, refId int, refType string, action OutboxAction, oldObj, newObj []byte, branchId int) error {
	record := OutboxRecord{
		OccurredAt:    time.Now().UTC(),
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		OldObj:        oldObj,
		NewObj:        newObj,
		BranchId:      branchId,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(tx.Statement.Context),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToActivityMessage(record OutboxRecord) config.ActivityMessage {
	return config.ActivityMessage{
		ID:            record.ID,
		BranchId:      record.BranchId,
		OccurredAt:    record.OccurredAt,
		ReferenceId:   record.ReferenceId,
		ReferenceType: record.ReferenceType,
		Action:        string(record.Action),
		OldObj:        record.OldObj,
		NewObj:        record.NewObj,
		CorrelationId: record.CorrelationId,
	}
}
