package workflow

import (
	"context"
	"encoding/json"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"gorm.io/gorm"
)

// Dispatch routes a domain event to the audit trail and the outbox. This
// is the explicit replacement for store-level save/update/delete hooks:
// every cascade starts here, at a visible call site in the workflow that
// produced the event.
//
// The activity row and the outbox row are written in one transaction. A
// failure is a DependentWriteError: the primary write already happened
// and the caller must surface the inconsistency, not swallow it.
func Dispatch(ctx context.Context, event models.DomainEvent, oldObj, newObj interface{}) error {
	db := config.GetDB()

	var oldB, newB []byte
	if oldObj != nil {
		oldB, _ = json.Marshal(oldObj)
	}
	if newObj != nil {
		newB, _ = json.Marshal(newObj)
	}

	action := outboxAction(event.Action())
	branchId, _ := utils.GetBranchIdFromContext(ctx)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.CreateActivity(tx, event.Module(), event.Action(), newObj, event.Describe()); err != nil {
			return err
		}
		return models.WriteOutbox(tx, event.ReferenceId(), event.Module(), action, oldB, newB, branchId)
	})
	if err != nil {
		return &utils.DependentWriteError{Primary: event.Module() + " write", Dependent: "activity/outbox", Err: err}
	}
	return nil
}

func outboxAction(a models.ActivityAction) models.OutboxAction {
	switch a {
	case models.ActivityActionCreation:
		return models.OutboxActionCreate
	case models.ActivityActionDeletion:
		return models.OutboxActionDelete
	default:
		return models.OutboxActionUpdate
	}
}
