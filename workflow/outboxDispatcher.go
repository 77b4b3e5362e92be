package workflow

import (
	"context"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDispatcher drains the transactional outbox: it claims due
// records with a row lock, publishes them to the activity feed topic,
// and advances their publish status. At-least-once delivery; the feed
// consumer dedupes on record id.
type OutboxDispatcher struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	WorkerID    string
	BatchSize   int
	Interval    time.Duration
	LockTTL     time.Duration
	MaxAttempts int
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:          db,
		Logger:      logger,
		WorkerID:    "dispatcher-" + time.Now().Format("20060102-150405.000"),
		BatchSize:   50,
		Interval:    2 * time.Second,
		LockTTL:     30 * time.Second,
		MaxAttempts: 8,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.Interval):
		}
	}
}

func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTTL)

	var claimed []models.OutboxRecord
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Eligible:
		// - PENDING / FAILED and ready to retry
		// - PROCESSING but lock is stale (dispatcher crashed mid-batch), reclaim after LockTTL
		q := tx.
			Where(`
				(
					publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, now,
				models.OutboxPublishStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			if err := tx.Model(&models.OutboxRecord{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"publish_status": models.OutboxPublishStatusProcessing,
					"locked_at":      now,
					"locked_by":      d.WorkerID,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for _, rec := range claimed {
		msg := models.ConvertToActivityMessage(rec)
		messageId, pubErr := config.PublishActivityWithResult(ctx, msg)
		if pubErr != nil {
			d.markFailed(ctx, rec, pubErr)
			continue
		}
		_ = d.DB.WithContext(ctx).Model(&models.OutboxRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusSent,
				"published_at":       time.Now().UTC(),
				"pub_sub_message_id": messageId,
				"locked_at":          nil,
				"locked_by":          nil,
			}).Error
	}
}

func (d *OutboxDispatcher) markFailed(ctx context.Context, rec models.OutboxRecord, pubErr error) {
	attempts := rec.PublishAttempts + 1
	status := models.OutboxPublishStatusFailed
	if attempts >= d.MaxAttempts {
		status = models.OutboxPublishStatusDead
	}
	next := time.Now().UTC().Add(publishBackoff(attempts))
	errMsg := pubErr.Error()

	_ = d.DB.WithContext(ctx).Model(&models.OutboxRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"publish_status":     status,
			"publish_attempts":   attempts,
			"next_attempt_at":    next,
			"last_publish_error": errMsg,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error

	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"field":          "OutboxDispatcher",
			"record_id":      rec.ID,
			"reference_type": rec.ReferenceType,
			"reference_id":   rec.ReferenceId,
			"attempts":       attempts,
			"status":         status,
		}).Error("outbox publish failed: " + errMsg)
	}
}

// publishBackoff doubles per attempt, capped at 5 minutes.
func publishBackoff(attempts int) time.Duration {
	shift := attempts
	if shift > 9 {
		shift = 9
	}
	backoff := time.Duration(1<<shift) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	return backoff
}
