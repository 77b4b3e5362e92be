package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
)

// ReconcileReport counts what a sweep found and, when not a dry run,
// repaired.
type ReconcileReport struct {
	OrphanedDebts       int64 `json:"orphaned_debts"`
	OrphanedAdjustments int64 `json:"orphaned_adjustments"`
	EmptyOrders         int64 `json:"empty_orders"`
	DryRun              bool  `json:"dry_run"`
}

// Reconcile sweeps for the leftovers a crash between independent writes
// can leave behind: debt rows keyed to sales that are gone or hidden,
// journal rows keyed to hidden cart sales, and visible orders with an
// empty sales set. With dryRun=true it only counts; otherwise it hides
// or deletes what it finds.
func Reconcile(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	db := config.GetDB()
	report := &ReconcileReport{DryRun: dryRun}

	// Debts whose source sale is invisible or missing.
	orphanDebtCond := `reference_type = ? AND visible = true AND reference_id NOT IN (
		SELECT id FROM sales WHERE visible = true)`
	if dryRun {
		if err := db.WithContext(ctx).Model(&models.Debt{}).
			Where(orphanDebtCond, models.DebtReferenceTypeSale).
			Count(&report.OrphanedDebts).Error; err != nil {
			return nil, err
		}
	} else {
		res := db.WithContext(ctx).Model(&models.Debt{}).
			Where(orphanDebtCond, models.DebtReferenceTypeSale).
			Update("visible", false)
		if res.Error != nil {
			return nil, res.Error
		}
		report.OrphanedDebts = res.RowsAffected
	}

	// Journal rows keyed to hidden cart sales: a removeFromCart that
	// died between the stock release and the journal cleanup.
	orphanAdjCond := `sale_id > 0 AND visible = true AND sale_id IN (
		SELECT id FROM sales WHERE visible = false AND type = ?)`
	if dryRun {
		if err := db.WithContext(ctx).Model(&models.Adjustment{}).
			Where(orphanAdjCond, models.SaleTypeCart).
			Count(&report.OrphanedAdjustments).Error; err != nil {
			return nil, err
		}
	} else {
		res := db.WithContext(ctx).Model(&models.Adjustment{}).
			Where(orphanAdjCond, models.SaleTypeCart).
			Update("visible", false)
		if res.Error != nil {
			return nil, res.Error
		}
		report.OrphanedAdjustments = res.RowsAffected
	}

	// A visible order must reference at least one sale.
	emptyOrderCond := `visible = true AND id NOT IN (
		SELECT DISTINCT order_id FROM order_sales)`
	if dryRun {
		if err := db.WithContext(ctx).Model(&models.Order{}).
			Where(emptyOrderCond).
			Count(&report.EmptyOrders).Error; err != nil {
			return nil, err
		}
	} else {
		res := db.WithContext(ctx).Model(&models.Order{}).
			Where(emptyOrderCond).
			Update("visible", false)
		if res.Error != nil {
			return nil, res.Error
		}
		report.EmptyOrders = res.RowsAffected
	}

	return report, nil
}
