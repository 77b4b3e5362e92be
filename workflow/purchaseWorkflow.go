package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const purchaseModuleName = "PurchaseWorkflow"

// CreatePurchase records incoming supplier stock: the purchase row, a
// creditor debt for the unpaid portion, the stock increment with its
// journal entry, and the product's refreshed prices and cumulative
// quantity.
func CreatePurchase(ctx context.Context, input *models.NewPurchase) models.Envelope {
	purchase, err := createPurchase(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), purchaseModuleName, "CreatePurchase", "Error creating purchase", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(purchase)
}

func createPurchase(ctx context.Context, input *models.NewPurchase) (*models.Purchase, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("quantity", "must be positive")
	}
	product, err := models.GetProduct(ctx, input.ProductId)
	if err != nil {
		return nil, err
	}
	if input.SupplierId != 0 {
		if err := utils.ValidateResourceId[models.Supplier](ctx, input.SupplierId); err != nil {
			return nil, err
		}
	}

	lock, err := utils.ProductLock(ctx, product.ID, purchaseModuleName, "createPurchase")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseProductLock(ctx, lock)

	totalAmount := input.TotalAmount
	if totalAmount.IsZero() {
		totalAmount = input.BuyingPrice.Mul(input.Quantity)
	}
	if input.PaidAmount.GreaterThan(totalAmount) {
		return nil, utils.NewValidationError("paid_amount", "cannot exceed total amount")
	}

	purchase := models.Purchase{
		ProductId:    product.ID,
		SupplierId:   input.SupplierId,
		Quantity:     input.Quantity,
		BuyingPrice:  input.BuyingPrice,
		SellingPrice: input.SellingPrice,
		StockBefore:  product.Stock,
		StockAfter:   product.Stock.Add(input.Quantity),
		TotalAmount:  totalAmount,
		PaidAmount:   input.PaidAmount,
		BranchId:     product.BranchId,
		Visible:      utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, err
	}

	if totalAmount.GreaterThan(input.PaidAmount) {
		debt := models.Debt{
			Type:          models.DebtTypeCreditor,
			Status:        models.RecomputeDebtStatus(totalAmount, input.PaidAmount),
			TotalAmount:   totalAmount,
			PaidAmount:    input.PaidAmount,
			ReferenceType: models.DebtReferenceTypePurchase,
			ReferenceId:   purchase.ID,
			SupplierId:    input.SupplierId,
			BranchId:      product.BranchId,
			Visible:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&debt).Error; err != nil {
			return nil, &utils.DependentWriteError{Primary: "purchase", Dependent: "debt", Err: err}
		}
	}

	if _, err := models.ReleaseStock(ctx, product.ID, input.Quantity,
		models.AdjustmentSourcePurchase, models.StockRef{PurchaseId: purchase.ID}); err != nil {
		return nil, err
	}

	// Cumulative received quantity and latest prices live on the product.
	patch := map[string]interface{}{
		"quantity": gorm.Expr("quantity + ?", input.Quantity),
	}
	if !input.BuyingPrice.IsZero() {
		patch["buying_price"] = input.BuyingPrice
	}
	if !input.SellingPrice.IsZero() {
		patch["selling_price"] = input.SellingPrice
	}
	res := db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).Updates(patch)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	models.InvalidateProductCache(product.ID)

	if err := Dispatch(ctx, models.PurchaseCreated{Purchase: &purchase}, nil, &purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

// UpdatePurchase only supports the reversal path, visible=false: the
// stock effect is undone through the ledger and the creditor debt is
// dropped. Price fields set by the original purchase are deliberately
// left as they are.
func UpdatePurchase(ctx context.Context, input *models.UpdatePurchaseInput) models.Envelope {
	purchase, err := updatePurchase(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), purchaseModuleName, "UpdatePurchase", "Error updating purchase", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(purchase)
}

func updatePurchase(ctx context.Context, input *models.UpdatePurchaseInput) (*models.Purchase, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Visible == nil || *input.Visible {
		return nil, utils.NewValidationError("visible", "only reversal (visible=false) is supported")
	}
	purchase, err := models.GetPurchase(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	lock, err := utils.ProductLock(ctx, purchase.ProductId, purchaseModuleName, "updatePurchase")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseProductLock(ctx, lock)

	// The conditional decrement fails with InsufficientStock if the
	// received quantity was already sold on - a reversal cannot take
	// stock the shop no longer has.
	if _, err := models.ReserveStock(ctx, purchase.ProductId, purchase.Quantity,
		models.AdjustmentSourcePurchase, models.StockRef{PurchaseId: purchase.ID}); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var debts []*models.Debt
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", models.DebtReferenceTypePurchase, purchase.ID).
		Find(&debts).Error; err != nil {
		return nil, err
	}
	for _, debt := range debts {
		if err := db.WithContext(ctx).Where("debt_id = ?", debt.ID).
			Delete(&models.DebtHistory{}).Error; err != nil {
			return nil, err
		}
	}
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", models.DebtReferenceTypePurchase, purchase.ID).
		Delete(&models.Debt{}).Error; err != nil {
		return nil, err
	}

	res := db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", purchase.ProductId).
		Update("quantity", gorm.Expr("quantity - ?", purchase.Quantity))
	if res.Error != nil {
		return nil, res.Error
	}
	models.InvalidateProductCache(purchase.ProductId)

	res = db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND visible = true", purchase.ID).
		Update("visible", false)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	purchase.Visible = utils.NewFalse()

	if err := Dispatch(ctx, models.PurchaseReversed{Purchase: purchase}, purchase, nil); err != nil {
		return nil, err
	}
	return purchase, nil
}
