package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
)

const cartModuleName = "CartWorkflow"

// AddToCart creates a cart-stage Sale for one product line. Stock is
// reserved immediately for cart/order types unless the line is an
// invoice-status quote; credit lines additionally open a debtor Debt.
func AddToCart(ctx context.Context, input *models.NewSale) models.Envelope {
	sale, err := addToCart(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), cartModuleName, "AddToCart", "Error adding sale to cart", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(sale)
}

func addToCart(ctx context.Context, input *models.NewSale) (*models.Sale, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, utils.NewValidationError("type", "invalid sale type")
	}
	if !input.Status.Valid() {
		return nil, utils.NewValidationError("status", "invalid sale status")
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("quantity", "must be positive")
	}

	product, err := models.GetProduct(ctx, input.ProductId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.ProductLock(ctx, product.ID, cartModuleName, "addToCart")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseProductLock(ctx, lock)

	soldPrice := input.SellingPrice
	if soldPrice.IsZero() {
		soldPrice = product.SellingPrice
	}
	amounts := models.ComputeSaleAmounts(product.BuyingPrice, product.SellingPrice, soldPrice, input.Quantity)

	// The wire accepts type=order as an alias; the stored row is a cart
	// line until an Order folds it in.
	saleType := input.Type
	reserves := saleType == models.SaleTypeCart || saleType == models.SaleTypeOrder
	if saleType == models.SaleTypeOrder {
		saleType = models.SaleTypeCart
	}
	reserves = reserves && input.Status != models.SaleStatusInvoice

	sale := models.Sale{
		ProductId:    product.ID,
		CustomerId:   input.CustomerId,
		OrderNumber:  input.OrderNumber,
		Quantity:     input.Quantity,
		SellingPrice: soldPrice,
		TotalAmount:  amounts.TotalAmount,
		Profit:       amounts.Profit,
		Discount:     amounts.Discount,
		StockBefore:  product.Stock,
		StockAfter:   product.Stock,
		Type:         saleType,
		Status:       input.Status,
		BranchId:     product.BranchId,
		Visible:      utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, err
	}

	if reserves {
		movement, err := models.ReserveStock(ctx, product.ID, input.Quantity,
			models.AdjustmentSourceSaleCart, models.StockRef{SaleId: sale.ID})
		if err != nil {
			// The sale row is already committed; the caller compensates
			// with removeFromCart, never with an automatic rollback here.
			return nil, err
		}
		sale.StockBefore = movement.Before
		sale.StockAfter = movement.After
		res := db.WithContext(ctx).Model(&models.Sale{}).Where("id = ?", sale.ID).
			Updates(map[string]interface{}{
				"stock_before": movement.Before,
				"stock_after":  movement.After,
			})
		if res.Error != nil {
			return nil, res.Error
		}
	}

	if input.Status == models.SaleStatusCredit {
		debt := models.Debt{
			Type:          models.DebtTypeDebtor,
			Status:        models.DebtStatusUnpaid,
			TotalAmount:   amounts.TotalAmount,
			ReferenceType: models.DebtReferenceTypeSale,
			ReferenceId:   sale.ID,
			CustomerId:    input.CustomerId,
			BranchId:      product.BranchId,
			Visible:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&debt).Error; err != nil {
			return nil, &utils.DependentWriteError{Primary: "sale", Dependent: "debt", Err: err}
		}
	}

	if err := Dispatch(ctx, models.SaleCreated{Sale: &sale}, nil, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// RemoveFromCart undoes addToCart: releases the reserved stock (unless
// the line was an invoice-status quote that never reserved), drops the
// debt and journal rows keyed to the sale, then soft-deletes it. After
// the round trip the product's stock, debt rows, and journal rows are
// back to their pre-addToCart state.
func RemoveFromCart(ctx context.Context, saleId int) models.Envelope {
	sale, err := removeFromCart(ctx, saleId)
	if err != nil {
		config.LogError(config.GetLogger(), cartModuleName, "RemoveFromCart", "Error removing sale from cart", saleId, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(sale)
}

func removeFromCart(ctx context.Context, saleId int) (*models.Sale, error) {
	sale, err := models.GetSale(ctx, saleId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.ProductLock(ctx, sale.ProductId, cartModuleName, "removeFromCart")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseProductLock(ctx, lock)

	if sale.Status != models.SaleStatusInvoice {
		if _, err := models.ReleaseStock(ctx, sale.ProductId, sale.Quantity,
			models.AdjustmentSourceSaleCart, models.StockRef{SaleId: sale.ID}); err != nil {
			return nil, err
		}
	}

	if err := deleteSaleSideRecords(ctx, sale.ID); err != nil {
		return nil, err
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND visible = true", sale.ID).
		Update("visible", false)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	sale.Visible = utils.NewFalse()

	if err := Dispatch(ctx, models.SaleRemoved{Sale: sale}, sale, nil); err != nil {
		return nil, err
	}
	return sale, nil
}

// deleteSaleSideRecords hard-deletes the debt, settlement, and journal
// rows keyed to a cart sale being withdrawn. These are independent
// deletes with no unifying transaction; the reconciliation sweep picks
// up leftovers if the process dies between them.
func deleteSaleSideRecords(ctx context.Context, saleId int) error {
	db := config.GetDB()

	var debts []*models.Debt
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", models.DebtReferenceTypeSale, saleId).
		Find(&debts).Error; err != nil {
		return err
	}
	for _, debt := range debts {
		if err := db.WithContext(ctx).Where("debt_id = ?", debt.ID).
			Delete(&models.DebtHistory{}).Error; err != nil {
			return err
		}
	}
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", models.DebtReferenceTypeSale, saleId).
		Delete(&models.Debt{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Where("sale_id = ?", saleId).
		Delete(&models.Adjustment{}).Error
}

// CartListEnvelope lists the visible cart lines for a branch.
func CartListEnvelope(ctx context.Context, branchId int) models.Envelope {
	sales, err := models.CartList(ctx, branchId)
	if err != nil {
		config.LogError(config.GetLogger(), cartModuleName, "CartListEnvelope", "Error listing cart", branchId, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(sales)
}
