package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
)

const productModuleName = "ProductWorkflow"

// CreateProduct registers a product with its opening stock.
func CreateProduct(ctx context.Context, input *models.NewProduct) models.Envelope {
	product, err := models.CreateProduct(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), productModuleName, "CreateProduct", "Error creating product", input, err)
		return models.FailEnvelope(err)
	}
	if err := Dispatch(ctx, models.ProductCreated{Product: product}, nil, product); err != nil {
		config.LogError(config.GetLogger(), productModuleName, "CreateProduct", "Error dispatching product event", product.ID, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(product)
}

// UpdateProduct patches descriptive fields. Stock never moves here;
// that belongs to the ledger.
func UpdateProduct(ctx context.Context, input *models.UpdateProductInput) models.Envelope {
	old, updated, err := models.UpdateProduct(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), productModuleName, "UpdateProduct", "Error updating product", input, err)
		return models.FailEnvelope(err)
	}
	if err := Dispatch(ctx, models.ProductUpdated{Old: old, New: updated}, old, updated); err != nil {
		config.LogError(config.GetLogger(), productModuleName, "UpdateProduct", "Error dispatching product event", updated.ID, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(updated)
}

// ReorderAlerts lists products whose stock has fallen to or under their
// reorder level, optionally scoped to a branch.
func ReorderAlerts(ctx context.Context, branchId int) models.Envelope {
	products, err := models.BelowReorderLevel(ctx, branchId)
	if err != nil {
		config.LogError(config.GetLogger(), productModuleName, "ReorderAlerts", "Error listing reorder alerts", branchId, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(products)
}
