package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
)

const partyModuleName = "PartyWorkflow"

// CreateCustomer registers a buyer that credit sales can reference.
func CreateCustomer(ctx context.Context, input *models.NewCustomer) models.Envelope {
	customer, err := models.CreateCustomer(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), partyModuleName, "CreateCustomer", "Error creating customer", input, err)
		return models.FailEnvelope(err)
	}
	if err := Dispatch(ctx, models.CustomerCreated{Customer: customer}, nil, customer); err != nil {
		config.LogError(config.GetLogger(), partyModuleName, "CreateCustomer", "Error dispatching customer event", customer.ID, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(customer)
}

// CreateSupplier registers a supplier that purchases can reference.
func CreateSupplier(ctx context.Context, input *models.NewSupplier) models.Envelope {
	supplier, err := models.CreateSupplier(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), partyModuleName, "CreateSupplier", "Error creating supplier", input, err)
		return models.FailEnvelope(err)
	}
	if err := Dispatch(ctx, models.SupplierCreated{Supplier: supplier}, nil, supplier); err != nil {
		config.LogError(config.GetLogger(), partyModuleName, "CreateSupplier", "Error dispatching supplier event", supplier.ID, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(supplier)
}
