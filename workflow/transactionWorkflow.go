package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const transactionModuleName = "TransactionWorkflow"

// ApplyTransaction is the only write path that moves an account
// balance: the ledger row and the balance delta commit together, with
// the mirrored delta on the impacted account for two-sided movements.
func ApplyTransaction(ctx context.Context, input *models.NewTransaction) (*models.Transaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	account, err := models.GetAccount(ctx, input.AccountId)
	if err != nil {
		return nil, err
	}
	var impacted *models.Account
	if input.AccountToImpact != 0 {
		impacted, err = models.GetAccount(ctx, input.AccountToImpact)
		if err != nil {
			return nil, err
		}
	}

	transaction := models.Transaction{
		AccountId:       account.ID,
		Type:            input.Type,
		Amount:          input.Amount,
		Fee:             input.Fee,
		AccountToImpact: input.AccountToImpact,
		ReferenceType:   input.ReferenceType,
		ReferenceId:     input.ReferenceId,
		Description:     input.Description,
		BranchId:        account.BranchId,
		Visible:         utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		delta := models.TransactionBalanceDelta(account.Type, input.Type, input.Amount, input.Fee)
		if err := applyBalanceDelta(tx, account.ID, delta); err != nil {
			return &utils.DependentWriteError{Primary: "transaction", Dependent: "account balance", Err: err}
		}
		if impacted != nil {
			mirror := models.ImpactedBalanceDelta(input.Type, input.Amount)
			if err := applyBalanceDelta(tx, impacted.ID, mirror); err != nil {
				return &utils.DependentWriteError{Primary: "transaction", Dependent: "impacted account balance", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// ReverseTransaction soft-deletes a ledger entry and applies the exact
// inverse delta, fee included, to the account (and the mirrored inverse
// to the impacted account). The visibility flip is conditional so a
// double reversal cannot move the balance twice.
func ReverseTransaction(ctx context.Context, transactionId int) (*models.Transaction, error) {
	transaction, err := models.GetTransaction(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	account, err := models.GetAccount(ctx, transaction.AccountId)
	if err != nil {
		return nil, err
	}
	var impacted *models.Account
	if transaction.AccountToImpact != 0 {
		impacted, err = models.GetAccount(ctx, transaction.AccountToImpact)
		if err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND visible = true", transaction.ID).
			Update("visible", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
		}
		delta := models.TransactionBalanceDelta(account.Type, transaction.Type, transaction.Amount, transaction.Fee).Neg()
		if err := applyBalanceDelta(tx, account.ID, delta); err != nil {
			return &utils.DependentWriteError{Primary: "transaction reversal", Dependent: "account balance", Err: err}
		}
		if impacted != nil {
			mirror := models.ImpactedBalanceDelta(transaction.Type, transaction.Amount).Neg()
			if err := applyBalanceDelta(tx, impacted.ID, mirror); err != nil {
				return &utils.DependentWriteError{Primary: "transaction reversal", Dependent: "impacted account balance", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	transaction.Visible = utils.NewFalse()
	return transaction, nil
}

func applyBalanceDelta(tx *gorm.DB, accountId int, delta decimal.Decimal) error {
	res := tx.Model(&models.Account{}).
		Where("id = ? AND visible = true", accountId).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	return nil
}

// CreateTransaction is the envelope boundary over ApplyTransaction for
// direct deposits and withdrawals.
func CreateTransaction(ctx context.Context, input *models.NewTransaction) models.Envelope {
	transaction, err := ApplyTransaction(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), transactionModuleName, "CreateTransaction", "Error creating transaction", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(transaction)
}

// DeleteTransaction is the envelope boundary over ReverseTransaction.
func DeleteTransaction(ctx context.Context, transactionId int) models.Envelope {
	transaction, err := ReverseTransaction(ctx, transactionId)
	if err != nil {
		config.LogError(config.GetLogger(), transactionModuleName, "DeleteTransaction", "Error reversing transaction", transactionId, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(transaction)
}
