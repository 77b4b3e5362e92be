package workflow

import (
	"context"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const debtModuleName = "DebtWorkflow"

type NewDebtHistory struct {
	DebtId      int             `json:"debt_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	AccountId   int             `json:"account_id"`
	Description string          `json:"description"`
}

type DeleteDebtHistoryInput struct {
	ID int `json:"id" validate:"required"`
}

// CreateDebtHistory settles part of a debt. The entry is the only way
// paidAmount advances: it increments the debt, recomputes its status,
// propagates settlement to the source document, and - when an account
// is named - moves money through the transaction engine.
func CreateDebtHistory(ctx context.Context, input *NewDebtHistory) models.Envelope {
	entry, err := createDebtHistory(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), debtModuleName, "CreateDebtHistory", "Error settling debt", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(entry)
}

func createDebtHistory(ctx context.Context, input *NewDebtHistory) (*models.DebtHistory, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	debt, err := models.GetDebt(ctx, input.DebtId)
	if err != nil {
		return nil, err
	}
	newPaid := debt.PaidAmount.Add(input.Amount)
	if newPaid.GreaterThan(debt.TotalAmount) {
		return nil, utils.NewValidationError("amount", "settlement exceeds outstanding debt")
	}

	entry := models.DebtHistory{
		DebtId:      debt.ID,
		TotalAmount: input.Amount,
		AccountId:   input.AccountId,
		Description: input.Description,
		Visible:     utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}

	// Conditional on the paid amount we read, so two concurrent
	// settlements cannot both apply against the same base.
	newStatus := models.RecomputeDebtStatus(debt.TotalAmount, newPaid)
	res := db.WithContext(ctx).Model(&models.Debt{}).
		Where("id = ? AND paid_amount = ?", debt.ID, debt.PaidAmount).
		Updates(map[string]interface{}{
			"paid_amount": newPaid,
			"status":      newStatus,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	debt.PaidAmount = newPaid
	debt.Status = newStatus

	if err := propagateDebtStatus(ctx, debt, input.Amount, false); err != nil {
		return nil, err
	}

	if input.AccountId != 0 {
		txType := models.TransactionTypeDeposit
		if debt.Type == models.DebtTypeCreditor {
			txType = models.TransactionTypeWithdraw
		}
		account, err := models.GetAccount(ctx, input.AccountId)
		if err != nil {
			return nil, err
		}
		fee := decimal.Zero
		if txType == models.TransactionTypeWithdraw {
			fee = account.Fee
		}
		transaction, err := ApplyTransaction(ctx, &models.NewTransaction{
			AccountId:     input.AccountId,
			Type:          txType,
			Amount:        input.Amount,
			Fee:           fee,
			ReferenceType: "debt_history",
			ReferenceId:   entry.ID,
			Description:   input.Description,
		})
		if err != nil {
			return nil, &utils.DependentWriteError{Primary: "debt history", Dependent: "transaction", Err: err}
		}
		entry.TransactionId = transaction.ID
		res := db.WithContext(ctx).Model(&models.DebtHistory{}).
			Where("id = ?", entry.ID).
			Update("transaction_id", transaction.ID)
		if res.Error != nil {
			return nil, res.Error
		}
	}

	if err := Dispatch(ctx, models.DebtSettled{Debt: debt, Entry: &entry}, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteDebtHistory is the exact inverse of CreateDebtHistory: the debt
// rolls back by the entry's amount, the source document's status
// reverts, and the spawned transaction is reversed fee-for-fee. The
// entry itself is a visibility flip, never a physical delete.
func DeleteDebtHistory(ctx context.Context, input *DeleteDebtHistoryInput) models.Envelope {
	entry, err := deleteDebtHistory(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), debtModuleName, "DeleteDebtHistory", "Error reversing debt settlement", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(entry)
}

func deleteDebtHistory(ctx context.Context, input *DeleteDebtHistoryInput) (*models.DebtHistory, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	entry, err := models.GetDebtHistory(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	debt, err := models.GetDebt(ctx, entry.DebtId)
	if err != nil {
		return nil, err
	}

	newPaid := debt.PaidAmount.Sub(entry.TotalAmount)
	if newPaid.IsNegative() {
		return nil, utils.NewValidationError("id", "reversal would make paid amount negative")
	}
	newStatus := models.RecomputeDebtStatus(debt.TotalAmount, newPaid)

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&models.Debt{}).
		Where("id = ? AND paid_amount = ?", debt.ID, debt.PaidAmount).
		Updates(map[string]interface{}{
			"paid_amount": newPaid,
			"status":      newStatus,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	debt.PaidAmount = newPaid
	debt.Status = newStatus

	if err := propagateDebtStatus(ctx, debt, entry.TotalAmount, true); err != nil {
		return nil, err
	}

	if entry.TransactionId != 0 {
		if _, err := ReverseTransaction(ctx, entry.TransactionId); err != nil {
			return nil, &utils.DependentWriteError{Primary: "debt history reversal", Dependent: "transaction reversal", Err: err}
		}
	}

	res = db.WithContext(ctx).Model(&models.DebtHistory{}).
		Where("id = ? AND visible = true", entry.ID).
		Update("visible", false)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	entry.Visible = utils.NewFalse()

	if err := Dispatch(ctx, models.DebtSettlementReversed{Debt: debt, Entry: entry}, entry, nil); err != nil {
		return nil, err
	}
	return entry, nil
}

// propagateDebtStatus mirrors the debt's settlement state onto its
// source document. Quotation invoices and truck orders live outside the
// engine, so they carry no local row to update.
func propagateDebtStatus(ctx context.Context, debt *models.Debt, amount decimal.Decimal, reversal bool) error {
	db := config.GetDB()
	switch debt.ReferenceType {
	case models.DebtReferenceTypeSale:
		status := models.SaleStatusCredit
		if debt.Status == models.DebtStatusPaid {
			status = models.SaleStatusCash
		}
		return db.WithContext(ctx).Model(&models.Sale{}).
			Where("id = ?", debt.ReferenceId).
			Update("status", status).Error
	case models.DebtReferenceTypePurchase:
		expr := gorm.Expr("paid_amount + ?", amount)
		if reversal {
			expr = gorm.Expr("paid_amount - ?", amount)
		}
		return db.WithContext(ctx).Model(&models.Purchase{}).
			Where("id = ?", debt.ReferenceId).
			Update("paid_amount", expr).Error
	case models.DebtReferenceTypeExpense:
		return db.WithContext(ctx).Model(&models.Expense{}).
			Where("id = ?", debt.ReferenceId).
			Update("status", debt.Status).Error
	}
	return nil
}
