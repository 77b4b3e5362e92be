package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError rejects a payload before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError is returned when a conditional stock decrement
// matches zero rows, or when pre-validation finds stock below the
// requested quantity.
type InsufficientStockError struct {
	ProductName string
	Available   decimal.Decimal
	Required    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, required %s",
		e.ProductName, e.Available.String(), e.Required.String())
}

// PartialUpdateError signals that a batch write's reported row count does
// not match the expected count: concurrent modification or store-level
// inconsistency. The caller must treat prior steps as committed.
type PartialUpdateError struct {
	Expected int64
	Actual   int64
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("partial update: expected %d rows, modified %d", e.Expected, e.Actual)
}

type PartialDeleteError struct {
	Expected int64
	Actual   int64
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete: expected %d rows, deleted %d", e.Expected, e.Actual)
}

// DependentWriteError wraps the failure of a secondary write (adjustment
// journal, activity, debt, transaction) that must accompany a primary
// write. It is fatal for the enclosing transaction; never swallow it.
type DependentWriteError struct {
	Primary   string
	Dependent string
	Err       error
}

func (e *DependentWriteError) Error() string {
	return fmt.Sprintf("%s write succeeded but dependent %s write failed: %v", e.Primary, e.Dependent, e.Err)
}

func (e *DependentWriteError) Unwrap() error { return e.Err }
