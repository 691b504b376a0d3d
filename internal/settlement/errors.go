package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountExceedsLimit also matches ErrInvalidAmount.
	ErrAmountExceedsLimit = fmt.Errorf("%w: amount exceeds deposit limit", ErrInvalidAmount)
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAlreadyRefunded    = errors.New("order already refunded")
	ErrInvalidRefundState = errors.New("order cannot be refunded in its current state")
	ErrInvalidCancelState = errors.New("order cannot be cancelled in its current state")
	ErrInvalidTransition  = errors.New("order status transition is not allowed")

	ErrAccountNotFound = storage.ErrAccountNotFound
	ErrProductNotFound = storage.ErrProductNotFound
	ErrOrderNotFound   = storage.ErrOrderNotFound
)

// InsufficientFundsError reports how much a purchase needed and how much the
// account held. It matches ErrInsufficientFunds.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s", money.Format(e.Required), money.Format(e.Available))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// ValidationError names the offending input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
