package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
)

var (
	ErrEntryKindInvalid     = errors.New("ledger entry kind is invalid")
	ErrEntryBalanceMismatch = errors.New("ledger entry balance before/after does not match amount")
	ErrEntryOrderRequired   = errors.New("ledger entry requires a related order")
	ErrEntryUserIDEmpty     = errors.New("ledger entry user id is empty")
	ErrEntryBalanceNegative = errors.New("ledger entry balance is negative")
)

// Kind is the type of balance movement an entry records.
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindPayment Kind = "payment"
	KindRefund  Kind = "refund"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a kind as it is accepted by history filters.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindDeposit:
		return KindDeposit, nil
	case KindPayment:
		return KindPayment, nil
	case KindRefund:
		return KindRefund, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrEntryKindInvalid, s)
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethodWallet marks entries settled against the wallet balance itself.
const PaymentMethodWallet = "wallet"

// PaymentMethodUnknown is recorded for deposits with no declared funding method.
const PaymentMethodUnknown = "unknown"

// Entry is an immutable record of one balance movement.
type Entry struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Kind           Kind
	Amount         decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	Currency       string
	RelatedOrderID *uuid.UUID
	Status         Status
	Description    string
	PaymentMethod  string
	CreatedAt      time.Time
}

// NewEntry builds a completed entry and checks that before/after agree with
// the amount for the given kind.
func NewEntry(e Entry) (*Entry, error) {
	if e.UserID == uuid.Nil {
		return nil, ErrEntryUserIDEmpty
	}

	if err := money.ValidatePositive(e.Amount); err != nil {
		return nil, fmt.Errorf("money.ValidatePositive: %w", err)
	}

	if e.BalanceBefore.IsNegative() || e.BalanceAfter.IsNegative() {
		return nil, ErrEntryBalanceNegative
	}

	switch e.Kind {
	case KindDeposit:
		if !e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount)) {
			return nil, ErrEntryBalanceMismatch
		}
	case KindRefund:
		if !e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount)) {
			return nil, ErrEntryBalanceMismatch
		}

		if e.RelatedOrderID == nil {
			return nil, ErrEntryOrderRequired
		}
	case KindPayment:
		if !e.BalanceAfter.Equal(e.BalanceBefore.Sub(e.Amount)) {
			return nil, ErrEntryBalanceMismatch
		}

		if e.RelatedOrderID == nil {
			return nil, ErrEntryOrderRequired
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrEntryKindInvalid, e.Kind)
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	if e.Status == "" {
		e.Status = StatusCompleted
	}

	if e.Currency == "" {
		e.Currency = money.Currency
	}

	if e.PaymentMethod == "" {
		e.PaymentMethod = PaymentMethodUnknown
	}

	return &e, nil
}

// Delta returns the signed change the entry applied to the balance.
func (e *Entry) Delta() decimal.Decimal {
	return e.BalanceAfter.Sub(e.BalanceBefore)
}
