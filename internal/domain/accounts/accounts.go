package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
)

var (
	ErrUserIDEmpty         = errors.New("account user id is empty")
	ErrBalanceNegative     = errors.New("account balance is negative")
	ErrInsufficientBalance = errors.New("account balance is insufficient")
)

// Account is the wallet balance of a single user.
type Account struct {
	userID    uuid.UUID
	balance   decimal.Decimal
	currency  string
	updatedAt time.Time
}

func NewAccount(userID uuid.UUID, balance decimal.Decimal, updatedAt time.Time) (*Account, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDEmpty
	}

	if balance.IsNegative() {
		return nil, ErrBalanceNegative
	}

	return &Account{
		userID:    userID,
		balance:   balance,
		currency:  money.Currency,
		updatedAt: updatedAt,
	}, nil
}

func (a *Account) UserID() uuid.UUID {
	return a.userID
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

func (a *Account) Currency() string {
	return a.currency
}

func (a *Account) UpdatedAt() time.Time {
	return a.updatedAt
}

// Credit adds amount to the balance and returns the balance before and after.
func (a *Account) Credit(amount decimal.Decimal, at time.Time) (before, after decimal.Decimal) {
	before = a.balance
	a.balance = a.balance.Add(amount)
	a.updatedAt = at

	return before, a.balance
}

// Debit subtracts amount from the balance. The balance never goes below zero.
func (a *Account) Debit(amount decimal.Decimal, at time.Time) (before, after decimal.Decimal, err error) {
	if a.balance.LessThan(amount) {
		return a.balance, a.balance, ErrInsufficientBalance
	}

	before = a.balance
	a.balance = a.balance.Sub(amount)
	a.updatedAt = at

	return before, a.balance, nil
}

// Clone returns an independent copy of the account.
func (a *Account) Clone() *Account {
	c := *a

	return &c
}
