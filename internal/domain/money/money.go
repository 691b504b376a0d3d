// Package money holds the rules shared by every monetary amount in the system.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is the only currency accounts and orders are kept in.
const Currency = "PLN"

// Places is the number of fraction digits an amount may carry.
const Places = 2

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount must have at most two fraction digits")
	ErrAmountMalformed   = errors.New("amount is malformed")
)

// ValidatePositive checks that amount is strictly positive and has no more
// than two fraction digits.
func ValidatePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}

	return ValidatePrecision(amount)
}

func ValidatePrecision(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(Places)) {
		return ErrAmountPrecision
	}

	return nil
}

// Parse converts s into an amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAmountMalformed, s)
	}

	return d, nil
}

// String renders an amount with exactly two fraction digits.
func String(amount decimal.Decimal) string {
	return amount.StringFixed(Places)
}

// Format renders an amount followed by the currency, e.g. "12.50 PLN".
func Format(amount decimal.Decimal) string {
	return String(amount) + " " + Currency
}
