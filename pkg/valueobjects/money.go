package valueobjects

import (
	"fmt"
	"strings"

	"github.com/roamfund/roamfund-backend/errors"
	"github.com/shopspring/decimal"
)

// Currency represents a valid ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	INR Currency = "INR"
)

var validCurrencies = map[Currency]bool{
	USD: true,
	EUR: true,
	GBP: true,
	INR: true,
}

// Money represents a monetary value with a specific currency, precise to
// the smallest currency unit (two decimal places).
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a Money instance with validation.
func NewMoney(amount decimal.Decimal, currency Currency) (*Money, error) {
	if !isValidCurrency(currency) {
		return nil, errors.ValidationFailed(
			"invalid currency",
			fmt.Sprintf("currency %s is not supported", currency),
		)
	}

	if amount.LessThan(decimal.Zero) {
		return nil, errors.ValidationFailed(
			"invalid amount",
			"amount cannot be negative",
		)
	}

	if amount.Exponent() < -2 {
		return nil, errors.ValidationFailed(
			"invalid amount",
			"amount cannot have more than 2 decimal places",
		)
	}

	return &Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString creates a Money instance from string representations.
func NewMoneyFromString(amount string, currency string) (*Money, error) {
	decimalAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.ValidationFailed("invalid amount format", err.Error())
	}
	return NewMoney(decimalAmount, Currency(strings.ToUpper(currency)))
}

// NewMoneyFromMinorUnits creates a Money instance from an amount in the
// smallest currency unit (cents, paise).
func NewMoneyFromMinorUnits(minor int64, currency Currency) (*Money, error) {
	return NewMoney(decimal.New(minor, -2), currency)
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code.
func (m Money) Currency() Currency {
	return m.currency
}

// MinorUnits returns the amount in the smallest currency unit, the form
// payment gateways charge in.
func (m Money) MinorUnits() int64 {
	return m.amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Add adds two monetary values of the same currency.
func (m Money) Add(other Money) (*Money, error) {
	if m.currency != other.currency {
		return nil, errors.ValidationFailed(
			ErrCurrencyMismatch,
			fmt.Sprintf("cannot add %s to %s", other.currency, m.currency),
		)
	}
	return &Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract subtracts two monetary values of the same currency. The result
// may not be negative.
func (m Money) Subtract(other Money) (*Money, error) {
	if m.currency != other.currency {
		return nil, errors.ValidationFailed(
			ErrCurrencyMismatch,
			fmt.Sprintf("cannot subtract %s from %s", other.currency, m.currency),
		)
	}

	result := m.amount.Sub(other.amount)
	if result.LessThan(decimal.Zero) {
		return nil, errors.ValidationFailed(
			"invalid operation",
			"subtraction would result in negative amount",
		)
	}
	return &Money{amount: result, currency: m.currency}, nil
}

// SplitEqualCeil divides the amount into n equal shares, each rounded up
// to the smallest currency unit: share = ceil(amount/n * 100) / 100.
// The sum of shares may exceed the original amount by up to n-1 cents;
// over-collection is preferred to under-collection.
func (m Money) SplitEqualCeil(n int) (*Money, error) {
	if n <= 0 {
		return nil, errors.ValidationFailed(
			"invalid split",
			"number of parts must be positive",
		)
	}

	share := m.amount.
		Div(decimal.NewFromInt(int64(n))).
		Mul(decimal.NewFromInt(100)).
		Ceil().
		Div(decimal.NewFromInt(100))

	return &Money{amount: share, currency: m.currency}, nil
}

// IsZero checks if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive checks if the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.GreaterThan(decimal.Zero)
}

// Equals checks if two monetary values are equal.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Compare returns -1, 0 or 1 comparing amounts of the same currency.
func (m Money) Compare(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, errors.ValidationFailed(
			ErrCurrencyMismatch,
			fmt.Sprintf("cannot compare %s with %s", m.currency, other.currency),
		)
	}
	return m.amount.Cmp(other.amount), nil
}

// String returns a string representation of the money value.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

func isValidCurrency(currency Currency) bool {
	return validCurrencies[currency]
}

const (
	ErrInvalidAmount    = "INVALID_AMOUNT"
	ErrInvalidCurrency  = "INVALID_CURRENCY"
	ErrCurrencyMismatch = "CURRENCY_MISMATCH"
)
