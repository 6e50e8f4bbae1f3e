package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a caller does not specify one.
const DefaultCurrency = "XTR"

// Money is an immutable exact-decimal amount tagged with a currency.
// All arithmetic requires both operands to carry the same currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney builds a Money value. The amount must be non-negative and the
// currency non-empty.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if currency == "" {
		return Money{}, fmt.Errorf("money: currency is required: %w", ErrInvalidArgument)
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("money: amount cannot be negative: %w", ErrOutOfRange)
	}
	return Money{amount: amount, currency: currency}, nil
}

// MoneyFromString parses a decimal string into a Money value.
func MoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("money: amount must be a number: %w", ErrInvalidArgument)
	}
	return NewMoney(d, currency)
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the exact decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency tag.
func (m Money) Currency() string {
	return m.currency
}

// String renders the amount without trailing zeros.
func (m Money) String() string {
	return m.amount.String()
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m - other. The result must not be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency)
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

func (m Money) assertSameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("money: %s vs %s: %w", m.currency, other.currency, ErrCurrencyMismatch)
	}
	return nil
}
