// Package money provides currency-safe amounts on top of go-money. PayPay
// amounts are whole yen, so JPY is the default currency.
package money

import (
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const JPY = money.JPY

var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units. For JPY that is whole yen.
func New(amount int64, currencyCode string) *Money {
	return &Money{m: money.New(amount, currencyCode)}
}

// Yen creates a JPY amount
func Yen(amount int64) *Money {
	return New(amount, JPY)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Sum adds yen amounts
func Sum(amounts ...int64) *Money {
	total := Zero(JPY)
	for _, a := range amounts {
		total = total.MustAdd(Yen(a))
	}
	return total
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool {
	return m.Amount() == 0
}

// Add returns m + other
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || other == nil {
		return nil, errors.New("cannot add nil money")
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return &Money{m: sum}, nil
}

// MustAdd is Add that panics on a currency mismatch
func (m *Money) MustAdd(other *Money) *Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Compare returns -1, 0 or 1. Amounts in different currencies compare as 0.
func (m *Money) Compare(other *Money) int {
	if m == nil || other == nil || m.m == nil || other.m == nil {
		return 0
	}
	cmp, _ := m.m.Compare(other.m)
	return cmp
}

// Display returns a formatted string for display (e.g., "¥3,600")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return Zero(JPY).Display()
	}
	return m.m.Display()
}

// String returns the amount as a decimal string
func (m *Money) String() string {
	return m.ToDecimal().String()
}

// ToDecimal converts to decimal.Decimal in major units
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	fraction := m.m.Currency().Fraction
	return decimal.New(m.m.Amount(), -int32(fraction))
}

// PercentageOf returns m as a percentage of total, rounded to one decimal.
func (m *Money) PercentageOf(total *Money) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return m.ToDecimal().Div(total.ToDecimal()).Mul(decimal.NewFromInt(100)).Round(1)
}
