// Package money formats charging costs and savings as currency values.
// Amounts are held in integer minor units through go-money; conversions from the
// float64 totals produced by the analytics go through shopspring/decimal.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	GBP = "GBP" // British Pound
	CAD = "CAD" // Canadian Dollar
	NOK = "NOK" // Norwegian Krone
	JPY = "JPY" // Japanese Yen (no decimal places)
)

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{
		m: money.New(amountCents, resolveCode(currencyCode)),
	}
}

// NewFromFloat creates Money from a floating-point value, rounding to the
// currency's minor unit.
func NewFromFloat(amount float64, currencyCode string) *Money {
	return NewFromDecimal(decimal.NewFromFloat(amount), currencyCode)
}

// NewFromDecimal creates Money from a decimal.Decimal value.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	code := resolveCode(currencyCode)
	currency := money.GetCurrency(code)

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, code)
}

// Sum adds float amounts in decimal space and returns the total as Money.
func Sum(currencyCode string, amounts ...float64) *Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return NewFromDecimal(total, currencyCode)
}

// Amount returns the amount in minor units (cents)
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

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Display returns a formatted string for display (e.g., "$1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "$0.00"
	}
	return m.m.Display()
}

// RatePerKWh formats a price per kWh with four decimals, e.g. "$0.2150/kWh".
func RatePerKWh(rate float64, currencyCode string) string {
	currency := money.GetCurrency(resolveCode(currencyCode))
	return fmt.Sprintf("%s%s/kWh", currency.Grapheme, decimal.NewFromFloat(rate).StringFixed(4))
}

// MarshalJSON renders amount, currency and display string.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

// resolveCode falls back to USD for unknown codes.
func resolveCode(code string) string {
	if code == "" || money.GetCurrency(code) == nil {
		return USD
	}
	return code
}
