// Package money implements currency amounts for billing comparisons.
// Amounts are held as integer cents; price comparisons against reference
// data allow a one-cent rounding difference.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a price component carries no currency.
const DefaultCurrency = "EUR"

// CentTolerance is the maximum difference, in cents, at which two amounts
// still compare equal.
const CentTolerance int64 = 1

// Amount is a currency amount in integer cents.
type Amount struct {
	cents    int64
	currency string
}

var hundred = decimal.NewFromInt(100)

// FromCents builds an amount from integer cents.
func FromCents(cents int64, currency string) Amount {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Amount{cents: cents, currency: currency}
}

// FromDecimal converts a decimal currency value to an amount, rounding half
// away from zero at the cent boundary.
func FromDecimal(d decimal.Decimal, currency string) Amount {
	return FromCents(d.Mul(hundred).Round(0).IntPart(), currency)
}

// Parse reads a decimal currency value such as "12.40".
func Parse(s, currency string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d, currency), nil
}

// Cents returns the amount in integer cents.
func (a Amount) Cents() int64 { return a.cents }

// Currency returns the ISO currency code.
func (a Amount) Currency() string {
	if a.currency == "" {
		return DefaultCurrency
	}
	return a.currency
}

// Decimal returns the amount as a decimal currency value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(a.cents).Div(hundred)
}

// String formats the amount with its currency, e.g. "12.40 EUR".
func (a Amount) String() string {
	return a.Decimal().StringFixed(2) + " " + a.Currency()
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.cents == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.cents > 0 }

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool { return a.cents < 0 }

// Add returns the sum of two amounts. Currencies must match; mismatched
// currencies return the receiver unchanged and false.
func (a Amount) Add(b Amount) (Amount, bool) {
	if a.Currency() != b.Currency() {
		return a, false
	}
	return Amount{cents: a.cents + b.cents, currency: a.Currency()}, true
}

// Scale multiplies the amount by a decimal factor, rounding half away from
// zero at the cent boundary.
func (a Amount) Scale(d decimal.Decimal) Amount {
	scaled := decimal.NewFromInt(a.cents).Mul(d).Round(0).IntPart()
	return Amount{cents: scaled, currency: a.Currency()}
}

// ApproxEqual reports whether two amounts differ by at most CentTolerance.
// Amounts in different currencies are never equal.
func (a Amount) ApproxEqual(b Amount) bool {
	if a.Currency() != b.Currency() {
		return false
	}
	d := a.cents - b.cents
	if d < 0 {
		d = -d
	}
	return d <= CentTolerance
}
