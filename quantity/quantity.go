// Package quantity implements the dispensed and package quantities used by
// the billing factor checks.
package quantity

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrZeroDivisor is returned when dividing by a zero quantity.
var ErrZeroDivisor = errors.New("quantity: division by zero quantity")

// Quantity is a decimal amount with an optional unit.
type Quantity struct {
	Value decimal.Decimal
	Unit  string
}

// New builds a quantity from a decimal value and unit.
func New(value decimal.Decimal, unit string) Quantity {
	return Quantity{Value: value, Unit: unit}
}

// FromInt builds a unitless whole quantity.
func FromInt(n int64) Quantity {
	return Quantity{Value: decimal.NewFromInt(n)}
}

// Parse reads a decimal quantity value.
func Parse(s, unit string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: d, Unit: unit}, nil
}

// IsZero reports whether the value is exactly zero.
func (q Quantity) IsZero() bool { return q.Value.IsZero() }

// IsPositive reports whether the value is greater than zero.
func (q Quantity) IsPositive() bool { return q.Value.IsPositive() }

// Div divides the quantity by another, guarding against a zero divisor.
func (q Quantity) Div(by Quantity) (decimal.Decimal, error) {
	if by.Value.IsZero() {
		return decimal.Decimal{}, ErrZeroDivisor
	}
	return q.Value.Div(by.Value), nil
}

// String formats the value with its unit when present.
func (q Quantity) String() string {
	if q.Unit == "" {
		return q.Value.String()
	}
	return q.Value.String() + " " + q.Unit
}
