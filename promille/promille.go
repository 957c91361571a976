// Package promille implements the per-mille billing factor of dispensing
// line items. A factor of 1000 bills one full package; partial dispensing
// scales proportionally.
//
// Factors are held in integer micro-per-mille units so that comparisons
// are exact and the documented tolerance of 1e-6 is a distance of one unit.
package promille

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// micro is the number of units per 1 per-mille.
const micro = 1_000_000

// Factor is a billing factor in micro-per-mille units.
type Factor int64

const (
	// Zero is the empty factor.
	Zero Factor = 0
	// One is a factor of 1, required on lines without quantity reference.
	One Factor = 1 * micro
	// FullPackage is a factor of 1000, one complete package.
	FullPackage Factor = 1000 * micro
)

// Tolerance is the maximum distance at which two factors still compare
// equal, one micro-per-mille.
const Tolerance Factor = 1

// ErrZeroPackage is returned by FromRatio when the package size is zero.
var ErrZeroPackage = errors.New("promille: package size is zero")

var microDec = decimal.NewFromInt(micro)

// FromDecimal converts a per-mille value to a Factor, rounding half away
// from zero at the micro-per-mille boundary.
func FromDecimal(d decimal.Decimal) Factor {
	return Factor(d.Mul(microDec).Round(0).IntPart())
}

// Parse reads a decimal per-mille value such as "250" or "1.5".
func Parse(s string) (Factor, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("promille: parse %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// FromRatio derives the factor billing `dispensed` units out of a package
// of `pack` units: (dispensed / pack) * 1000.
func FromRatio(dispensed, pack decimal.Decimal) (Factor, error) {
	if pack.IsZero() {
		return 0, ErrZeroPackage
	}
	return FromDecimal(dispensed.Div(pack).Mul(decimal.NewFromInt(1000))), nil
}

// FromInt converts a whole per-mille value.
func FromInt(n int64) Factor {
	return Factor(n * micro)
}

// Decimal returns the factor as a per-mille decimal.
func (f Factor) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(f)).Div(microDec)
}

// String formats the factor as a per-mille decimal.
func (f Factor) String() string {
	return f.Decimal().String()
}

// ApproxEqual reports whether two factors are equal within Tolerance.
func (f Factor) ApproxEqual(g Factor) bool {
	d := f - g
	if d < 0 {
		d = -d
	}
	return d <= Tolerance
}

// IsPositive reports whether the factor is greater than zero.
func (f Factor) IsPositive() bool { return f > 0 }
