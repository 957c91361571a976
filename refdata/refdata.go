// Package refdata provides the technical annex 1 reference tables: special
// identifiers, factor codes and price codes, together with the derived
// checks the rules apply against them.
package refdata

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a code is absent from the reference data.
var ErrNotFound = errors.New("refdata: code not found")

// E-prescription capability values of a special identifier.
const (
	// ERezeptNever marks codes not billable on electronic prescriptions.
	ERezeptNever = 0
	// ERezeptAllowed marks codes billable on paper and electronic forms.
	ERezeptAllowed = 1
	// ERezeptOnly marks codes billable exclusively on electronic
	// prescriptions.
	ERezeptOnly = 2
)

// VAT indicator values shared by special identifiers, as coded in the
// TA1 tables: 1 is the reduced rate, 2 the full rate.
const (
	VatIndicatorNone    = 0
	VatIndicatorReduced = 1
	VatIndicatorFull    = 2
)

// SpecialCode is one row of the SOK reference table.
type SpecialCode struct {
	Code        string
	Description string

	// VatIndicator is the USt marker, see the VatIndicator constants.
	VatIndicator int

	// ERezept is the electronic prescription capability.
	ERezept int

	// ValidFrom is the first day the code may be dispensed; zero means
	// unrestricted.
	ValidFrom time.Time

	// ExpiredDispensingDate is the last day the code may be dispensed;
	// zero means unrestricted.
	ExpiredDispensingDate time.Time
}

// VatPercent maps the indicator to the percentage rate.
func (s SpecialCode) VatPercent() int {
	switch s.VatIndicator {
	case VatIndicatorFull:
		return 19
	case VatIndicatorReduced:
		return 7
	default:
		return 0
	}
}

// ValidOn reports whether the code may be dispensed on the given day.
func (s SpecialCode) ValidOn(day time.Time) bool {
	if !s.ValidFrom.IsZero() && day.Before(s.ValidFrom) {
		return false
	}
	if !s.ExpiredDispensingDate.IsZero() && day.After(s.ExpiredDispensingDate) {
		return false
	}
	return true
}

// AllowedFor reports whether the code may appear on an electronic
// (true) or paper (false) prescription.
func (s SpecialCode) AllowedFor(electronic bool) bool {
	if electronic {
		return s.ERezept != ERezeptNever
	}
	return s.ERezept != ERezeptOnly
}

// MatchesVatRate reports whether a declared percentage rate equals the
// reference rate exactly.
func (s SpecialCode) MatchesVatRate(rate decimal.Decimal) bool {
	return rate.Equal(decimal.NewFromInt(int64(s.VatPercent())))
}

// FactorCode is one row of the factor code reference table; it names the
// unit the billing factor counts in.
type FactorCode struct {
	Code        string
	Content     string
	Description string
}

// PriceCode is one row of the price code reference table.
type PriceCode struct {
	Code        string
	Content     string
	Description string

	// VatPercent is the tax rate baked into prices under this code;
	// zero means the price is VAT-exclusive.
	VatPercent int
}

// TaxExclusive reports whether prices under this code exclude VAT.
func (p PriceCode) TaxExclusive() bool { return p.VatPercent == 0 }
