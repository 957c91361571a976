// Package pricing implements the Preiskennzeichen, the two-digit price
// classification of a billing line, and its mapping onto the article
// master price fields.
package pricing

// Class is a two-digit price classification code.
type Class string

// The classification codes of technical annex 1.
const (
	PurchasePrice      Class = "11" // AEK, pharmacy purchase price
	PurchaseWithCopay  Class = "12" // AEK plus patient co-pay
	SalePrice          Class = "13" // AVK, pharmacy sale price
	FixedFee           Class = "14"
	Copay              Class = "15"
	CopayWithFixedFee  Class = "16"
	CopayWithSalePrice Class = "17"
	CompoundingPrice   Class = "21"
	Other              Class = "90" // also marks artificial insemination lines
)

var known = map[Class]struct{}{
	PurchasePrice: {}, PurchaseWithCopay: {}, SalePrice: {},
	FixedFee: {}, Copay: {}, CopayWithFixedFee: {}, CopayWithSalePrice: {},
	CompoundingPrice: {}, Other: {},
}

// Known reports whether the code is part of the enumerated set.
func (c Class) Known() bool {
	_, ok := known[c]
	return ok
}

// IsArtificialInsemination reports whether the classification is the
// reserved artificial insemination code.
func (c Class) IsArtificialInsemination() bool { return c == Other }

// Basis selects the article master price field a classification is checked
// against.
type Basis int

const (
	// BasisNone marks contract or negotiated prices with no external
	// reference; price calculation checks are skipped.
	BasisNone Basis = iota
	// BasisPurchase compares against the pharmacy purchase price.
	BasisPurchase
	// BasisSale compares against the pharmacy sale price.
	BasisSale
)

// Basis returns the external price field for the classification.
func (c Class) Basis() Basis {
	switch c {
	case PurchasePrice, PurchaseWithCopay:
		return BasisPurchase
	case SalePrice:
		return BasisSale
	default:
		return BasisNone
	}
}

// String returns the two-digit code.
func (c Class) String() string { return string(c) }
