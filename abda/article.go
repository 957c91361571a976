// Package abda provides access to the pharmaceutical article master
// (ABDA Artikelstamm): the drug attributes the validation rules consult,
// batched per document and cached with a TTL.
package abda

import "github.com/megadur/plausibus/money"

// Narcotic classification values of the article master.
const (
	BtmNone     = 0
	BtmNo       = 1
	BtmNarcotic = 2
	BtmExempt   = 3
	BtmTRezept  = 4
)

// Cannabis classification values.
const (
	CannabisNone     = 0
	CannabisNo       = 1
	CannabisMedCanG1 = 2
	CannabisMedCanG2 = 3
)

// VAT indicator values.
const (
	VatFull    = 1 // 19%
	VatReduced = 2 // 7%
	VatZero    = 3
)

// MarketAvailable is the market status of an article in active trade.
const MarketAvailable = "01"

// Article is one row of the article master, keyed by PZN.
type Article struct {
	PZN  string
	Name string

	// Btm is the narcotic classification, see the Btm constants.
	Btm int
	// Cannabis is the medicinal cannabis classification.
	Cannabis int
	// Tfg indicates the transfusion law regime (2 = applies).
	Tfg int

	// PurchasePrice is the pharmacy purchase price (AEK), excl. VAT.
	PurchasePrice money.Amount
	// SalePrice is the pharmacy sale price (AVK), incl. VAT.
	SalePrice money.Amount
	// ManufacturerPrice is the manufacturer price (ApU), excl. VAT.
	ManufacturerPrice money.Amount

	// MarketStatus is the Verkehrsfähigkeitsstatus code.
	MarketStatus string
	// Vat is the VAT rate indicator, see the Vat constants.
	Vat int
}

// IsNarcotic reports whether the article is a controlled substance.
func (a Article) IsNarcotic() bool { return a.Btm == BtmNarcotic }

// IsNarcoticExempt reports whether the article is an exempt preparation.
func (a Article) IsNarcoticExempt() bool { return a.Btm == BtmExempt }

// IsTRezept reports whether the article falls under the transfusion law
// prescription regime.
func (a Article) IsTRezept() bool { return a.Btm == BtmTRezept || a.Tfg == 2 }

// IsCannabis reports whether the article is medicinal cannabis.
func (a Article) IsCannabis() bool {
	return a.Cannabis == CannabisMedCanG1 || a.Cannabis == CannabisMedCanG2
}

// AvailableOnMarket reports whether the article is in active trade.
func (a Article) AvailableOnMarket() bool { return a.MarketStatus == MarketAvailable }

// VatRatePercent returns the VAT percentage for the indicator, and false
// for unknown indicators.
func (a Article) VatRatePercent() (int, bool) {
	switch a.Vat {
	case VatFull:
		return 19, true
	case VatReduced:
		return 7, true
	case VatZero:
		return 0, true
	default:
		return 0, false
	}
}
