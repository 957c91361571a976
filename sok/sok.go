// Package sok implements the Sonderkennzeichen, the special identifiers
// that take the place of a PZN on billing lines which do not bill a
// packaged article (fees, compounded preparations, contract positions).
package sok

import "strings"

// Code is a special identifier as it appears in the line item coding.
// Both the eight-digit form ("09999643") and the dotted group notation of
// technical annex 1 ("1.1.1") occur in billing data.
type Code string

// Well-known special identifiers.
const (
	// ArtificialInsemination marks lines billed under the artificial
	// insemination rules.
	ArtificialInsemination Code = "09999643"

	// NarcoticFee is the emergency narcotic dispensing fee (E-BTM fee).
	NarcoticFee Code = "02567001"
)

// compounding are the identifiers for extemporaneous preparations.
var compounding = map[Code]struct{}{
	"06460702": {},
	"09999011": {},
}

// noQuantityReference are the dotted group identifiers whose lines have no
// package to relate the billed amount to, so the billing factor carries no
// quantity semantics.
var noQuantityReference = map[Code]struct{}{
	"1.1.1":  {},
	"1.1.2":  {},
	"1.2.1":  {},
	"1.2.2":  {},
	"1.3.1":  {},
	"1.3.2":  {},
	"1.6.5":  {},
	"1.10.2": {},
	"1.10.3": {},
}

// cannabis are the identifiers permitted on cannabis dispensing lines.
var cannabis = map[Code]struct{}{
	"06461446": {},
	"06461423": {},
	"06460665": {},
	"06460694": {},
	"06460748": {},
	"06460754": {},
}

// Parse trims the raw coding value into a Code.
func Parse(s string) Code {
	return Code(strings.TrimSpace(s))
}

// String returns the identifier as found in the document.
func (c Code) String() string { return string(c) }

// IsArtificialInsemination reports whether the line is billed under the
// artificial insemination rules.
func (c Code) IsArtificialInsemination() bool { return c == ArtificialInsemination }

// IsNarcoticFee reports whether the identifier is the E-BTM dispensing fee.
func (c Code) IsNarcoticFee() bool { return c == NarcoticFee }

// IsCompounding reports whether the identifier marks an extemporaneous
// preparation.
func (c Code) IsCompounding() bool {
	_, ok := compounding[c]
	return ok
}

// NoQuantityReference reports whether the billing factor of the line has no
// relation to a package quantity.
func (c Code) NoQuantityReference() bool {
	_, ok := noQuantityReference[c]
	return ok
}

// IsCannabis reports whether the identifier is in the cannabis dispensing
// whitelist.
func (c Code) IsCannabis() bool {
	_, ok := cannabis[c]
	return ok
}
