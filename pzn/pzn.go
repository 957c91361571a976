// Package pzn implements the Pharmazentralnummer, the eight-digit product
// identifier of the German pharmaceutical article master.
package pzn

import (
	"errors"
	"fmt"
	"strings"
)

// Length is the canonical PZN length in digits.
const Length = 8

var (
	// ErrEmpty is returned when the input contains no digits.
	ErrEmpty = errors.New("pzn: empty identifier")
	// ErrNotNumeric is returned when the input contains non-digit characters.
	ErrNotNumeric = errors.New("pzn: identifier is not numeric")
	// ErrTooLong is returned when the input has more than eight digits.
	ErrTooLong = errors.New("pzn: identifier longer than eight digits")
)

// PZN is a normalized eight-digit product identifier. The zero value is
// invalid; construct values with Parse.
type PZN string

// Parse normalizes and validates the basic shape of a product identifier.
// Inputs shorter than eight digits are left-padded with zeros, matching how
// legacy seven-digit numbers appear in billing data. Parse does not verify
// the check digit; see ChecksumOK.
func Parse(s string) (PZN, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrNotNumeric, s)
		}
	}
	if len(s) > Length {
		return "", fmt.Errorf("%w: %q", ErrTooLong, s)
	}
	if len(s) < Length {
		s = strings.Repeat("0", Length-len(s)) + s
	}
	return PZN(s), nil
}

// MustParse is like Parse but panics on invalid input. For tests and
// compile-time constants only.
func MustParse(s string) PZN {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the normalized eight-digit form.
func (p PZN) String() string { return string(p) }

// Valid reports whether the identifier has a valid format: eight digits and
// not inside a reserved number range.
func (p PZN) Valid() bool {
	if len(p) != Length {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return !p.Reserved()
}

// Reserved reports whether the identifier falls into one of the number
// ranges the IFA keeps reserved; such numbers are never assigned to
// articles.
func (p PZN) Reserved() bool {
	if len(p) != Length {
		return false
	}
	var prefix int
	for i := 0; i < Length-1; i++ {
		prefix = prefix*10 + int(p[i]-'0')
	}
	return (prefix >= 80000 && prefix <= 83999) ||
		(prefix >= 800000 && prefix <= 839999)
}

// ChecksumOK verifies the modulo-11 check digit: the first seven digits are
// weighted 2..8 positionally, and the sum modulo 11 must equal the eighth
// digit. A remainder of 10 can never match, so such numbers always fail.
func (p PZN) ChecksumOK() bool {
	if len(p) != Length {
		return false
	}
	sum := 0
	for i := 0; i < Length-1; i++ {
		d := int(p[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		sum += d * (i + 2)
	}
	return sum%11 == int(p[Length-1]-'0')
}
