package pipeline

import (
	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/pzn"
)

// DetectedFlags records what the detection step found in the article
// master for the document's products. The narcotics and cannabis rule
// sets key off these flags instead of re-querying the master.
type DetectedFlags struct {
	narcotics map[pzn.PZN]struct{}
	exempt    map[pzn.PZN]struct{}
	tRezept   map[pzn.PZN]struct{}
	cannabis  map[pzn.PZN]struct{}

	// articles holds every master record that was found.
	articles map[pzn.PZN]abda.Article

	// unknown lists document PZNs absent from the article master, in
	// first-seen order.
	unknown []pzn.PZN
}

// Record classifies one article master record under its PZN.
func (f *DetectedFlags) Record(id pzn.PZN, a abda.Article) {
	if f.articles == nil {
		f.articles = make(map[pzn.PZN]abda.Article)
	}
	f.articles[id] = a

	mark := func(set *map[pzn.PZN]struct{}) {
		if *set == nil {
			*set = make(map[pzn.PZN]struct{})
		}
		(*set)[id] = struct{}{}
	}
	if a.IsNarcotic() {
		mark(&f.narcotics)
	}
	if a.IsNarcoticExempt() {
		mark(&f.exempt)
	}
	if a.IsTRezept() {
		mark(&f.tRezept)
	}
	if a.IsCannabis() {
		mark(&f.cannabis)
	}
}

// RecordUnknown notes a document PZN the article master does not know.
func (f *DetectedFlags) RecordUnknown(id pzn.PZN) {
	f.unknown = append(f.unknown, id)
}

// Article returns the master record for a PZN, if the detection step
// found one.
func (f *DetectedFlags) Article(id pzn.PZN) (abda.Article, bool) {
	a, ok := f.articles[id]
	return a, ok
}

// Unknown returns the document PZNs absent from the article master.
func (f *DetectedFlags) Unknown() []pzn.PZN { return f.unknown }

// IsNarcotic reports whether the PZN was detected as a narcotic.
func (f *DetectedFlags) IsNarcotic(id pzn.PZN) bool {
	_, ok := f.narcotics[id]
	return ok
}

// IsNarcoticExempt reports whether the PZN is an exempt preparation.
func (f *DetectedFlags) IsNarcoticExempt(id pzn.PZN) bool {
	_, ok := f.exempt[id]
	return ok
}

// IsTRezept reports whether the PZN requires a T-Rezept.
func (f *DetectedFlags) IsTRezept(id pzn.PZN) bool {
	_, ok := f.tRezept[id]
	return ok
}

// IsCannabis reports whether the PZN is a cannabis product.
func (f *DetectedFlags) IsCannabis(id pzn.PZN) bool {
	_, ok := f.cannabis[id]
	return ok
}

// HasNarcotics reports whether any narcotic was detected.
func (f *DetectedFlags) HasNarcotics() bool { return len(f.narcotics) > 0 }

// HasTRezept reports whether any T-Rezept product was detected.
func (f *DetectedFlags) HasTRezept() bool { return len(f.tRezept) > 0 }

// HasCannabis reports whether any cannabis product was detected.
func (f *DetectedFlags) HasCannabis() bool { return len(f.cannabis) > 0 }

// Narcotics returns the detected narcotic PZNs in document order.
func (f *DetectedFlags) Narcotics(order []pzn.PZN) []pzn.PZN {
	var out []pzn.PZN
	for _, id := range order {
		if f.IsNarcotic(id) {
			out = append(out, id)
		}
	}
	return out
}
