// Package rules implements the validation rule catalog: a detection step
// plus the format, general, narcotics, cannabis and calculation rule sets.
// Each rule set is a stateless pipeline validator; findings carry stable
// codes of the form <CATEGORY>-<NNN>-<E|W|I>.
package rules

import (
	"context"
	"fmt"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/pipeline"
)

// Detection finding codes.
const (
	// CodeUnknownProduct flags a product identifier the article master
	// does not know.
	CodeUnknownProduct = "DATA-001-W"
	// CodeNotMarketable notes a product that is not in active trade.
	CodeNotMarketable = "DATA-002-I"
	// CodeNarcoticDetected notes a detected controlled substance.
	CodeNarcoticDetected = "DATA-003-I"
	// CodeCannabisDetected notes a detected medicinal cannabis product.
	CodeCannabisDetected = "DATA-004-I"
	// CodeLookupFailed reports a failed article master lookup.
	CodeLookupFailed = "DATA-005-E"
)

// Detector resolves every product identifier of the document against the
// article master in one batch and records the classification flags the
// narcotics and cannabis rule sets depend on. It must run before them.
type Detector struct {
	articles abda.Provider
}

// NewDetector creates the detection step backed by an article master.
func NewDetector(articles abda.Provider) *Detector {
	return &Detector{articles: articles}
}

// Name implements pipeline.Validator.
func (d *Detector) Name() string { return "detection" }

// Validate implements pipeline.Validator.
func (d *Detector) Validate(ctx context.Context, pctx *pipeline.Context) []plausibus.Issue {
	if len(pctx.PZNs) == 0 {
		return nil
	}

	found, err := d.articles.Lookup(ctx, pctx.PZNs)
	if err != nil {
		return []plausibus.Issue{
			plausibus.Error(CodeLookupFailed).
				Message(fmt.Sprintf("article master lookup failed: %v", err)).
				Build(),
		}
	}

	var issues []plausibus.Issue
	for _, id := range pctx.PZNs {
		a, ok := found[id]
		if !ok {
			pctx.Flags.RecordUnknown(id)
			issues = append(issues, plausibus.Warning(CodeUnknownProduct).
				Message("product identifier not found in article master").
				PZN(id.String()).
				Build())
			continue
		}

		pctx.Flags.Record(id, a)

		if a.IsNarcotic() {
			issues = append(issues, plausibus.Info(CodeNarcoticDetected).
				Message("controlled substance detected: "+a.Name).
				PZN(id.String()).
				Build())
		}
		if a.IsCannabis() {
			issues = append(issues, plausibus.Info(CodeCannabisDetected).
				Message("medicinal cannabis product detected: "+a.Name).
				PZN(id.String()).
				Build())
		}
		if !a.AvailableOnMarket() {
			issues = append(issues, plausibus.Info(CodeNotMarketable).
				Message("product is not in active trade").
				PZN(id.String()).
				Detail("marketStatus", a.MarketStatus).
				Build())
		}
	}
	return issues
}

var _ pipeline.Validator = (*Detector)(nil)
