package rules

import (
	"context"
	"strings"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/fhir"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/promille"
	"github.com/megadur/plausibus/sok"
)

// Cannabis finding codes.
const (
	// CodeCannabisNoSpecialCode flags a cannabis document without any of
	// the dedicated cannabis billing codes.
	CodeCannabisNoSpecialCode = "CAN-001-E"
	// CodeCannabisConflict flags a product carrying both the cannabis flag
	// and a mutually exclusive classification.
	CodeCannabisConflict = "CAN-002-E"
	// CodeCannabisFactorBad flags a cannabis line whose factor is not one.
	CodeCannabisFactorBad = "CAN-003-E"
	// CodeCannabisPriceBad flags a cannabis line without a positive price.
	CodeCannabisPriceBad = "CAN-004-E"
	// CodeCannabisPriceNoted records the declared cannabis price.
	CodeCannabisPriceNoted = "CAN-004-I"
	// CodeManufacturingIncomplete flags missing manufacturing fields.
	CodeManufacturingIncomplete = "CAN-005-E"
	// CodeManufacturingAbsent flags a wholly absent manufacturing segment.
	CodeManufacturingAbsent = "CAN-005-W"
)

// unitFactor is the required billing factor on cannabis special code lines.
var unitFactor = promille.FromInt(1)

// CannabisValidator enforces the medicinal cannabis billing rules.
type CannabisValidator struct{}

// NewCannabisValidator creates the cannabis rule set.
func NewCannabisValidator() *CannabisValidator {
	return &CannabisValidator{}
}

// Applies reports whether the rule set is relevant: a cannabis-flagged
// product, or a cannabis special code on any line.
func (v *CannabisValidator) Applies(pctx *pipeline.Context) bool {
	if pctx.Flags.HasCannabis() {
		return true
	}
	return len(cannabisLines(pctx)) > 0
}

// Name implements pipeline.Validator.
func (v *CannabisValidator) Name() string { return "cannabis" }

// Validate implements pipeline.Validator.
func (v *CannabisValidator) Validate(_ context.Context, pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	issues = append(issues, v.checkSpecialCodePresence(pctx)...)
	issues = append(issues, v.checkExclusiveFlags(pctx)...)
	for _, line := range cannabisLines(pctx) {
		issues = append(issues, v.checkFactor(line)...)
		issues = append(issues, v.checkPrice(line)...)
	}
	issues = append(issues, v.checkManufacturing(pctx)...)
	return issues
}

// cannabisLines returns the line items billed under a cannabis special code.
func cannabisLines(pctx *pipeline.Context) []pipeline.Line {
	var out []pipeline.Line
	for _, line := range pctx.Lines() {
		if sok.Parse(line.Item.SOK()).IsCannabis() {
			out = append(out, line)
		}
	}
	return out
}

// checkSpecialCodePresence requires at least one cannabis special code
// when a cannabis-flagged product is dispensed.
func (v *CannabisValidator) checkSpecialCodePresence(pctx *pipeline.Context) []plausibus.Issue {
	if !pctx.Flags.HasCannabis() || len(cannabisLines(pctx)) > 0 {
		return nil
	}
	return []plausibus.Issue{
		plausibus.Error(CodeCannabisNoSpecialCode).
			Message("cannabis product dispensed without a cannabis billing code").
			Build(),
	}
}

// checkExclusiveFlags rejects products flagged both cannabis and narcotic
// or restricted-transfusion.
func (v *CannabisValidator) checkExclusiveFlags(pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	for _, id := range pctx.PZNs {
		if !pctx.Flags.IsCannabis(id) {
			continue
		}
		var conflicts []string
		if pctx.Flags.IsNarcotic(id) {
			conflicts = append(conflicts, "narcotic")
		}
		if pctx.Flags.IsTRezept(id) {
			conflicts = append(conflicts, "restricted-transfusion")
		}
		if len(conflicts) > 0 {
			issues = append(issues, plausibus.Error(CodeCannabisConflict).
				Message("cannabis product also classified as "+strings.Join(conflicts, " and ")).
				PZN(id.String()).
				Build())
		}
	}
	return issues
}

func (v *CannabisValidator) checkFactor(line pipeline.Line) []plausibus.Issue {
	factor := line.Item.FactorValue()
	if factor == nil {
		return []plausibus.Issue{
			plausibus.Error(CodeCannabisFactorBad).
				Message("cannabis billing line declares no factor, expected 1").
				At(line.Path + ".priceComponent.factor").
				Build(),
		}
	}
	if !promille.FromDecimal(*factor).ApproxEqual(unitFactor) {
		return []plausibus.Issue{
			plausibus.Error(CodeCannabisFactorBad).
				Message("cannabis billing line factor must be 1, got " + factor.String()).
				At(line.Path + ".priceComponent.factor").
				Detail("declared", factor.String()).
				Build(),
		}
	}
	return nil
}

func (v *CannabisValidator) checkPrice(line pipeline.Line) []plausibus.Issue {
	price := line.Item.GrossAmount()
	if price == nil || price.Value == nil || price.Value.Sign() <= 0 {
		return []plausibus.Issue{
			plausibus.Error(CodeCannabisPriceBad).
				Message("cannabis billing line must declare a positive gross price").
				At(line.Path + ".priceComponent.amount").
				Build(),
		}
	}
	return []plausibus.Issue{
		plausibus.Info(CodeCannabisPriceNoted).
			Message("cannabis gross price " + price.Value.String() + " declared").
			At(line.Path + ".priceComponent.amount").
			Detail("price", price.Value.String()).
			Build(),
	}
}

// checkManufacturing requires the manufacturing segment of the compounded
// preparation, surfaced on a line item or a dispense record.
func (v *CannabisValidator) checkManufacturing(pctx *pipeline.Context) []plausibus.Issue {
	lines := cannabisLines(pctx)
	if len(lines) == 0 {
		return nil
	}

	var issues []plausibus.Issue
	checkable := false
	for _, line := range lines {
		data, ok := extractManufacturingFor(pctx, line)
		if !ok {
			continue
		}
		checkable = true
		if missing := data.MissingFields(); len(missing) > 0 {
			issues = append(issues, plausibus.Error(CodeManufacturingIncomplete).
				Message("manufacturing data lacks "+strings.Join(missing, ", ")).
				At(line.Path).
				Build())
		}
	}

	if !checkable {
		return []plausibus.Issue{
			plausibus.Warning(CodeManufacturingAbsent).
				Message("no manufacturing data present for the cannabis preparation").
				Build(),
		}
	}
	return issues
}

// extractManufacturingFor reads the manufacturing segment from the line
// item, falling back to the dispense records.
func extractManufacturingFor(pctx *pipeline.Context, line pipeline.Line) (fhir.ManufacturingData, bool) {
	if data, ok := fhir.ExtractManufacturing(line.Item.Extension); ok {
		return data, true
	}
	for _, d := range pctx.Dispenses {
		if data, ok := fhir.ExtractManufacturing(d.Extension); ok {
			return data, true
		}
	}
	return fhir.ManufacturingData{}, false
}

var _ pipeline.Validator = (*CannabisValidator)(nil)
