package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/fhir"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/pzn"
	"github.com/megadur/plausibus/sok"
)

// Narcotics finding codes.
const (
	// CodeNarcoticFeeBad flags a narcotic fee line whose multiplier does
	// not equal the number of distinct narcotic lines, or a duplicated fee.
	CodeNarcoticFeeBad = "BTM-001-E"
	// CodeNarcoticFeeAbsent notes the absence of the narcotic fee code.
	// Advisory only; the fee mechanism is not yet universally mandatory.
	CodeNarcoticFeeAbsent = "BTM-001-I"
	// CodeNarcoticIncomplete flags a narcotic line missing quantity or price.
	CodeNarcoticIncomplete = "BTM-002-E"
	// CodeNarcoticWindow flags dispensing more than seven days after issue.
	CodeNarcoticWindow = "BTM-003-W"
	// CodeDiagnosisAbsent flags a narcotic document without a diagnosis.
	CodeDiagnosisAbsent = "BTM-004-W"
	// CodeDiagnosisPresent notes the diagnosis found on the document.
	CodeDiagnosisPresent = "BTM-004-I"
)

// dispensingWindow is the maximum age of a narcotic prescription at
// dispensing time, boundary inclusive.
const dispensingWindowDays = 7

// NarcoticsValidator enforces the controlled-substance rules. It only
// applies when the detection step flagged at least one narcotic.
type NarcoticsValidator struct{}

// NewNarcoticsValidator creates the narcotics rule set.
func NewNarcoticsValidator() *NarcoticsValidator {
	return &NarcoticsValidator{}
}

// Applies reports whether the rule set is relevant for the document.
func (v *NarcoticsValidator) Applies(pctx *pipeline.Context) bool {
	return pctx.Flags.HasNarcotics()
}

// Name implements pipeline.Validator.
func (v *NarcoticsValidator) Name() string { return "narcotics" }

// Validate implements pipeline.Validator.
func (v *NarcoticsValidator) Validate(_ context.Context, pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	issues = append(issues, v.checkFee(pctx)...)
	issues = append(issues, v.checkCompleteness(pctx)...)
	issues = append(issues, v.checkWindow(pctx)...)
	issues = append(issues, v.checkDiagnosis(pctx)...)
	return issues
}

// narcoticLines returns the line items whose product is a flagged narcotic.
func narcoticLines(pctx *pipeline.Context) []pipeline.Line {
	var out []pipeline.Line
	for _, line := range pctx.Lines() {
		id, err := pzn.Parse(line.Item.PZN())
		if err != nil {
			continue
		}
		if pctx.Flags.IsNarcotic(id) {
			out = append(out, line)
		}
	}
	return out
}

// checkFee verifies the narcotic fee line: present once, with a multiplier
// equal to the count of distinct narcotic lines.
func (v *NarcoticsValidator) checkFee(pctx *pipeline.Context) []plausibus.Issue {
	var feeLines []pipeline.Line
	for _, line := range pctx.Lines() {
		if sok.Parse(line.Item.SOK()).IsNarcoticFee() {
			feeLines = append(feeLines, line)
		}
	}

	if len(feeLines) == 0 {
		return []plausibus.Issue{
			plausibus.Info(CodeNarcoticFeeAbsent).
				Message("narcotic fee code " + string(sok.NarcoticFee) + " is not billed").
				Build(),
		}
	}
	if len(feeLines) > 1 {
		return []plausibus.Issue{
			plausibus.Error(CodeNarcoticFeeBad).
				Message(fmt.Sprintf("narcotic fee code billed %d times, expected once", len(feeLines))).
				At(feeLines[1].Path).
				Build(),
		}
	}

	fee := feeLines[0]
	want := int64(len(narcoticLines(pctx)))
	factor := fee.Item.FactorValue()
	if factor == nil || !factor.Equal(decimal.NewFromInt(want)) {
		declared := "absent"
		if factor != nil {
			declared = factor.String()
		}
		return []plausibus.Issue{
			plausibus.Error(CodeNarcoticFeeBad).
				Message(fmt.Sprintf("narcotic fee multiplier %s does not match %d narcotic line item(s)", declared, want)).
				At(fee.Path + ".priceComponent.factor").
				Detail("declared", declared).
				Detail("expected", fmt.Sprintf("%d", want)).
				Build(),
		}
	}
	return nil
}

// checkCompleteness requires a positive quantity and price on every
// narcotic line.
func (v *NarcoticsValidator) checkCompleteness(pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	for _, line := range narcoticLines(pctx) {
		var missing []string

		q := line.Item.DispensedQuantity()
		if q == nil || q.Sign() <= 0 {
			missing = append(missing, "quantity")
		}
		price := line.Item.GrossAmount()
		if price == nil || price.Value == nil || price.Value.Sign() <= 0 {
			missing = append(missing, "price")
		}

		if len(missing) > 0 {
			issues = append(issues, plausibus.Error(CodeNarcoticIncomplete).
				Message("narcotic line item lacks a positive "+strings.Join(missing, " and ")).
				At(line.Path).
				PZN(line.Item.PZN()).
				Build())
		}
	}
	return issues
}

// checkWindow compares the earliest prescription issue date against the
// dispensing date. Missing dates make the rule unverifiable, not invalid.
func (v *NarcoticsValidator) checkWindow(pctx *pipeline.Context) []plausibus.Issue {
	if !pctx.HasDispensedAt {
		return nil
	}

	var earliest time.Time
	for _, r := range pctx.Requests {
		t, err := fhir.ParseTime(r.AuthoredOn)
		if err != nil {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	if earliest.IsZero() {
		return nil
	}

	issued := truncateToDay(earliest)
	dispensed := truncateToDay(pctx.DispensedAt)
	days := int(dispensed.Sub(issued).Hours() / 24)
	if days > dispensingWindowDays {
		return []plausibus.Issue{
			plausibus.Warning(CodeNarcoticWindow).
				Message(fmt.Sprintf("narcotic dispensed %d days after prescription issue, limit is %d days",
					days, dispensingWindowDays)).
				Detail("authoredOn", issued.Format("2006-01-02")).
				Detail("dispensedAt", dispensed.Format("2006-01-02")).
				Build(),
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// checkDiagnosis looks for a condition resource with a recognized
// diagnosis coding.
func (v *NarcoticsValidator) checkDiagnosis(pctx *pipeline.Context) []plausibus.Issue {
	for _, c := range pctx.Conditions {
		if c.Code == nil {
			continue
		}
		for _, coding := range c.Code.Coding {
			if strings.Contains(strings.ToLower(coding.System), "icd") && coding.Code != "" {
				return []plausibus.Issue{
					plausibus.Info(CodeDiagnosisPresent).
						Message("diagnosis " + coding.Code + " documented").
						Detail("code", coding.Code).
						Detail("system", coding.System).
						Build(),
				}
			}
		}
	}
	return []plausibus.Issue{
		plausibus.Warning(CodeDiagnosisAbsent).
			Message("no diagnosis documented for a narcotic dispensing").
			Build(),
	}
}

var _ pipeline.Validator = (*NarcoticsValidator)(nil)
