package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/fhir"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/pzn"
)

// Format finding codes.
const (
	// CodeBadPZNFormat flags a malformed or reserved product identifier.
	CodeBadPZNFormat = "FMT-001-E"
	// CodeBadPZNChecksum flags a checksum mismatch. Advisory only, since
	// legitimate data-entry variance exists upstream.
	CodeBadPZNChecksum = "FMT-001-W"
	// CodeTimestampMissing flags an absent document timestamp.
	CodeTimestampMissing = "FMT-002-E"
	// CodeTimestampFuture flags a timestamp more than an hour ahead.
	CodeTimestampFuture = "FMT-002-W"
	// CodeQuantityMissing flags a request without a dispense quantity.
	CodeQuantityMissing = "FMT-003-W"
	// CodeQuantityNotPositive flags a zero or negative quantity.
	CodeQuantityNotPositive = "FMT-003-E"
	// CodeQuantityLarge flags an unusually large quantity.
	CodeQuantityLarge = "FMT-005-W"
	// CodeAuthoredBad flags a missing, unparseable or future issue date.
	CodeAuthoredBad = "FMT-004-E"
	// CodeAuthoredStale flags an issue date more than a year old.
	CodeAuthoredStale = "FMT-004-W"
)

// clockSkew is the tolerated clock drift for the document timestamp.
const clockSkew = time.Hour

// largeQuantity is the threshold above which a dispense quantity is
// flagged for review.
var largeQuantity = decimal.NewFromInt(100)

// FormatValidator checks structural correctness of individual fields,
// independent of cross-references and external lookups.
type FormatValidator struct {
	now func() time.Time
}

// NewFormatValidator creates the format rule set.
func NewFormatValidator() *FormatValidator {
	return &FormatValidator{now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (v *FormatValidator) WithClock(now func() time.Time) *FormatValidator {
	v.now = now
	return v
}

// Name implements pipeline.Validator.
func (v *FormatValidator) Name() string { return "format" }

// Validate implements pipeline.Validator.
func (v *FormatValidator) Validate(_ context.Context, pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	now := v.now()

	issues = append(issues, v.checkTimestamp(pctx, now)...)
	issues = append(issues, v.checkProductIDs(pctx)...)

	for i, r := range pctx.Requests {
		path := fmt.Sprintf("MedicationRequest[%d]", i)
		issues = append(issues, v.checkQuantity(r, path)...)
		issues = append(issues, v.checkAuthoredOn(r, path, now)...)
	}
	return issues
}

func (v *FormatValidator) checkTimestamp(pctx *pipeline.Context, now time.Time) []plausibus.Issue {
	ts, ok := pctx.Bundle.TimestampTime()
	if !ok {
		return []plausibus.Issue{
			plausibus.Error(CodeTimestampMissing).
				Message("document timestamp is missing or unparseable").
				At("Bundle.timestamp").
				Build(),
		}
	}
	if ts.After(now.Add(clockSkew)) {
		return []plausibus.Issue{
			plausibus.Warning(CodeTimestampFuture).
				Message("document timestamp lies in the future").
				At("Bundle.timestamp").
				Detail("timestamp", ts.Format(time.RFC3339)).
				Build(),
		}
	}
	return nil
}

// checkProductIDs validates every distinct raw product identifier of the
// document. Format failures are errors; checksum failures only warn.
func (v *FormatValidator) checkProductIDs(pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	seen := make(map[string]struct{})

	check := func(raw, path string) {
		if raw == "" {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}

		id, err := pzn.Parse(raw)
		if err != nil {
			issues = append(issues, plausibus.Error(CodeBadPZNFormat).
				Message(fmt.Sprintf("invalid product identifier %q: %v", raw, err)).
				At(path).
				Build())
			return
		}
		if !id.Valid() {
			issues = append(issues, plausibus.Error(CodeBadPZNFormat).
				Message(fmt.Sprintf("product identifier %s lies in a reserved range", id)).
				At(path).
				PZN(id.String()).
				Build())
			return
		}
		if !id.ChecksumOK() {
			issues = append(issues, plausibus.Warning(CodeBadPZNChecksum).
				Message(fmt.Sprintf("product identifier %s fails checksum validation", id)).
				At(path).
				PZN(id.String()).
				Build())
		}
	}

	for _, me := range pctx.Bundle.Medications() {
		check(me.Medication.PZN(), "Medication/"+me.Medication.ID+".code")
	}
	for _, line := range pctx.Lines() {
		check(line.Item.PZN(), line.Path+".chargeItem")
	}
	return issues
}

func (v *FormatValidator) checkQuantity(r *fhir.MedicationRequest, path string) []plausibus.Issue {
	q := r.QuantityValue()
	if q == nil {
		return []plausibus.Issue{
			plausibus.Warning(CodeQuantityMissing).
				Message("dispense quantity is missing").
				At(path + ".dispenseRequest.quantity").
				Build(),
		}
	}
	if q.Sign() <= 0 {
		return []plausibus.Issue{
			plausibus.Error(CodeQuantityNotPositive).
				Message("dispense quantity must be positive").
				At(path + ".dispenseRequest.quantity").
				Detail("quantity", q.String()).
				Build(),
		}
	}
	if q.GreaterThan(largeQuantity) {
		return []plausibus.Issue{
			plausibus.Warning(CodeQuantityLarge).
				Message("dispense quantity is unusually large").
				At(path + ".dispenseRequest.quantity").
				Detail("quantity", q.String()).
				Build(),
		}
	}
	return nil
}

func (v *FormatValidator) checkAuthoredOn(r *fhir.MedicationRequest, path string, now time.Time) []plausibus.Issue {
	at := path + ".authoredOn"
	if r.AuthoredOn == "" {
		return []plausibus.Issue{
			plausibus.Error(CodeAuthoredBad).
				Message("prescription issue date is missing").
				At(at).
				Build(),
		}
	}
	t, err := fhir.ParseTime(r.AuthoredOn)
	if err != nil {
		return []plausibus.Issue{
			plausibus.Error(CodeAuthoredBad).
				Message(fmt.Sprintf("prescription issue date %q is unparseable", r.AuthoredOn)).
				At(at).
				Build(),
		}
	}
	if t.After(now) {
		return []plausibus.Issue{
			plausibus.Error(CodeAuthoredBad).
				Message("prescription issue date lies in the future").
				At(at).
				Detail("authoredOn", r.AuthoredOn).
				Build(),
		}
	}
	if t.Before(now.AddDate(-1, 0, 0)) {
		return []plausibus.Issue{
			plausibus.Warning(CodeAuthoredStale).
				Message("prescription issue date is more than a year old").
				At(at).
				Detail("authoredOn", r.AuthoredOn).
				Build(),
		}
	}
	return nil
}

var _ pipeline.Validator = (*FormatValidator)(nil)
