package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/refdata"
)

// General finding codes.
const (
	// CodeChargeItemAmbiguous flags a line that carries both or neither of
	// product identifier and special code.
	CodeChargeItemAmbiguous = "GEN-001-E"
	// CodeFactorValueMissing flags a factor code without a factor value.
	CodeFactorValueMissing = "GEN-002-E"
	// CodeFactorCodeMissing flags a factor value without a factor code.
	CodeFactorCodeMissing = "GEN-002-W"
	// CodePriceValueMissing flags a price code without a price.
	CodePriceValueMissing = "GEN-003-E"
	// CodePriceCodeMissing flags a price without a price code.
	CodePriceCodeMissing = "GEN-003-W"
	// CodeUnknownFactorCode flags a factor code absent from the tables.
	CodeUnknownFactorCode = "GEN-004-E"
	// CodeUnknownPriceCode flags a price code absent from the tables.
	CodeUnknownPriceCode = "GEN-005-E"
	// CodeUnknownSpecialCode flags a special code absent from the tables.
	CodeUnknownSpecialCode = "GEN-006-E"
	// CodeSpecialCodeExpired flags a special code outside its validity
	// window at the dispensing date.
	CodeSpecialCodeExpired = "GEN-007-E"
	// CodeSpecialCodeNotElectronic flags a special code whose electronic
	// prescription compatibility disagrees with the document.
	CodeSpecialCodeNotElectronic = "GEN-008-E"
	// CodeVATMismatch flags a declared VAT rate that differs from the
	// special code's expected rate.
	CodeVATMismatch = "GEN-009-E"
	// CodeDispensingDateMissing flags a dispensing document without a
	// usable whenHandedOver; temporal checks cannot run without it.
	CodeDispensingDateMissing = "GEN-010-W"
	// CodeDispensingDateFuture flags a dispensing date in the future.
	CodeDispensingDateFuture = "GEN-010-E"
)

// GeneralValidator checks cross-field rules on billing line items against
// the reference code tables. It only applies to dispensing documents.
type GeneralValidator struct {
	refdata refdata.Service
	now     func() time.Time
}

// NewGeneralValidator creates the general rule set.
func NewGeneralValidator(svc refdata.Service) *GeneralValidator {
	return &GeneralValidator{refdata: svc, now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (v *GeneralValidator) WithClock(now func() time.Time) *GeneralValidator {
	v.now = now
	return v
}

// Name implements pipeline.Validator.
func (v *GeneralValidator) Name() string { return "general" }

// Validate implements pipeline.Validator.
func (v *GeneralValidator) Validate(ctx context.Context, pctx *pipeline.Context) []plausibus.Issue {
	issues := v.checkDispensingDate(pctx)
	for _, line := range pctx.Lines() {
		issues = append(issues, v.checkLine(ctx, pctx, line)...)
	}
	return issues
}

// checkDispensingDate requires a dispensing date and rejects one in the
// future. Without a date the per-line temporal checks are skipped, so the
// absence itself is surfaced.
func (v *GeneralValidator) checkDispensingDate(pctx *pipeline.Context) []plausibus.Issue {
	if !pctx.HasDispensedAt {
		return []plausibus.Issue{
			plausibus.Warning(CodeDispensingDateMissing).
				Message("dispensing date not found; temporal checks skipped").
				At("MedicationDispense.whenHandedOver").
				Build(),
		}
	}

	if now := v.now().UTC(); pctx.DispensedAt.After(now) {
		return []plausibus.Issue{
			plausibus.Error(CodeDispensingDateFuture).
				Message(fmt.Sprintf("dispensing date %s lies in the future",
					pctx.DispensedAt.Format(time.RFC3339))).
				At("MedicationDispense.whenHandedOver").
				Detail("now", now.Format(time.RFC3339)).
				Build(),
		}
	}
	return nil
}

func (v *GeneralValidator) checkLine(ctx context.Context, pctx *pipeline.Context, line pipeline.Line) []plausibus.Issue {
	var issues []plausibus.Issue
	li := line.Item

	pznRaw := li.PZN()
	sokRaw := li.SOK()
	switch {
	case pznRaw != "" && sokRaw != "":
		issues = append(issues, plausibus.Error(CodeChargeItemAmbiguous).
			Message("line item carries both a product identifier and a special code").
			At(line.Path+".chargeItem").
			PZN(pznRaw).
			Detail("specialCode", sokRaw).
			Build())
	case pznRaw == "" && sokRaw == "":
		issues = append(issues, plausibus.Error(CodeChargeItemAmbiguous).
			Message("line item carries neither a product identifier nor a special code").
			At(line.Path+".chargeItem").
			Build())
	}

	factorCode := li.FactorCode()
	factorValue := li.FactorValue()
	if factorCode != "" && factorValue == nil {
		issues = append(issues, plausibus.Error(CodeFactorValueMissing).
			Message("factor code "+factorCode+" declared without a factor value").
			At(line.Path+".priceComponent.factor").
			Build())
	}
	if factorValue != nil && factorCode == "" {
		issues = append(issues, plausibus.Warning(CodeFactorCodeMissing).
			Message("factor value declared without a factor code").
			At(line.Path+".priceComponent.factor").
			Build())
	}
	if factorCode != "" {
		if _, err := v.refdata.FactorCode(ctx, factorCode); err != nil {
			issues = append(issues, v.lookupIssue(err, CodeUnknownFactorCode,
				"unknown factor code "+factorCode, line.Path+".priceComponent"))
		}
	}

	priceCode := li.PriceClass()
	price := li.GrossAmount()
	if priceCode != "" && price == nil {
		issues = append(issues, plausibus.Error(CodePriceValueMissing).
			Message("price code "+priceCode+" declared without a price").
			At(line.Path+".priceComponent.amount").
			Build())
	}
	if price != nil && priceCode == "" {
		issues = append(issues, plausibus.Warning(CodePriceCodeMissing).
			Message("price declared without a price code").
			At(line.Path+".priceComponent.amount").
			Build())
	}
	if priceCode != "" {
		if _, err := v.refdata.PriceCode(ctx, priceCode); err != nil {
			issues = append(issues, v.lookupIssue(err, CodeUnknownPriceCode,
				"unknown price code "+priceCode, line.Path+".priceComponent"))
		}
	}

	if sokRaw != "" {
		issues = append(issues, v.checkSpecialCode(ctx, pctx, line, sokRaw)...)
	}
	return issues
}

// checkSpecialCode validates temporal validity, electronic prescription
// compatibility and VAT consistency of a special code line.
func (v *GeneralValidator) checkSpecialCode(ctx context.Context, pctx *pipeline.Context, line pipeline.Line, code string) []plausibus.Issue {
	sc, err := v.refdata.SpecialCode(ctx, code)
	if err != nil {
		return []plausibus.Issue{
			v.lookupIssue(err, CodeUnknownSpecialCode, "unknown special code "+code, line.Path+".chargeItem"),
		}
	}

	var issues []plausibus.Issue
	if pctx.HasDispensedAt && !sc.ValidOn(pctx.DispensedAt) {
		issues = append(issues, plausibus.Error(CodeSpecialCodeExpired).
			Message(fmt.Sprintf("special code %s is not valid on the dispensing date", code)).
			At(line.Path+".chargeItem").
			Detail("dispensedAt", pctx.DispensedAt.Format(time.RFC3339)).
			Build())
	}

	// Documents passing through here are electronic prescription data sets.
	if !sc.AllowedFor(true) {
		issues = append(issues, plausibus.Error(CodeSpecialCodeNotElectronic).
			Message(fmt.Sprintf("special code %s must not be billed on an electronic prescription", code)).
			At(line.Path+".chargeItem").
			Build())
	}

	if rate := line.Item.VATRate(); rate != nil && !sc.MatchesVatRate(*rate) {
		issues = append(issues, plausibus.Error(CodeVATMismatch).
			Message(fmt.Sprintf("declared VAT rate %s%% does not match the expected %d%% for special code %s",
				rate.String(), sc.VatPercent(), code)).
			At(line.Path+".priceComponent").
			Detail("declared", rate.String()).
			Detail("expected", fmt.Sprintf("%d", sc.VatPercent())).
			Build())
	}
	return issues
}

// lookupIssue folds lookup misses and lookup failures into one finding;
// misses are expected data conditions, failures keep the cause visible.
func (v *GeneralValidator) lookupIssue(err error, code, msg, path string) plausibus.Issue {
	b := plausibus.Error(code).At(path)
	if errors.Is(err, refdata.ErrNotFound) {
		return b.Message(msg).Build()
	}
	return b.Message(msg + ": lookup failed: " + err.Error()).Build()
}

var _ pipeline.Validator = (*GeneralValidator)(nil)
