package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/money"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/pricing"
	"github.com/megadur/plausibus/promille"
	"github.com/megadur/plausibus/pzn"
	"github.com/megadur/plausibus/refdata"
	"github.com/megadur/plausibus/sok"
)

// Calculation finding codes.
const (
	// CodeInseminationBad aggregates every wrong field of an artificial
	// insemination line into one finding.
	CodeInseminationBad = "CALC-001-E"
	// CodeUnitFactorBad flags a no-quantity-reference line whose factor
	// is not one.
	CodeUnitFactorBad = "CALC-002-E"
	// CodeZeroPackage flags a package quantity of zero.
	CodeZeroPackage = "CALC-003-E"
	// CodeFactorMismatch flags a declared factor that differs from the
	// one derived from dispensed and package quantity.
	CodeFactorMismatch = "CALC-004-E"
	// CodeBasePriceMismatch flags a declared price that differs from the
	// one derived from the external base price.
	CodeBasePriceMismatch = "CALC-005-E"
	// CodeCompoundingTaxBad flags a compounding line billed under a
	// VAT-inclusive price code.
	CodeCompoundingTaxBad = "CALC-006-E"
)

var perMilleDivisor = decimal.NewFromInt(1000)

// CalculationValidator verifies the factor and price arithmetic of billing
// line items. It only applies to dispensing documents.
type CalculationValidator struct {
	refdata refdata.Service
}

// NewCalculationValidator creates the calculation rule set.
func NewCalculationValidator(svc refdata.Service) *CalculationValidator {
	return &CalculationValidator{refdata: svc}
}

// Name implements pipeline.Validator.
func (v *CalculationValidator) Name() string { return "calculation" }

// Validate implements pipeline.Validator.
func (v *CalculationValidator) Validate(ctx context.Context, pctx *pipeline.Context) []plausibus.Issue {
	var issues []plausibus.Issue
	for _, line := range pctx.Lines() {
		issues = append(issues, v.checkLine(ctx, pctx, line)...)
	}
	return issues
}

func (v *CalculationValidator) checkLine(ctx context.Context, pctx *pipeline.Context, line pipeline.Line) []plausibus.Issue {
	code := sok.Parse(line.Item.SOK())

	// The artificial insemination marker fixes factor, price and price
	// class; nothing else applies to such a line.
	if code.IsArtificialInsemination() {
		return v.checkInsemination(line)
	}

	var issues []plausibus.Issue
	switch {
	case code.NoQuantityReference():
		issues = append(issues, v.checkUnitFactor(line)...)
	case line.Item.PZN() != "":
		issues = append(issues, v.checkDerivedFactor(pctx, line)...)
		issues = append(issues, v.checkBasePrice(pctx, line)...)
	}

	if code.IsCompounding() {
		issues = append(issues, v.checkCompoundingTax(ctx, line)...)
	}
	return issues
}

// checkInsemination verifies the fixed triple of the artificial
// insemination marker: factor 1000, price zero, price class "90". All
// failing fields go into a single finding.
func (v *CalculationValidator) checkInsemination(line pipeline.Line) []plausibus.Issue {
	var wrong []string

	factor := line.Item.FactorValue()
	if factor == nil || !promille.FromDecimal(*factor).ApproxEqual(promille.FullPackage) {
		wrong = append(wrong, "factor (expected 1000)")
	}

	price := line.Item.GrossAmount()
	if price == nil || price.Value == nil || !price.Value.IsZero() {
		wrong = append(wrong, "price (expected 0.00)")
	}

	if pricing.Class(line.Item.PriceClass()) != pricing.Other {
		wrong = append(wrong, `price class (expected "90")`)
	}

	if len(wrong) == 0 {
		return nil
	}
	return []plausibus.Issue{
		plausibus.Error(CodeInseminationBad).
			Message("artificial insemination line is inconsistent: " + strings.Join(wrong, ", ")).
			At(line.Path).
			Build(),
	}
}

// checkUnitFactor requires a factor of exactly one on lines whose special
// code has no quantity reference.
func (v *CalculationValidator) checkUnitFactor(line pipeline.Line) []plausibus.Issue {
	factor := line.Item.FactorValue()
	if factor != nil && promille.FromDecimal(*factor).ApproxEqual(promille.One) {
		return nil
	}
	declared := "absent"
	if factor != nil {
		declared = factor.String()
	}
	return []plausibus.Issue{
		plausibus.Error(CodeUnitFactorBad).
			Message("special code without quantity reference requires factor 1, got " + declared).
			At(line.Path + ".priceComponent.factor").
			Detail("declared", declared).
			Build(),
	}
}

// checkDerivedFactor compares the declared factor against
// (dispensed / package) * 1000. Missing operands skip the check.
func (v *CalculationValidator) checkDerivedFactor(pctx *pipeline.Context, line pipeline.Line) []plausibus.Issue {
	dispensed := line.Item.DispensedQuantity()
	pack := line.Item.PackageQuantity(line.Medication(pctx))
	if dispensed == nil || pack == nil {
		return nil
	}

	expected, err := promille.FromRatio(*dispensed, *pack)
	if errors.Is(err, promille.ErrZeroPackage) {
		return []plausibus.Issue{
			plausibus.Error(CodeZeroPackage).
				Message("package quantity is zero, factor cannot be derived").
				At(line.Path).
				PZN(line.Item.PZN()).
				Build(),
		}
	}
	if err != nil {
		return nil
	}

	factor := line.Item.FactorValue()
	if factor != nil && promille.FromDecimal(*factor).ApproxEqual(expected) {
		return nil
	}
	declared := "absent"
	if factor != nil {
		declared = factor.String()
	}
	return []plausibus.Issue{
		plausibus.Error(CodeFactorMismatch).
			Message(fmt.Sprintf("declared factor %s does not match expected %s", declared, expected)).
			At(line.Path + ".priceComponent.factor").
			PZN(line.Item.PZN()).
			Detail("declared", declared).
			Detail("expected", expected.String()).
			Build(),
	}
}

// checkBasePrice recomputes the price of externally priced lines from the
// article master base price: expected = (factor / 1000) * base, compared
// within one cent. Contract-priced classes and unresolved articles skip.
func (v *CalculationValidator) checkBasePrice(pctx *pipeline.Context, line pipeline.Line) []plausibus.Issue {
	basis := pricing.Class(line.Item.PriceClass()).Basis()
	if basis == pricing.BasisNone {
		return nil
	}

	id, err := pzn.Parse(line.Item.PZN())
	if err != nil {
		return nil
	}
	article, ok := pctx.Flags.Article(id)
	if !ok {
		return nil
	}

	factor := line.Item.FactorValue()
	declared := line.Item.GrossAmount()
	if factor == nil || declared == nil || declared.Value == nil {
		return nil
	}

	var base money.Amount
	switch basis {
	case pricing.BasisPurchase:
		base = article.PurchasePrice
	case pricing.BasisSale:
		base = article.SalePrice
	default:
		return nil
	}

	expected := base.Scale(factor.Div(perMilleDivisor))
	got := money.FromDecimal(*declared.Value, declared.Currency)
	if expected.ApproxEqual(got) {
		return nil
	}
	return []plausibus.Issue{
		plausibus.Error(CodeBasePriceMismatch).
			Message(fmt.Sprintf("declared price %s does not match expected %s from the base price %s",
				got, expected, base)).
			At(line.Path + ".priceComponent.amount").
			PZN(line.Item.PZN()).
			Detail("declared", got.String()).
			Detail("expected", expected.String()).
			Build(),
	}
}

// checkCompoundingTax requires a VAT-exclusive price code on compounding
// lines.
func (v *CalculationValidator) checkCompoundingTax(ctx context.Context, line pipeline.Line) []plausibus.Issue {
	class := line.Item.PriceClass()
	if class == "" {
		return nil
	}
	pc, err := v.refdata.PriceCode(ctx, class)
	if err != nil {
		// Unknown price codes are already reported by the general rules.
		return nil
	}
	if pc.TaxExclusive() {
		return nil
	}
	return []plausibus.Issue{
		plausibus.Error(CodeCompoundingTaxBad).
			Message(fmt.Sprintf("compounding line billed under VAT-inclusive price code %s", class)).
			At(line.Path + ".priceComponent").
			Build(),
	}
}

var _ pipeline.Validator = (*CalculationValidator)(nil)
