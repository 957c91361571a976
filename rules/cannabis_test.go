package rules

import (
	"context"
	"testing"

	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/pipeline"
	"github.com/megadur/plausibus/pzn"
)

func flagCannabis(pctx *pipeline.Context, id string) {
	pctx.Flags.Record(pzn.MustParse(id), abda.Article{
		PZN: id, Cannabis: abda.CannabisMedCanG1, MarketStatus: abda.MarketAvailable,
	})
}

func fullManufacturing() map[string]string {
	return map[string]string{
		"hersteller":  "123456789",
		"zeitstempel": "2024-03-04T09:30:00+01:00",
		"zaehler":     "1",
		"charge":      "CH-2403-A",
	}
}

func TestCannabisApplies(t *testing.T) {
	v := NewCannabisValidator()

	t.Run("flagged product", func(t *testing.T) {
		pctx := docSpec{timestamp: "2024-03-04T10:00:00Z"}.context(t)
		if v.Applies(pctx) {
			t.Error("Applies() = true on empty document")
		}
		flagCannabis(pctx, "11111112")
		if !v.Applies(pctx) {
			t.Error("Applies() = false with flagged product")
		}
	})

	t.Run("special code only", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(120.50), manufacturing: fullManufacturing()}},
		}.context(t)
		if !v.Applies(pctx) {
			t.Error("Applies() = false with cannabis special code")
		}
	})
}

func TestCannabisSpecialCodeRequired(t *testing.T) {
	v := NewCannabisValidator()

	t.Run("missing code errors", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{pzn: "11111112", factor: fp(1000), amount: fp(120.50)}},
		}.context(t)
		flagCannabis(pctx, "11111112")
		wantIssue(t, v.Validate(context.Background(), pctx), CodeCannabisNoSpecialCode)
	})

	t.Run("whitelisted code passes", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines: []lineSpec{
				{pzn: "11111112", factor: fp(1000), amount: fp(120.50)},
				{sok: "06461446", factor: fp(1), amount: fp(120.50), manufacturing: fullManufacturing()},
			},
		}.context(t)
		flagCannabis(pctx, "11111112")
		wantNoIssue(t, v.Validate(context.Background(), pctx), CodeCannabisNoSpecialCode)
	})
}

func TestCannabisExclusiveFlags(t *testing.T) {
	v := NewCannabisValidator()

	pctx := docSpec{
		timestamp: "2024-03-04T10:00:00Z",
		lines: []lineSpec{
			{pzn: "11111112", factor: fp(1000), amount: fp(120.50)},
			{sok: "06461446", factor: fp(1), amount: fp(120.50), manufacturing: fullManufacturing()},
		},
	}.context(t)
	pctx.Flags.Record(pzn.MustParse("11111112"), abda.Article{
		PZN: "11111112", Cannabis: abda.CannabisMedCanG1, Btm: abda.BtmNarcotic,
	})

	is := wantIssue(t, v.Validate(context.Background(), pctx), CodeCannabisConflict)
	if is.PZN != "11111112" {
		t.Errorf("conflict PZN = %q", is.PZN)
	}
}

func TestCannabisFactor(t *testing.T) {
	v := NewCannabisValidator()

	tests := []struct {
		name    string
		factor  *float64
		wantErr bool
	}{
		{"exactly one", fp(1), false},
		{"within tolerance", fp(1.0000005), false},
		{"missing", nil, true},
		{"not one", fp(2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pctx := docSpec{
				timestamp: "2024-03-04T10:00:00Z",
				lines: []lineSpec{
					{sok: "06461446", factor: tt.factor, amount: fp(120.50), manufacturing: fullManufacturing()},
				},
			}.context(t)
			issues := v.Validate(context.Background(), pctx)

			if tt.wantErr {
				wantIssue(t, issues, CodeCannabisFactorBad)
			} else {
				wantNoIssue(t, issues, CodeCannabisFactorBad)
			}
		})
	}
}

func TestCannabisPrice(t *testing.T) {
	v := NewCannabisValidator()

	t.Run("positive price informs", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(120.50), manufacturing: fullManufacturing()}},
		}.context(t)
		issues := v.Validate(context.Background(), pctx)
		wantIssue(t, issues, CodeCannabisPriceNoted)
		wantNoIssue(t, issues, CodeCannabisPriceBad)
	})

	t.Run("missing price errors", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), manufacturing: fullManufacturing()}},
		}.context(t)
		wantIssue(t, v.Validate(context.Background(), pctx), CodeCannabisPriceBad)
	})

	t.Run("zero price errors", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(0), manufacturing: fullManufacturing()}},
		}.context(t)
		wantIssue(t, v.Validate(context.Background(), pctx), CodeCannabisPriceBad)
	})
}

func TestCannabisManufacturing(t *testing.T) {
	v := NewCannabisValidator()

	t.Run("complete on line item", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(120.50), manufacturing: fullManufacturing()}},
		}.context(t)
		issues := v.Validate(context.Background(), pctx)
		wantNoIssue(t, issues, CodeManufacturingIncomplete)
		wantNoIssue(t, issues, CodeManufacturingAbsent)
	})

	t.Run("complete on dispense record", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			dispenses: []dispSpec{{when: "2024-03-04", manufacturing: fullManufacturing()}},
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(120.50)}},
		}.context(t)
		issues := v.Validate(context.Background(), pctx)
		wantNoIssue(t, issues, CodeManufacturingIncomplete)
		wantNoIssue(t, issues, CodeManufacturingAbsent)
	})

	t.Run("missing fields named", func(t *testing.T) {
		partial := fullManufacturing()
		delete(partial, "zaehler")
		delete(partial, "charge")

		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(120.50), manufacturing: partial}},
		}.context(t)
		is := wantIssue(t, v.Validate(context.Background(), pctx), CodeManufacturingIncomplete)
		if got := is.Message; got == "" {
			t.Error("missing-field message empty")
		}
	})

	t.Run("no segment at all warns once", func(t *testing.T) {
		pctx := docSpec{
			timestamp: "2024-03-04T10:00:00Z",
			lines:     []lineSpec{{sok: "06461446", factor: fp(1), amount: fp(120.50)}},
		}.context(t)
		issues := v.Validate(context.Background(), pctx)
		wantIssue(t, issues, CodeManufacturingAbsent)
		wantNoIssue(t, issues, CodeManufacturingIncomplete)
	})
}
