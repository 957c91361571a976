package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/pzn"
)

func testArticles(t *testing.T, articles ...abda.Article) *abda.InMemoryProvider {
	t.Helper()
	p := abda.NewInMemoryProvider()
	for _, a := range articles {
		if err := p.Add(a); err != nil {
			t.Fatalf("add article: %v", err)
		}
	}
	return p
}

func TestDetectorClassifiesProducts(t *testing.T) {
	provider := testArticles(t,
		abda.Article{
			PZN: "06313728", Name: "Morphin 10mg",
			Btm:          abda.BtmNarcotic,
			MarketStatus: abda.MarketAvailable,
			Vat:          abda.VatFull,
		},
		abda.Article{
			PZN: "11111112", Name: "Dronabinol Lsg.",
			Cannabis:     abda.CannabisMedCanG1,
			MarketStatus: "02",
			Vat:          abda.VatFull,
		},
	)

	pctx := docSpec{
		timestamp: "2024-03-04T10:15:00+01:00",
		meds: []medSpec{
			{id: "m1", pzn: "06313728", name: "Morphin 10mg"},
			{id: "m2", pzn: "11111112", name: "Dronabinol Lsg."},
			{id: "m3", pzn: "10000002", name: "Unbekannt"},
		},
	}.context(t)

	issues := NewDetector(provider).Validate(context.Background(), pctx)

	if is := wantIssue(t, issues, CodeNarcoticDetected); is.PZN != "06313728" {
		t.Errorf("narcotic info PZN = %q", is.PZN)
	}
	if is := wantIssue(t, issues, CodeCannabisDetected); is.PZN != "11111112" {
		t.Errorf("cannabis info PZN = %q", is.PZN)
	}
	if is := wantIssue(t, issues, CodeUnknownProduct); is.PZN != "10000002" {
		t.Errorf("unknown product warning PZN = %q", is.PZN)
	}
	if is := wantIssue(t, issues, CodeNotMarketable); is.PZN != "11111112" {
		t.Errorf("market info PZN = %q", is.PZN)
	}

	if !pctx.Flags.IsNarcotic(pzn.MustParse("06313728")) {
		t.Error("narcotic flag not recorded")
	}
	if !pctx.Flags.IsCannabis(pzn.MustParse("11111112")) {
		t.Error("cannabis flag not recorded")
	}
	if got := pctx.Flags.Unknown(); len(got) != 1 || got[0] != pzn.MustParse("10000002") {
		t.Errorf("Unknown() = %v", got)
	}
	if a, ok := pctx.Flags.Article(pzn.MustParse("06313728")); !ok || !a.PurchasePrice.IsZero() {
		t.Errorf("Article() = %+v, %v", a, ok)
	}
}

func TestDetectorEmptyDocument(t *testing.T) {
	pctx := docSpec{timestamp: "2024-03-04T10:15:00+01:00"}.context(t)
	if issues := NewDetector(testArticles(t)).Validate(context.Background(), pctx); issues != nil {
		t.Errorf("issues = %v, want none", issues)
	}
}

type failingProvider struct{}

func (failingProvider) Lookup(context.Context, []pzn.PZN) (map[pzn.PZN]abda.Article, error) {
	return nil, errors.New("connection refused")
}

func TestDetectorLookupFailure(t *testing.T) {
	pctx := docSpec{
		timestamp: "2024-03-04T10:15:00+01:00",
		meds:      []medSpec{{id: "m1", pzn: "06313728"}},
	}.context(t)

	issues := NewDetector(failingProvider{}).Validate(context.Background(), pctx)
	is := wantIssue(t, issues, CodeLookupFailed)
	if !is.IsError() {
		t.Error("lookup failure must be an error")
	}
}
