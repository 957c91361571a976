package abda

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/megadur/plausibus/money"
	"github.com/megadur/plausibus/pzn"
)

func testArticle(id string, btm int) Article {
	return Article{
		PZN:           id,
		Name:          "Testpräparat",
		Btm:           btm,
		PurchasePrice: money.FromCents(1000, "EUR"),
		SalePrice:     money.FromCents(1500, "EUR"),
		MarketStatus:  MarketAvailable,
		Vat:           VatFull,
	}
}

func TestArticlePredicates(t *testing.T) {
	tests := []struct {
		name     string
		article  Article
		narcotic bool
		exempt   bool
		tRezept  bool
		cannabis bool
	}{
		{"plain", Article{Btm: BtmNo}, false, false, false, false},
		{"narcotic", Article{Btm: BtmNarcotic}, true, false, false, false},
		{"exempt", Article{Btm: BtmExempt}, false, true, false, false},
		{"t-rezept via btm", Article{Btm: BtmTRezept}, false, false, true, false},
		{"t-rezept via tfg", Article{Tfg: 2}, false, false, true, false},
		{"cannabis 2", Article{Cannabis: CannabisMedCanG1}, false, false, false, true},
		{"cannabis 3", Article{Cannabis: CannabisMedCanG2}, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.article.IsNarcotic(); got != tt.narcotic {
				t.Errorf("IsNarcotic() = %v", got)
			}
			if got := tt.article.IsNarcoticExempt(); got != tt.exempt {
				t.Errorf("IsNarcoticExempt() = %v", got)
			}
			if got := tt.article.IsTRezept(); got != tt.tRezept {
				t.Errorf("IsTRezept() = %v", got)
			}
			if got := tt.article.IsCannabis(); got != tt.cannabis {
				t.Errorf("IsCannabis() = %v", got)
			}
		})
	}
}

func TestVatRatePercent(t *testing.T) {
	tests := []struct {
		vat  int
		want int
		ok   bool
	}{
		{VatFull, 19, true},
		{VatReduced, 7, true},
		{VatZero, 0, true},
		{0, 0, false},
		{9, 0, false},
	}
	for _, tt := range tests {
		got, ok := Article{Vat: tt.vat}.VatRatePercent()
		if got != tt.want || ok != tt.ok {
			t.Errorf("VatRatePercent(%d) = %d, %v; want %d, %v", tt.vat, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInMemoryProviderLookup(t *testing.T) {
	p := NewInMemoryProvider()
	if err := p.Add(testArticle("10000002", BtmNarcotic)); err != nil {
		t.Fatal(err)
	}
	// Short input normalizes to eight digits.
	if err := p.Add(testArticle("29741", BtmNo)); err != nil {
		t.Fatal(err)
	}

	got, err := p.Lookup(context.Background(), []pzn.PZN{
		pzn.MustParse("10000002"),
		pzn.MustParse("00029741"),
		pzn.MustParse("99999999"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Lookup()) = %d, want 2", len(got))
	}
	if !got[pzn.MustParse("10000002")].IsNarcotic() {
		t.Error("narcotic flag lost")
	}

	if _, ok, _ := Get(context.Background(), p, pzn.MustParse("99999999")); ok {
		t.Error("Get() of unknown article ok = true")
	}
}

// countingProvider counts inner lookups to verify caching.
type countingProvider struct {
	inner *InMemoryProvider
	calls atomic.Int64
	ids   atomic.Int64
}

func (c *countingProvider) Lookup(ctx context.Context, ids []pzn.PZN) (map[pzn.PZN]Article, error) {
	c.calls.Add(1)
	c.ids.Add(int64(len(ids)))
	return c.inner.Lookup(ctx, ids)
}

func TestCachedProviderBatchesMissesOnly(t *testing.T) {
	inner := NewInMemoryProvider()
	for _, id := range []string{"10000002", "00029741"} {
		if err := inner.Add(testArticle(id, BtmNo)); err != nil {
			t.Fatal(err)
		}
	}
	counting := &countingProvider{inner: inner}
	cached := NewCachedProviderWithConfig(counting, 100, time.Hour)

	ids := []pzn.PZN{pzn.MustParse("10000002"), pzn.MustParse("00029741")}

	first, err := cached.Lookup(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || counting.calls.Load() != 1 {
		t.Fatalf("first lookup: %d results, %d inner calls", len(first), counting.calls.Load())
	}

	second, err := cached.Lookup(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 2 {
		t.Fatalf("second lookup: %d results", len(second))
	}
	if counting.calls.Load() != 1 {
		t.Errorf("cached lookup still hit inner provider (%d calls)", counting.calls.Load())
	}

	// A batch with one new identifier only fetches that one.
	if err := inner.Add(testArticle("06313728", BtmNo)); err != nil {
		t.Fatal(err)
	}
	ids = append(ids, pzn.MustParse("06313728"))
	third, err := cached.Lookup(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(third) != 3 {
		t.Fatalf("third lookup: %d results", len(third))
	}
	if counting.calls.Load() != 2 || counting.ids.Load() != 3 {
		t.Errorf("inner calls = %d, total ids fetched = %d; want 2 and 3",
			counting.calls.Load(), counting.ids.Load())
	}
}

// failingProvider always errors.
type failingProvider struct{}

func (failingProvider) Lookup(context.Context, []pzn.PZN) (map[pzn.PZN]Article, error) {
	return nil, errors.New("article master unavailable")
}

func TestCachedProviderPropagatesErrors(t *testing.T) {
	cached := NewCachedProvider(failingProvider{})
	if _, err := cached.Lookup(context.Background(), []pzn.PZN{pzn.MustParse("10000002")}); err == nil {
		t.Error("inner error swallowed")
	}
}
