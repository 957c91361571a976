package refdata

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryService serves reference codes from maps. It backs tests and the
// offline CLI mode.
type InMemoryService struct {
	mu       sync.RWMutex
	special  map[string]SpecialCode
	factors  map[string]FactorCode
	prices   map[string]PriceCode
}

// NewInMemoryService creates an empty in-memory reference store.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		special: make(map[string]SpecialCode),
		factors: make(map[string]FactorCode),
		prices:  make(map[string]PriceCode),
	}
}

// NewSeededService creates an in-memory store preloaded with the standard
// factor and price code tables and the well-known special identifiers.
func NewSeededService() *InMemoryService {
	s := NewInMemoryService()

	for _, fc := range []FactorCode{
		{Code: "11", Content: "Stück", Description: "discrete units"},
		{Code: "55", Content: "Gramm", Description: "weight"},
		{Code: "57", Content: "Milliliter", Description: "volume"},
		{Code: "99", Content: "Sonstiges", Description: "miscellaneous"},
	} {
		s.AddFactorCode(fc)
	}

	for _, pc := range []PriceCode{
		{Code: "11", Content: "AEK", Description: "pharmacy purchase price", VatPercent: 0},
		{Code: "12", Content: "AEK + Zuzahlung", Description: "purchase price plus co-pay", VatPercent: 0},
		{Code: "13", Content: "AVK", Description: "pharmacy sale price", VatPercent: 19},
		{Code: "14", Content: "Festbetrag", Description: "fixed fee", VatPercent: 19},
		{Code: "15", Content: "Zuzahlung", Description: "patient co-pay", VatPercent: 0},
		{Code: "16", Content: "Zuzahlung + Festbetrag", Description: "co-pay plus fixed fee", VatPercent: 19},
		{Code: "17", Content: "Zuzahlung + AVK", Description: "co-pay plus sale price", VatPercent: 19},
		{Code: "21", Content: "Rezepturpreis", Description: "compounding price", VatPercent: 19},
		{Code: "90", Content: "Sonstiges", Description: "other", VatPercent: 19},
	} {
		s.AddPriceCode(pc)
	}

	for _, sc := range []SpecialCode{
		{Code: "02567001", Description: "Notdienstgebühr BtM", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "09999643", Description: "Künstliche Befruchtung", VatIndicator: VatIndicatorNone, ERezept: ERezeptAllowed},
		{Code: "06460702", Description: "Rezeptur", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "09999011", Description: "Rezeptur", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "06461446", Description: "Cannabis unverändert", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "06461423", Description: "Cannabis Zubereitung", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "06460665", Description: "Cannabis Blüten", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "06460694", Description: "Cannabis Extrakt", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "06460748", Description: "Cannabis Dronabinol", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
		{Code: "06460754", Description: "Cannabis Rezeptur", VatIndicator: VatIndicatorFull, ERezept: ERezeptAllowed},
	} {
		s.AddSpecialCode(sc)
	}

	return s
}

// AddSpecialCode stores or replaces one special identifier.
func (s *InMemoryService) AddSpecialCode(sc SpecialCode) {
	s.mu.Lock()
	s.special[sc.Code] = sc
	s.mu.Unlock()
}

// AddFactorCode stores or replaces one factor code.
func (s *InMemoryService) AddFactorCode(fc FactorCode) {
	s.mu.Lock()
	s.factors[fc.Code] = fc
	s.mu.Unlock()
}

// AddPriceCode stores or replaces one price code.
func (s *InMemoryService) AddPriceCode(pc PriceCode) {
	s.mu.Lock()
	s.prices[pc.Code] = pc
	s.mu.Unlock()
}

// SpecialCode implements Service.
func (s *InMemoryService) SpecialCode(_ context.Context, code string) (SpecialCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.special[code]; ok {
		return sc, nil
	}
	return SpecialCode{}, fmt.Errorf("special code %q: %w", code, ErrNotFound)
}

// FactorCode implements Service.
func (s *InMemoryService) FactorCode(_ context.Context, code string) (FactorCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fc, ok := s.factors[code]; ok {
		return fc, nil
	}
	return FactorCode{}, fmt.Errorf("factor code %q: %w", code, ErrNotFound)
}

// PriceCode implements Service.
func (s *InMemoryService) PriceCode(_ context.Context, code string) (PriceCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pc, ok := s.prices[code]; ok {
		return pc, nil
	}
	return PriceCode{}, fmt.Errorf("price code %q: %w", code, ErrNotFound)
}

var _ Service = (*InMemoryService)(nil)
