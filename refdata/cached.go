package refdata

import (
	"context"
	"errors"
	"time"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/cache"
)

// DefaultTTL is how long reference codes stay cached; the tables change
// with quarterly annex updates, so a day is comfortably safe.
const DefaultTTL = 24 * time.Hour

// DefaultCacheSize bounds each per-kind cache. The full tables are small.
const DefaultCacheSize = 4096

// CachedService wraps an inner Service with TTL-bounded caches, one per
// code kind. Not-found answers are cached too: the tables are closed sets
// and unknown codes repeat across documents.
type CachedService struct {
	inner   Service
	special *cache.Cache[string, lookupResult[SpecialCode]]
	factors *cache.Cache[string, lookupResult[FactorCode]]
	prices  *cache.Cache[string, lookupResult[PriceCode]]
	metrics *plausibus.Metrics
}

// lookupResult memoizes both hits and not-found answers.
type lookupResult[T any] struct {
	value T
	found bool
}

// NewCachedService creates a caching wrapper with DefaultTTL.
func NewCachedService(inner Service) *CachedService {
	return NewCachedServiceWithConfig(inner, DefaultCacheSize, DefaultTTL)
}

// NewCachedServiceWithConfig creates a caching wrapper with explicit
// capacity and TTL.
func NewCachedServiceWithConfig(inner Service, capacity int, ttl time.Duration) *CachedService {
	return &CachedService{
		inner:   inner,
		special: cache.NewWithTTL[string, lookupResult[SpecialCode]](capacity, ttl),
		factors: cache.NewWithTTL[string, lookupResult[FactorCode]](capacity, ttl),
		prices:  cache.NewWithTTL[string, lookupResult[PriceCode]](capacity, ttl),
	}
}

// WithMetrics attaches engine metrics for hit/miss accounting.
func (s *CachedService) WithMetrics(m *plausibus.Metrics) *CachedService {
	s.metrics = m
	return s
}

// SpecialCode implements Service.
func (s *CachedService) SpecialCode(ctx context.Context, code string) (SpecialCode, error) {
	return lookupCached(ctx, s, s.special, code, s.inner.SpecialCode)
}

// FactorCode implements Service.
func (s *CachedService) FactorCode(ctx context.Context, code string) (FactorCode, error) {
	return lookupCached(ctx, s, s.factors, code, s.inner.FactorCode)
}

// PriceCode implements Service.
func (s *CachedService) PriceCode(ctx context.Context, code string) (PriceCode, error) {
	return lookupCached(ctx, s, s.prices, code, s.inner.PriceCode)
}

func lookupCached[T any](
	ctx context.Context,
	s *CachedService,
	c *cache.Cache[string, lookupResult[T]],
	code string,
	fetch func(context.Context, string) (T, error),
) (T, error) {
	if r, ok := c.Get(code); ok {
		s.recordHit()
		if !r.found {
			var zero T
			return zero, ErrNotFound
		}
		return r.value, nil
	}
	s.recordMiss()

	v, err := fetch(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Set(code, lookupResult[T]{found: false})
		}
		var zero T
		return zero, err
	}
	c.Set(code, lookupResult[T]{value: v, found: true})
	return v, nil
}

func (s *CachedService) recordHit() {
	if s.metrics != nil {
		s.metrics.RecordCacheHit()
	}
}

func (s *CachedService) recordMiss() {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}
}

var _ Service = (*CachedService)(nil)
