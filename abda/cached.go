package abda

import (
	"context"
	"time"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/cache"
	"github.com/megadur/plausibus/pzn"
)

// DefaultTTL is how long article attributes stay valid; the article master
// is published in daily to bi-weekly increments, so a day is safe.
const DefaultTTL = 24 * time.Hour

// DefaultCacheSize bounds the article cache.
const DefaultCacheSize = 50_000

// CachedProvider wraps an inner Provider with a TTL-bounded LRU cache.
// Only found articles are cached; unknown identifiers are asked again.
type CachedProvider struct {
	inner   Provider
	cache   *cache.Cache[pzn.PZN, Article]
	metrics *plausibus.Metrics
}

// NewCachedProvider creates a caching wrapper with DefaultTTL and
// DefaultCacheSize.
func NewCachedProvider(inner Provider) *CachedProvider {
	return NewCachedProviderWithConfig(inner, DefaultCacheSize, DefaultTTL)
}

// NewCachedProviderWithConfig creates a caching wrapper with explicit
// capacity and TTL.
func NewCachedProviderWithConfig(inner Provider, capacity int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: cache.NewWithTTL[pzn.PZN, Article](capacity, ttl),
	}
}

// WithMetrics attaches engine metrics for hit/miss accounting.
func (p *CachedProvider) WithMetrics(m *plausibus.Metrics) *CachedProvider {
	p.metrics = m
	return p
}

// Lookup implements Provider. Cached entries are served directly; the
// misses are fetched from the inner provider in one batch.
func (p *CachedProvider) Lookup(ctx context.Context, ids []pzn.PZN) (map[pzn.PZN]Article, error) {
	out := make(map[pzn.PZN]Article, len(ids))
	var missing []pzn.PZN

	for _, id := range ids {
		if a, ok := p.cache.Get(id); ok {
			out[id] = a
			p.recordHit()
			continue
		}
		p.recordMiss()
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := p.inner.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, a := range fetched {
		p.cache.Set(id, a)
		out[id] = a
	}
	return out, nil
}

// CacheStats returns the underlying cache counters.
func (p *CachedProvider) CacheStats() cache.Stats {
	return p.cache.Stats()
}

func (p *CachedProvider) recordHit() {
	if p.metrics != nil {
		p.metrics.RecordCacheHit()
	}
}

func (p *CachedProvider) recordMiss() {
	if p.metrics != nil {
		p.metrics.RecordCacheMiss()
	}
}

var _ Provider = (*CachedProvider)(nil)
