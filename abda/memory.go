package abda

import (
	"context"
	"sync"

	"github.com/megadur/plausibus/pzn"
)

// InMemoryProvider serves article attributes from a map. It backs tests
// and the offline CLI mode.
type InMemoryProvider struct {
	mu       sync.RWMutex
	articles map[pzn.PZN]Article
}

// NewInMemoryProvider creates an empty in-memory article master.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{articles: make(map[pzn.PZN]Article)}
}

// Add stores or replaces one article, keyed by its PZN.
func (p *InMemoryProvider) Add(a Article) error {
	id, err := pzn.Parse(a.PZN)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.articles[id] = a
	p.mu.Unlock()
	return nil
}

// Len returns the number of stored articles.
func (p *InMemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.articles)
}

// Lookup implements Provider.
func (p *InMemoryProvider) Lookup(_ context.Context, ids []pzn.PZN) (map[pzn.PZN]Article, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[pzn.PZN]Article, len(ids))
	for _, id := range ids {
		if a, ok := p.articles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

var _ Provider = (*InMemoryProvider)(nil)
