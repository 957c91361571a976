package abda

import (
	"context"

	"github.com/megadur/plausibus/pzn"
)

// Provider looks up article attributes by PZN. Lookup is batched: the
// result map contains an entry for every identifier known to the article
// master; unknown identifiers are simply absent.
type Provider interface {
	Lookup(ctx context.Context, ids []pzn.PZN) (map[pzn.PZN]Article, error)
}

// Get is the single-article convenience wrapper around a batched lookup.
func Get(ctx context.Context, p Provider, id pzn.PZN) (Article, bool, error) {
	m, err := p.Lookup(ctx, []pzn.PZN{id})
	if err != nil {
		return Article{}, false, err
	}
	a, ok := m[id]
	return a, ok, nil
}
