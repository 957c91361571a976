package abda

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/megadur/plausibus/money"
	"github.com/megadur/plausibus/pzn"
)

// lookupSQL reads the attribute columns from the PAC_APO article table.
// Prices are stored in cents.
const lookupSQL = `
	SELECT pzn, name, btm, cannabis, tfg,
	       apo_ek, apo_vk, apu,
	       verkehrsstatus, mwst
	FROM pac_apo
	WHERE pzn = ANY($1)`

// PostgresProvider serves article attributes from a pgx connection pool.
type PostgresProvider struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresProvider wraps an existing pool.
func NewPostgresProvider(pool *pgxpool.Pool, log zerolog.Logger) *PostgresProvider {
	return &PostgresProvider{pool: pool, log: log.With().Str("component", "abda").Logger()}
}

// Lookup implements Provider with a single ANY query per batch.
func (p *PostgresProvider) Lookup(ctx context.Context, ids []pzn.PZN) (map[pzn.PZN]Article, error) {
	if len(ids) == 0 {
		return map[pzn.PZN]Article{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := p.pool.Query(ctx, lookupSQL, keys)
	if err != nil {
		return nil, fmt.Errorf("abda: query articles: %w", err)
	}
	defer rows.Close()

	out := make(map[pzn.PZN]Article, len(ids))
	for rows.Next() {
		var (
			a                 Article
			apoEk, apoVk, apu int64
		)
		if err := rows.Scan(&a.PZN, &a.Name, &a.Btm, &a.Cannabis, &a.Tfg,
			&apoEk, &apoVk, &apu, &a.MarketStatus, &a.Vat); err != nil {
			return nil, fmt.Errorf("abda: scan article: %w", err)
		}
		a.PurchasePrice = money.FromCents(apoEk, money.DefaultCurrency)
		a.SalePrice = money.FromCents(apoVk, money.DefaultCurrency)
		a.ManufacturerPrice = money.FromCents(apu, money.DefaultCurrency)

		id, err := pzn.Parse(a.PZN)
		if err != nil {
			p.log.Warn().Str("pzn", a.PZN).Err(err).Msg("skipping article with malformed pzn")
			continue
		}
		out[id] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("abda: read articles: %w", err)
	}

	p.log.Debug().Int("requested", len(ids)).Int("found", len(out)).Msg("article lookup")
	return out, nil
}

var _ Provider = (*PostgresProvider)(nil)
