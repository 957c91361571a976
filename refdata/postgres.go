package refdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresService serves reference codes from the TA1 tables of a pgx
// connection pool.
type PostgresService struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresService wraps an existing pool.
func NewPostgresService(pool *pgxpool.Pool, log zerolog.Logger) *PostgresService {
	return &PostgresService{pool: pool, log: log.With().Str("component", "refdata").Logger()}
}

// SpecialCode implements Service.
func (s *PostgresService) SpecialCode(ctx context.Context, code string) (SpecialCode, error) {
	const q = `
		SELECT code, description, vat_indicator, erezept,
		       valid_from, expired_dispensing_date
		FROM ta1_special_codes
		WHERE code = $1`

	var (
		sc        SpecialCode
		validFrom *time.Time
		expired   *time.Time
	)
	err := s.pool.QueryRow(ctx, q, code).Scan(
		&sc.Code, &sc.Description, &sc.VatIndicator, &sc.ERezept, &validFrom, &expired)
	if errors.Is(err, pgx.ErrNoRows) {
		return SpecialCode{}, fmt.Errorf("special code %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return SpecialCode{}, fmt.Errorf("refdata: query special code: %w", err)
	}
	if validFrom != nil {
		sc.ValidFrom = *validFrom
	}
	if expired != nil {
		sc.ExpiredDispensingDate = *expired
	}
	return sc, nil
}

// FactorCode implements Service.
func (s *PostgresService) FactorCode(ctx context.Context, code string) (FactorCode, error) {
	const q = `SELECT code, content, description FROM ta1_factor_codes WHERE code = $1`

	var fc FactorCode
	err := s.pool.QueryRow(ctx, q, code).Scan(&fc.Code, &fc.Content, &fc.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return FactorCode{}, fmt.Errorf("factor code %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return FactorCode{}, fmt.Errorf("refdata: query factor code: %w", err)
	}
	return fc, nil
}

// PriceCode implements Service.
func (s *PostgresService) PriceCode(ctx context.Context, code string) (PriceCode, error) {
	const q = `SELECT code, content, description, vat_percent FROM ta1_price_codes WHERE code = $1`

	var pc PriceCode
	err := s.pool.QueryRow(ctx, q, code).Scan(&pc.Code, &pc.Content, &pc.Description, &pc.VatPercent)
	if errors.Is(err, pgx.ErrNoRows) {
		return PriceCode{}, fmt.Errorf("price code %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return PriceCode{}, fmt.Errorf("refdata: query price code: %w", err)
	}
	return pc, nil
}

var _ Service = (*PostgresService)(nil)
