package refdata

import "context"

// Service looks up reference codes. Implementations return ErrNotFound for
// codes absent from the tables.
type Service interface {
	SpecialCode(ctx context.Context, code string) (SpecialCode, error)
	FactorCode(ctx context.Context, code string) (FactorCode, error)
	PriceCode(ctx context.Context, code string) (PriceCode, error)
}
