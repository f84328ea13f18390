package quote

import (
	"context"
	"errors"

	"github.com/efreitasn/papertrader/internal/domain"
)

// Provider errors. The client retries ErrRateLimited and folds every
// provider error into domain.ErrQuoteUnavailable.
var (
	ErrRateLimited = errors.New("provider rate limited")
	ErrNotFound    = errors.New("symbol not found")
	ErrMalformed   = errors.New("malformed provider response")
)

// Provider fetches market data for normalized symbols from one upstream.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	// History returns up to days daily bars, oldest first.
	History(ctx context.Context, symbol string, days int) ([]domain.Bar, error)
}

// SectorSource is implemented by providers that can classify a symbol.
type SectorSource interface {
	Sector(ctx context.Context, symbol string) (string, error)
}
