package service

import (
	"context"
	"fmt"

	"github.com/efreitasn/papertrader/internal/domain"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// MarketService serves quotes and historical series.
type MarketService struct {
	market MarketData
}

// NewMarketService creates a new MarketService.
func NewMarketService(market MarketData) *MarketService {
	return &MarketService{market: market}
}

// Quote returns the live quote for symbol.
func (s *MarketService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	sym := domain.NormalizeSymbol(symbol)
	if !domain.ValidSymbol(sym) {
		return domain.Quote{}, &domain.ValidationError{Message: fmt.Sprintf("invalid symbol %q", symbol)}
	}
	return s.market.GetQuote(ctx, sym)
}

// History returns up to days daily bars for symbol. Zero days means the
// default window.
func (s *MarketService) History(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	sym := domain.NormalizeSymbol(symbol)
	if !domain.ValidSymbol(sym) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid symbol %q", symbol)}
	}
	if days == 0 {
		days = defaultHistoryDays
	}
	if days < 1 || days > maxHistoryDays {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("days must be between 1 and %d", maxHistoryDays),
		}
	}
	return s.market.GetHistory(ctx, sym, days)
}
