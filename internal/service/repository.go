package service

import (
	"context"

	"github.com/efreitasn/papertrader/internal/domain"
)

// AccountRepository persists accounts. Implemented by store.AccountStore
// and mongostore.Store.
type AccountRepository interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	FindAccount(ctx context.Context, id string) (*domain.Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	// Increment applies delta as one conditionless update.
	Increment(ctx context.Context, id string, delta domain.AccountDelta) error
	AddToWatchlist(ctx context.Context, id, symbol string) error
	RemoveFromWatchlist(ctx context.Context, id, symbol string) error
	SetGoals(ctx context.Context, id string, goals []domain.Goal) error
}

// TradeRepository persists trade records. Implemented by store.TradeStore
// and mongostore.Store.
type TradeRepository interface {
	InsertTrade(ctx context.Context, t *domain.Trade) error
	// FindTrades returns matching trades, newest first.
	FindTrades(ctx context.Context, accountID string, filter domain.TradeFilter) ([]*domain.Trade, error)
}

// QuoteSource returns live quotes. Failures wrap domain.ErrQuoteUnavailable.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (domain.Quote, error)
}

// MarketData adds historical series to QuoteSource. Implemented by
// quote.Client.
type MarketData interface {
	QuoteSource
	GetHistory(ctx context.Context, symbol string, days int) ([]domain.Bar, error)
}

// SectorLookup classifies a symbol. Implemented by quote.Client.
type SectorLookup interface {
	Sector(ctx context.Context, symbol string) (string, error)
}
