package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

const (
	defaultTradeHistoryLimit = 100
	maxTradeHistoryLimit     = 1000
)

// ExecuteTradeRequest represents the raw input for a trade. Pointers
// distinguish missing fields from zero values.
type ExecuteTradeRequest struct {
	Symbol   string
	Type     string
	Quantity *float64
	Price    *float64
}

// TradeResult is a committed trade and the account valued afterwards.
type TradeResult struct {
	Trade     *domain.Trade
	Valuation domain.Valuation
}

// TradeService validates and settles buy and sell orders against an
// account's cash and holdings.
type TradeService struct {
	accounts  AccountRepository
	trades    TradeRepository
	quotes    QuoteSource
	portfolio *PortfolioService
	tolerance decimal.Decimal
	locks     *accountLocks
	logger    *slog.Logger
}

// NewTradeService creates a new TradeService. tolerance is the maximum
// relative distance between requested and market price, e.g. 0.05.
func NewTradeService(
	accounts AccountRepository,
	trades TradeRepository,
	quotes QuoteSource,
	portfolio *PortfolioService,
	tolerance decimal.Decimal,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		accounts:  accounts,
		trades:    trades,
		quotes:    quotes,
		portfolio: portfolio,
		tolerance: tolerance,
		locks:     newAccountLocks(),
		logger:    logger.With("component", "trade"),
	}
}

// Execute runs one trade through validation, market lookup, the price
// tolerance check and the funds or shares check, then settles it. Only
// settlement mutates state. Trades on the same account run one at a time.
func (s *TradeService) Execute(ctx context.Context, accountID string, in ExecuteTradeRequest) (*TradeResult, error) {
	req, err := domain.ParseTradeRequest(in.Symbol, in.Type, in.Quantity, in.Price)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}

	q, err := s.quotes.GetQuote(ctx, req.Symbol)
	if err != nil {
		if errors.Is(err, domain.ErrQuoteUnavailable) {
			return nil, fmt.Errorf("%w: %s cannot be quoted", domain.ErrInvalidSymbol, req.Symbol)
		}
		return nil, err
	}

	// |m − p| / m > tolerance, rearranged to avoid dividing. A deviation
	// exactly at the tolerance is accepted.
	deviation := q.Price.Sub(req.Price).Abs()
	if deviation.GreaterThan(q.Price.Mul(s.tolerance)) {
		return nil, fmt.Errorf("%w: requested %s, market %s", domain.ErrPriceDeviation, req.Price, q.Price)
	}

	unlock := s.locks.lock(accountID)
	trade, err := s.settleLocked(ctx, accountID, req, q.Price)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("trade executed",
		"account_id", accountID,
		"trade_id", trade.TradeID,
		"symbol", trade.Symbol,
		"type", trade.Type,
		"quantity", trade.Quantity.String(),
		"price", trade.RequestedPrice.String(),
	)

	a, err := s.accounts.FindAccount(ctx, accountID)
	if err != nil {
		// The trade is committed; report it with an empty valuation
		// rather than as a failure.
		s.logger.Warn("re-read after trade failed", "account_id", accountID, "error", err)
		return &TradeResult{Trade: trade}, nil
	}
	return &TradeResult{Trade: trade, Valuation: s.portfolio.Value(ctx, a)}, nil
}

// settleLocked checks funds or shares against a fresh read of the account
// and applies the trade. Must be called with the account lock held.
func (s *TradeService) settleLocked(ctx context.Context, accountID string, req domain.TradeRequest, marketPrice decimal.Decimal) (*domain.Trade, error) {
	a, err := s.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	total := req.Total()
	switch req.Type {
	case domain.TradeBuy:
		if a.Cash.LessThan(total) {
			return nil, fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, total, a.Cash)
		}
	case domain.TradeSell:
		if held := a.Quantity(req.Symbol); held.LessThan(req.Quantity) {
			return nil, fmt.Errorf("%w: selling %s %s, holding %s", domain.ErrInsufficientShares, req.Quantity, req.Symbol, held)
		}
	}

	return s.settle(ctx, accountID, req, marketPrice)
}

// settle applies the increment and then appends the trade record. If the
// append fails, the increment is reversed and the returned
// *domain.SettlementError says whether the reversal went through. A
// settlement is never retried.
func (s *TradeService) settle(ctx context.Context, accountID string, req domain.TradeRequest, marketPrice decimal.Decimal) (*domain.Trade, error) {
	delta := req.Delta()
	if err := s.accounts.Increment(ctx, accountID, delta); err != nil {
		s.logger.Error("settlement increment failed", "account_id", accountID, "error", err)
		return nil, &domain.SettlementError{Stage: domain.StageIncrement, Err: err}
	}

	trade := &domain.Trade{
		AccountID:      accountID,
		Symbol:         req.Symbol,
		Type:           req.Type,
		Quantity:       req.Quantity,
		RequestedPrice: req.Price,
		MarketPrice:    marketPrice,
		Total:          req.Total(),
		ExecutedAt:     time.Now().UTC(),
	}
	if err := s.trades.InsertTrade(ctx, trade); err != nil {
		// The reversal must run even if the request was cancelled.
		rerr := s.accounts.Increment(context.WithoutCancel(ctx), accountID, delta.Reverse())
		s.logger.Error("trade record append failed",
			"account_id", accountID,
			"error", err,
			"reversal_error", rerr,
		)
		return nil, &domain.SettlementError{Stage: domain.StageRecord, Compensated: rerr == nil, Err: err}
	}
	return trade, nil
}

// History returns the account's trades, newest first.
func (s *TradeService) History(ctx context.Context, accountID string, filter domain.TradeFilter) ([]*domain.Trade, error) {
	if filter.Symbol != "" {
		filter.Symbol = domain.NormalizeSymbol(filter.Symbol)
		if !domain.ValidSymbol(filter.Symbol) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid symbol %q", filter.Symbol)}
		}
	}
	if filter.Type != "" && filter.Type != domain.TradeBuy && filter.Type != domain.TradeSell {
		return nil, &domain.ValidationError{Message: "type must be BUY or SELL"}
	}
	switch {
	case filter.Limit < 0 || filter.Limit > maxTradeHistoryLimit:
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxTradeHistoryLimit),
		}
	case filter.Limit == 0:
		filter.Limit = defaultTradeHistoryLimit
	}

	if _, err := s.accounts.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.trades.FindTrades(ctx, accountID, filter)
}

// accountLocks hands out one mutex per account ID. Entries are reference
// counted and dropped when no trade holds or waits on them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*accountLock)}
}

// lock blocks until the caller holds id's mutex and returns its release.
func (l *accountLocks) lock(id string) func() {
	l.mu.Lock()
	al, ok := l.locks[id]
	if !ok {
		al = &accountLock{}
		l.locks[id] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()
	return func() {
		al.mu.Unlock()
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
