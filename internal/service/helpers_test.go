package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func f64(f float64) *float64 { return &f }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeQuotes serves fixed prices. Symbols without a price are unquotable.
type fakeQuotes struct {
	mu      sync.Mutex
	prices  map[string]decimal.Decimal
	changes map[string]decimal.Decimal
	calls   atomic.Int32
}

func newFakeQuotes(prices map[string]string) *fakeQuotes {
	q := &fakeQuotes{
		prices:  make(map[string]decimal.Decimal),
		changes: make(map[string]decimal.Decimal),
	}
	for sym, p := range prices {
		q.prices[sym] = dec(p)
	}
	return q
}

func (q *fakeQuotes) set(symbol, price string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[symbol] = dec(price)
}

func (q *fakeQuotes) setChange(symbol, change string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.changes[symbol] = dec(change)
}

func (q *fakeQuotes) GetQuote(_ context.Context, symbol string) (domain.Quote, error) {
	q.calls.Add(1)
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.prices[symbol]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrQuoteUnavailable, symbol)
	}
	ch := q.changes[symbol]
	return domain.Quote{
		Symbol:        symbol,
		Price:         p,
		Change:        ch,
		PercentChange: domain.Percent(ch, p.Sub(ch)),
	}, nil
}

func (q *fakeQuotes) GetHistory(_ context.Context, symbol string, days int) ([]domain.Bar, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuoteUnavailable, symbol)
	}
	bars := make([]domain.Bar, days)
	for i := range bars {
		bars[i] = domain.Bar{Open: p, High: p, Low: p, Close: p}
	}
	return bars, nil
}

// fakeSectors maps symbols to sectors; unknown symbols fail the lookup.
type fakeSectors map[string]string

func (f fakeSectors) Sector(_ context.Context, symbol string) (string, error) {
	s, ok := f[symbol]
	if !ok {
		return "", errors.New("no sector")
	}
	return s, nil
}

// faultyAccounts wraps an AccountStore and fails Increment on demand.
// failReversal makes every increment after the first fail as well.
type faultyAccounts struct {
	*store.AccountStore
	failIncrement bool
	failReversal  bool
	increments    atomic.Int32
}

func (f *faultyAccounts) Increment(ctx context.Context, id string, delta domain.AccountDelta) error {
	n := f.increments.Add(1)
	if f.failIncrement || (f.failReversal && n > 1) {
		return errors.New("write failed")
	}
	return f.AccountStore.Increment(ctx, id, delta)
}

// faultyTrades wraps a TradeStore and fails every insert when failInsert
// is set.
type faultyTrades struct {
	*store.TradeStore
	failInsert bool
}

func (f *faultyTrades) InsertTrade(ctx context.Context, t *domain.Trade) error {
	if f.failInsert {
		return errors.New("insert failed")
	}
	return f.TradeStore.InsertTrade(ctx, t)
}

// testEnv bundles the services wired to in-memory stores.
type testEnv struct {
	accounts  *faultyAccounts
	trades    *faultyTrades
	quotes    *fakeQuotes
	sectors   fakeSectors
	accountSv *AccountService
	portfolio *PortfolioService
	trade     *TradeService
}

func newTestEnv(prices map[string]string) *testEnv {
	accounts := &faultyAccounts{AccountStore: store.NewAccountStore()}
	trades := &faultyTrades{TradeStore: store.NewTradeStore()}
	quotes := newFakeQuotes(prices)
	sectors := fakeSectors{}
	portfolio := NewPortfolioService(accounts, trades, quotes, sectors, discardLogger())
	return &testEnv{
		accounts:  accounts,
		trades:    trades,
		quotes:    quotes,
		sectors:   sectors,
		accountSv: NewAccountService(accounts, dec("25000")),
		portfolio: portfolio,
		trade:     NewTradeService(accounts, trades, quotes, portfolio, dec("0.05"), discardLogger()),
	}
}

// createAccount inserts an account with the given cash and holdings and
// returns its ID.
func (env *testEnv) createAccount(t fataler, username, cash string, holdings map[string]string) string {
	t.Helper()
	a := &domain.Account{
		Username:  username,
		Email:     username + "@example.com",
		Cash:      dec(cash),
		Holdings:  make(map[string]decimal.Decimal),
		Options:   make(map[string]decimal.Decimal),
		Watchlist: []string{},
		Goals:     domain.DefaultGoals(),
	}
	for sym, q := range holdings {
		a.Holdings[sym] = dec(q)
	}
	if err := env.accounts.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("failed to create account %s: %v", username, err)
	}
	return a.ID
}

func (env *testEnv) account(t fataler, id string) *domain.Account {
	t.Helper()
	a, err := env.accounts.FindAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load account %s: %v", id, err)
	}
	return a
}

func (env *testEnv) tradeCount(t fataler, id string) int {
	t.Helper()
	trades, err := env.trades.FindTrades(context.Background(), id, domain.TradeFilter{})
	if err != nil {
		t.Fatalf("failed to load trades: %v", err)
	}
	return len(trades)
}
