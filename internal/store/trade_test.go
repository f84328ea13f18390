package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

func newTestTrade(accountID, symbol string, typ domain.TradeType, executedAt time.Time) *domain.Trade {
	return &domain.Trade{
		AccountID:      accountID,
		Symbol:         symbol,
		Type:           typ,
		Quantity:       decimal.NewFromInt(10),
		RequestedPrice: decimal.NewFromInt(50),
		MarketPrice:    decimal.NewFromInt(50),
		Total:          decimal.NewFromInt(500),
		ExecutedAt:     executedAt,
	}
}

func TestTradeStore_InsertAndFind_NewestFirst(t *testing.T) {
	s := NewTradeStore()
	ctx := context.Background()
	now := time.Now()

	t1 := newTestTrade("acct-1", "AAPL", domain.TradeBuy, now)
	t2 := newTestTrade("acct-1", "AAPL", domain.TradeSell, now.Add(time.Second))
	_ = s.InsertTrade(ctx, t1)
	_ = s.InsertTrade(ctx, t2)

	if t1.TradeID == "" || t1.TradeID == t2.TradeID {
		t.Fatalf("expected distinct IDs, got %q and %q", t1.TradeID, t2.TradeID)
	}

	trades, err := s.FindTrades(ctx, "acct-1", domain.TradeFilter{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].TradeID != t2.TradeID {
		t.Fatalf("expected newest trade first, got %s", trades[0].TradeID)
	}
}

func TestTradeStore_FindTrades_Empty(t *testing.T) {
	s := NewTradeStore()

	trades, _ := s.FindTrades(context.Background(), "acct-1", domain.TradeFilter{})
	if trades == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(trades) != 0 {
		t.Fatalf("expected 0 trades, got %d", len(trades))
	}
}

func TestTradeStore_FindTrades_Filters(t *testing.T) {
	s := NewTradeStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = s.InsertTrade(ctx, newTestTrade("acct-1", "AAPL", domain.TradeBuy, base))
	_ = s.InsertTrade(ctx, newTestTrade("acct-1", "MSFT", domain.TradeBuy, base.Add(time.Hour)))
	_ = s.InsertTrade(ctx, newTestTrade("acct-1", "AAPL", domain.TradeSell, base.Add(2*time.Hour)))
	_ = s.InsertTrade(ctx, newTestTrade("acct-2", "AAPL", domain.TradeBuy, base))

	tests := []struct {
		name   string
		filter domain.TradeFilter
		want   int
	}{
		{"all", domain.TradeFilter{}, 3},
		{"by symbol", domain.TradeFilter{Symbol: "AAPL"}, 2},
		{"by type", domain.TradeFilter{Type: domain.TradeBuy}, 2},
		{"symbol and type", domain.TradeFilter{Symbol: "AAPL", Type: domain.TradeSell}, 1},
		{"since", domain.TradeFilter{Since: base.Add(time.Hour)}, 2},
		{"limit", domain.TradeFilter{Limit: 1}, 1},
		{"limit after filter", domain.TradeFilter{Symbol: "AAPL", Limit: 5}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades, _ := s.FindTrades(ctx, "acct-1", tt.filter)
			if len(trades) != tt.want {
				t.Fatalf("expected %d trades, got %d", tt.want, len(trades))
			}
		})
	}
}

func TestTradeStore_FindTrades_ReturnsCopy(t *testing.T) {
	s := NewTradeStore()
	ctx := context.Background()
	_ = s.InsertTrade(ctx, newTestTrade("acct-1", "AAPL", domain.TradeBuy, time.Now()))

	trades, _ := s.FindTrades(ctx, "acct-1", domain.TradeFilter{})
	trades[0].Symbol = "MUTATED"

	again, _ := s.FindTrades(ctx, "acct-1", domain.TradeFilter{})
	if again[0].Symbol != "AAPL" {
		t.Fatal("FindTrades should return copies; internal state was mutated")
	}
}

func TestTradeStore_ConcurrentAccess(t *testing.T) {
	s := NewTradeStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	now := time.Now()

	// Concurrent inserts interleaved with reads.
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tr := newTestTrade("acct-1", fmt.Sprintf("S%d", i%5), domain.TradeBuy, now.Add(time.Duration(i)*time.Millisecond))
			_ = s.InsertTrade(ctx, tr)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.FindTrades(ctx, "acct-1", domain.TradeFilter{})
		}()
	}
	wg.Wait()

	trades, _ := s.FindTrades(ctx, "acct-1", domain.TradeFilter{})
	if len(trades) != 100 {
		t.Fatalf("expected 100 trades, got %d", len(trades))
	}
}
