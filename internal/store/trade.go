package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/efreitasn/papertrader/internal/domain"
)

// TradeStore is a thread-safe in-memory store for trade records, keyed
// by account ID. Records are append-only and chronological.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]*domain.Trade // account_id → trades (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string][]*domain.Trade),
	}
}

// InsertTrade appends a record to its account's list, assigning an ID
// when it has none.
func (s *TradeStore) InsertTrade(_ context.Context, t *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.TradeID == "" {
		t.TradeID = uuid.NewString()
	}
	stored := *t
	s.trades[t.AccountID] = append(s.trades[t.AccountID], &stored)
	return nil
}

// FindTrades returns the account's trades matching filter, newest first.
// Returns an empty slice if none match.
func (s *TradeStore) FindTrades(_ context.Context, accountID string, filter domain.TradeFilter) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[accountID]
	result := make([]*domain.Trade, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
		if !filter.Matches(trades[i]) {
			continue
		}
		// Copy so callers can't mutate the stored record.
		t := *trades[i]
		result = append(result, &t)
	}
	return result, nil
}
