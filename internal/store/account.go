package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/efreitasn/papertrader/internal/domain"
)

// AccountStore is a thread-safe in-memory store for accounts, keyed by
// account ID with a secondary username index. Callers always receive
// copies; state changes only through the store's methods.
type AccountStore struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account
	byUsername map[string]string // username → account ID
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts:   make(map[string]*domain.Account),
		byUsername: make(map[string]string),
	}
}

// CreateAccount adds an account, assigning an ID when it has none. It
// returns domain.ErrUsernameTaken if the username is already in use.
func (s *AccountStore) CreateAccount(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[a.Username]; exists {
		return domain.ErrUsernameTaken
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts[a.ID] = a.Clone()
	s.byUsername[a.Username] = a.ID
	return nil
}

// FindAccount retrieves an account by ID. It returns
// domain.ErrAccountNotFound if the account does not exist.
func (s *AccountStore) FindAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// FindAccountByUsername retrieves an account by username.
func (s *AccountStore) FindAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

// Increment adds delta to the account's cash and to the holding of
// delta.Symbol in one step. No balance checks are made here.
func (s *AccountStore) Increment(_ context.Context, id string, delta domain.AccountDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Cash = a.Cash.Add(delta.Cash)
	if delta.Symbol != "" {
		a.Holdings[delta.Symbol] = a.Holdings[delta.Symbol].Add(delta.Quantity)
	}
	return nil
}

// AddToWatchlist appends symbol unless it is already present.
func (s *AccountStore) AddToWatchlist(_ context.Context, id, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for _, w := range a.Watchlist {
		if w == symbol {
			return nil
		}
	}
	a.Watchlist = append(a.Watchlist, symbol)
	return nil
}

// RemoveFromWatchlist removes every occurrence of symbol.
func (s *AccountStore) RemoveFromWatchlist(_ context.Context, id, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	kept := a.Watchlist[:0]
	for _, w := range a.Watchlist {
		if w != symbol {
			kept = append(kept, w)
		}
	}
	a.Watchlist = kept
	return nil
}

// SetGoals replaces the account's goals.
func (s *AccountStore) SetGoals(_ context.Context, id string, goals []domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Goals = append([]domain.Goal(nil), goals...)
	return nil
}
