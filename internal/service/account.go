package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

const maxGoals = 20

// SignupRequest represents the input for account creation.
type SignupRequest struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	DOB       string // YYYY-MM-DD, optional
}

// GoalInput represents one goal in a goals update.
type GoalInput struct {
	ID         string
	Name       string
	Current    float64
	Target     float64
	Category   string
	TargetDate string
}

// GoalsUpdate replaces an account's goals.
type GoalsUpdate struct {
	Goals []GoalInput
}

// AccountService handles signup, profile, watchlist and goals.
type AccountService struct {
	accounts     AccountRepository
	startingCash decimal.Decimal
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts AccountRepository, startingCash decimal.Decimal) *AccountService {
	return &AccountService{
		accounts:     accounts,
		startingCash: startingCash,
	}
}

// Signup validates the request and creates an account with the starting
// cash balance, no holdings and the default goals.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (*domain.Account, error) {
	if !usernameRegex.MatchString(req.Username) {
		return nil, &domain.ValidationError{
			Message: "username must match ^[a-zA-Z0-9_.-]{3,32}$",
		}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, &domain.ValidationError{Message: "email must be a valid address"}
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, &domain.ValidationError{Message: "firstName and lastName are required"}
	}
	if req.DOB != "" {
		if _, err := time.Parse(time.DateOnly, req.DOB); err != nil {
			return nil, &domain.ValidationError{Message: "dob must be YYYY-MM-DD"}
		}
	}

	if _, err := s.accounts.FindAccountByUsername(ctx, req.Username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	a := &domain.Account{
		Username:   req.Username,
		Email:      req.Email,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		DOB:        req.DOB,
		Role:       domain.RoleUser,
		Membership: domain.MembershipRegular,
		Cash:       s.startingCash,
		Holdings:   make(map[string]decimal.Decimal),
		Options:    make(map[string]decimal.Decimal),
		Watchlist:  []string{},
		Goals:      domain.DefaultGoals(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Profile returns the account.
func (s *AccountService) Profile(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindAccount(ctx, id)
}

// Watchlist returns the account's watched symbols.
func (s *AccountService) Watchlist(ctx context.Context, id string) ([]string, error) {
	a, err := s.accounts.FindAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Watchlist, nil
}

// AddToWatchlist normalizes symbol and adds it; adding a symbol already
// present is a no-op. Returns the updated watchlist.
func (s *AccountService) AddToWatchlist(ctx context.Context, id, symbol string) ([]string, error) {
	sym, err := watchlistSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.AddToWatchlist(ctx, id, sym); err != nil {
		return nil, err
	}
	return s.Watchlist(ctx, id)
}

// RemoveFromWatchlist removes symbol. Returns the updated watchlist.
func (s *AccountService) RemoveFromWatchlist(ctx context.Context, id, symbol string) ([]string, error) {
	sym, err := watchlistSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.RemoveFromWatchlist(ctx, id, sym); err != nil {
		return nil, err
	}
	return s.Watchlist(ctx, id)
}

func watchlistSymbol(symbol string) (string, error) {
	sym := domain.NormalizeSymbol(symbol)
	if !domain.ValidSymbol(sym) {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("invalid symbol %q", symbol),
		}
	}
	return sym, nil
}

// Goals returns the account's goals.
func (s *AccountService) Goals(ctx context.Context, id string) ([]domain.Goal, error) {
	a, err := s.accounts.FindAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Goals, nil
}

// UpdateGoals validates every goal and replaces the account's goals.
// Goals without an ID get a fresh one.
func (s *AccountService) UpdateGoals(ctx context.Context, id string, req GoalsUpdate) ([]domain.Goal, error) {
	if len(req.Goals) > maxGoals {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("at most %d goals are allowed", maxGoals),
		}
	}

	goals := make([]domain.Goal, 0, len(req.Goals))
	for i, in := range req.Goals {
		current, err := domain.FromFloat(in.Current, 2)
		if err != nil {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("goals[%d].current: %v", i, err)}
		}
		target, err := domain.FromFloat(in.Target, 2)
		if err != nil {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("goals[%d].target: %v", i, err)}
		}
		g := domain.Goal{
			ID:         in.ID,
			Name:       strings.TrimSpace(in.Name),
			Current:    current,
			Target:     target,
			Category:   strings.TrimSpace(in.Category),
			TargetDate: in.TargetDate,
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		goals = append(goals, g)
	}

	if err := s.accounts.SetGoals(ctx, id, goals); err != nil {
		return nil, err
	}
	return goals, nil
}
