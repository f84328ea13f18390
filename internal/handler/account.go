package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/service"
)

// AccountHandler handles HTTP requests for signup, profile, watchlist and
// goals.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// signupRequest is the JSON request body for POST /api/auth/signup.
type signupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
}

// accountResponse is the JSON view of an account.
type accountResponse struct {
	ID         string             `json:"id"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	FirstName  string             `json:"firstName"`
	LastName   string             `json:"lastName"`
	DOB        string             `json:"dob,omitempty"`
	Role       string             `json:"role"`
	Membership string             `json:"membership"`
	Cash       float64            `json:"cash"`
	Portfolio  map[string]float64 `json:"portfolio"`
	Options    []optionResponse   `json:"options_portfolio"`
	Watchlist  []string           `json:"watchlist"`
	Goals      []goalResponse     `json:"goals"`
	CreatedAt  string             `json:"created_at"`
}

type optionResponse struct {
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"`
	Contracts  float64 `json:"contracts"`
}

// goalRequest is a single goal in POST /api/auth/goals/{user_id}.
type goalRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"` // derived; accepted and ignored
	Category   string  `json:"category"`
	TargetDate string  `json:"targetDate"`
}

type goalsRequest struct {
	Goals []goalRequest `json:"goals"`
}

type goalResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"`
	Category   string  `json:"category"`
	TargetDate string  `json:"targetDate"`
}

type goalsResponse struct {
	Goals []goalResponse `json:"goals"`
}

type watchlistRequest struct {
	Symbol string `json:"symbol"`
}

// Signup handles POST /api/auth/signup.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	a, err := h.accountSvc.Signup(r.Context(), service.SignupRequest{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       req.DOB,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildAccountResponse(a))
}

// Profile handles GET /api/auth/profile/{user_id}.
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	a, err := h.accountSvc.Profile(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildAccountResponse(a))
}

// Watchlist handles GET /api/auth/watchlist/{user_id}.
func (h *AccountHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.accountSvc.Watchlist(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(list))
}

// AddToWatchlist handles POST /api/auth/watchlist/{user_id}.
func (h *AccountHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	list, err := h.accountSvc.AddToWatchlist(r.Context(), chi.URLParam(r, "user_id"), req.Symbol)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(list))
}

// RemoveFromWatchlist handles DELETE /api/auth/watchlist/{user_id}/{symbol}.
func (h *AccountHandler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.accountSvc.RemoveFromWatchlist(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "symbol"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(list))
}

// Goals handles GET /api/auth/goals/{user_id}.
func (h *AccountHandler) Goals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.accountSvc.Goals(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, goalsResponse{Goals: buildGoalResponses(goals)})
}

// UpdateGoals handles POST /api/auth/goals/{user_id}. The submitted list
// replaces the account's goals.
func (h *AccountHandler) UpdateGoals(w http.ResponseWriter, r *http.Request) {
	var req goalsRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	update := service.GoalsUpdate{Goals: make([]service.GoalInput, len(req.Goals))}
	for i, g := range req.Goals {
		update.Goals[i] = service.GoalInput{
			ID:         g.ID,
			Name:       g.Name,
			Current:    g.Current,
			Target:     g.Target,
			Category:   g.Category,
			TargetDate: g.TargetDate,
		}
	}

	goals, err := h.accountSvc.UpdateGoals(r.Context(), chi.URLParam(r, "user_id"), update)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, goalsResponse{Goals: buildGoalResponses(goals)})
}

func buildAccountResponse(a *domain.Account) accountResponse {
	portfolio := make(map[string]float64, len(a.Holdings))
	for _, h := range a.ActiveHoldings() {
		portfolio[h.Symbol] = domain.Float(h.Quantity)
	}

	active := a.ActiveOptions()
	options := make([]optionResponse, len(active))
	for i, o := range active {
		options[i] = optionResponse{
			Symbol:     o.Contract.Symbol,
			Type:       string(o.Contract.Type),
			Strike:     domain.Float(o.Contract.Strike),
			Expiration: o.Contract.Expiration,
			Contracts:  domain.Float(o.Contracts),
		}
	}

	return accountResponse{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		DOB:        a.DOB,
		Role:       a.Role,
		Membership: a.Membership,
		Cash:       money(a.Cash),
		Portfolio:  portfolio,
		Options:    options,
		Watchlist:  nonNil(a.Watchlist),
		Goals:      buildGoalResponses(a.Goals),
		CreatedAt:  a.CreatedAt.UTC().Format(timeFormat),
	}
}

func buildGoalResponses(goals []domain.Goal) []goalResponse {
	out := make([]goalResponse, len(goals))
	for i, g := range goals {
		out[i] = goalResponse{
			ID:         g.ID,
			Name:       g.Name,
			Current:    money(g.Current),
			Target:     money(g.Target),
			Percentage: domain.Float(g.Percentage()),
			Category:   g.Category,
			TargetDate: g.TargetDate,
		}
	}
	return out
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
