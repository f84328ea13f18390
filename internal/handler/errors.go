package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/papertrader/internal/domain"
)

// mapError maps domain errors to HTTP responses. It is the only place an
// error becomes a status code.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	// Settlement is checked first: a SettlementError unwraps to the store
	// error, which may itself be a domain sentinel such as
	// ErrAccountNotFound.
	switch {
	case errors.Is(err, domain.ErrSettlementFailed):
		WriteError(w, http.StatusInternalServerError, "settlement_failed", err.Error())
	case errors.Is(err, domain.ErrInvalidTradeRequest):
		WriteError(w, http.StatusBadRequest, "invalid_trade_request", err.Error())
	case errors.Is(err, domain.ErrInvalidSymbol):
		WriteError(w, http.StatusBadRequest, "invalid_symbol", err.Error())
	case errors.Is(err, domain.ErrPriceDeviation):
		WriteError(w, http.StatusBadRequest, "price_deviation", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusBadRequest, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientShares):
		WriteError(w, http.StatusBadRequest, "insufficient_shares", err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", "Account not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "Username is already taken")
	case errors.Is(err, domain.ErrQuoteUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "quote_unavailable", err.Error())
	case errors.Is(err, domain.ErrAdviceUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "advice_unavailable", "The advice assistant is not configured")
	case errors.Is(err, domain.ErrAdviceFailed):
		WriteError(w, http.StatusBadGateway, "advice_failed", "The advice assistant could not answer")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
