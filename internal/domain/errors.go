package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidTradeRequest = errors.New("invalid_trade_request")
	ErrInvalidSymbol       = errors.New("invalid_symbol")
	ErrPriceDeviation      = errors.New("price_deviation")
	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrInsufficientShares  = errors.New("insufficient_shares")
	ErrQuoteUnavailable    = errors.New("quote_unavailable")
	ErrSettlementFailed    = errors.New("settlement_failed")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrUsernameTaken       = errors.New("username_taken")
	ErrAdviceUnavailable   = errors.New("advice_unavailable")
	ErrAdviceFailed        = errors.New("advice_failed")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SettlementStage identifies which persistence step of a trade failed.
type SettlementStage string

const (
	StageIncrement SettlementStage = "increment"
	StageRecord    SettlementStage = "record"
)

// SettlementError reports a persistence fault during settlement. When the
// record append failed after the increment was applied, Compensated tells
// whether the reverse increment went through; if it did not, the account
// needs a manual read to know its state.
type SettlementError struct {
	Stage       SettlementStage
	Compensated bool
	Err         error
}

func (e *SettlementError) Error() string {
	msg := fmt.Sprintf("settlement failed at %s: %v", e.Stage, e.Err)
	if e.Stage == StageRecord && !e.Compensated {
		msg += " (reversal not applied)"
	}
	return msg
}

func (e *SettlementError) Unwrap() error { return e.Err }

// Is makes every SettlementError match ErrSettlementFailed.
func (e *SettlementError) Is(target error) bool {
	return target == ErrSettlementFailed
}
