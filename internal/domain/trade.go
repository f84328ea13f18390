package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType distinguishes buys from sells.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// Trade is an immutable record of a settled order. Cash and shares are
// settled at RequestedPrice; MarketPrice is the quote seen at execution.
type Trade struct {
	TradeID        string
	AccountID      string
	Symbol         string
	Type           TradeType
	Quantity       decimal.Decimal
	RequestedPrice decimal.Decimal
	MarketPrice    decimal.Decimal
	Total          decimal.Decimal // Quantity × RequestedPrice
	ExecutedAt     time.Time
}

// TradeRequest is a structurally valid buy or sell order.
type TradeRequest struct {
	Symbol   string
	Type     TradeType
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// ParseTradeRequest checks presence and shape of the raw order fields and
// returns a normalized request. Every failure wraps ErrInvalidTradeRequest.
func ParseTradeRequest(symbol, tradeType string, quantity, price *float64) (TradeRequest, error) {
	if symbol == "" || tradeType == "" || quantity == nil || price == nil {
		return TradeRequest{}, fmt.Errorf("%w: symbol, type, quantity and price are required", ErrInvalidTradeRequest)
	}

	sym := NormalizeSymbol(symbol)
	if !ValidSymbol(sym) {
		return TradeRequest{}, fmt.Errorf("%w: malformed symbol %q", ErrInvalidTradeRequest, symbol)
	}

	typ := TradeType(strings.ToUpper(strings.TrimSpace(tradeType)))
	if typ != TradeBuy && typ != TradeSell {
		return TradeRequest{}, fmt.Errorf("%w: type must be BUY or SELL", ErrInvalidTradeRequest)
	}

	q, err := FromFloat(*quantity, QuantityPlaces)
	if err != nil {
		return TradeRequest{}, fmt.Errorf("%w: quantity: %v", ErrInvalidTradeRequest, err)
	}
	if !q.IsPositive() {
		return TradeRequest{}, fmt.Errorf("%w: quantity must be > 0", ErrInvalidTradeRequest)
	}

	p, err := FromFloat(*price, PricePlaces)
	if err != nil {
		return TradeRequest{}, fmt.Errorf("%w: price: %v", ErrInvalidTradeRequest, err)
	}
	if !p.IsPositive() {
		return TradeRequest{}, fmt.Errorf("%w: price must be > 0", ErrInvalidTradeRequest)
	}

	return TradeRequest{Symbol: sym, Type: typ, Quantity: q, Price: p}, nil
}

// Total is quantity × requested price.
func (r TradeRequest) Total() decimal.Decimal {
	return r.Quantity.Mul(r.Price)
}

// Delta is the settlement increment for this request: a buy spends cash
// and adds shares, a sell does the opposite.
func (r TradeRequest) Delta() AccountDelta {
	total := r.Total()
	if r.Type == TradeBuy {
		return AccountDelta{Cash: total.Neg(), Symbol: r.Symbol, Quantity: r.Quantity}
	}
	return AccountDelta{Cash: total, Symbol: r.Symbol, Quantity: r.Quantity.Neg()}
}

// TradeFilter narrows a trade history query. Zero values mean no filter;
// Limit 0 means unlimited.
type TradeFilter struct {
	Symbol string
	Type   TradeType
	Since  time.Time
	Limit  int
}

// Matches reports whether t passes the symbol, type and time filters.
func (f TradeFilter) Matches(t *Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && t.ExecutedAt.Before(f.Since) {
		return false
	}
	return true
}
