package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/service"
)

// TradeHandler handles HTTP requests for trade execution and history.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// tradeRequest is the JSON request body for POST /api/stocks/trade/{user_id}.
// Pointer fields distinguish missing values from zero.
type tradeRequest struct {
	Symbol   string   `json:"symbol"`
	Type     string   `json:"type"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}

type tradeResponse struct {
	TradeID     string  `json:"trade_id"`
	UserID      string  `json:"user_id"`
	Symbol      string  `json:"symbol"`
	Type        string  `json:"type"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	MarketPrice float64 `json:"market_price"`
	Total       float64 `json:"total"`
	Timestamp   string  `json:"timestamp"`
}

// executeResponse is the JSON response for a committed trade: the record
// and the account valued afterwards.
type executeResponse struct {
	Trade     tradeResponse     `json:"trade"`
	Portfolio portfolioResponse `json:"portfolio"`
}

type tradeListResponse struct {
	Trades []tradeResponse `json:"trades"`
}

// Execute handles POST /api/stocks/trade/{user_id}.
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.tradeSvc.Execute(r.Context(), chi.URLParam(r, "user_id"), service.ExecuteTradeRequest{
		Symbol:   req.Symbol,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, executeResponse{
		Trade:     buildTradeResponse(res.Trade),
		Portfolio: buildPortfolioResponse(res.Valuation),
	})
}

// History handles GET /api/stocks/trades/{user_id}?symbol=&type=&since=&limit=.
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TradeFilter{
		Symbol: q.Get("symbol"),
		Type:   domain.TradeType(q.Get("type")),
	}
	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "since must be a valid RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
		filter.Limit = limit
	}

	trades, err := h.tradeSvc.History(r.Context(), chi.URLParam(r, "user_id"), filter)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := tradeListResponse{Trades: make([]tradeResponse, len(trades))}
	for i, t := range trades {
		resp.Trades[i] = buildTradeResponse(t)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func buildTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:     t.TradeID,
		UserID:      t.AccountID,
		Symbol:      t.Symbol,
		Type:        string(t.Type),
		Quantity:    domain.Float(t.Quantity),
		Price:       domain.Float(t.RequestedPrice),
		MarketPrice: domain.Float(t.MarketPrice),
		Total:       money(t.Total),
		Timestamp:   t.ExecutedAt.UTC().Format(timeFormat),
	}
}
