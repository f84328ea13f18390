package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/service"
)

// MarketHandler handles HTTP requests for quotes and price history.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// quoteResponse is the JSON response for GET /api/stocks/quote/{symbol}.
type quoteResponse struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	PercentChange    float64 `json:"percentChange"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	Volume           int64   `json:"volume"`
	LatestTradingDay string  `json:"latest_trading_day,omitempty"`
}

type barResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// historyResponse is the JSON response for GET /api/stocks/history/{symbol}.
type historyResponse struct {
	Symbol string        `json:"symbol"`
	Bars   []barResponse `json:"bars"`
}

// Quote handles GET /api/stocks/quote/{symbol}.
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.marketSvc.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := quoteResponse{
		Symbol:        q.Symbol,
		Price:         domain.Float(q.Price),
		Change:        domain.Float(q.Change),
		PercentChange: domain.Float(q.PercentChange.Round(4)),
		High:          domain.Float(q.High),
		Low:           domain.Float(q.Low),
		Volume:        q.Volume,
	}
	if !q.Timestamp.IsZero() {
		resp.LatestTradingDay = q.Timestamp.UTC().Format(time.DateOnly)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// History handles GET /api/stocks/history/{symbol}?days=N.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		var err error
		days, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "days must be a valid integer")
			return
		}
	}

	bars, err := h.marketSvc.History(r.Context(), chi.URLParam(r, "symbol"), days)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := historyResponse{
		Symbol: domain.NormalizeSymbol(chi.URLParam(r, "symbol")),
		Bars:   make([]barResponse, len(bars)),
	}
	for i, b := range bars {
		resp.Bars[i] = barResponse{
			Date:   b.Date.UTC().Format(time.DateOnly),
			Open:   domain.Float(b.Open),
			High:   domain.Float(b.High),
			Low:    domain.Float(b.Low),
			Close:  domain.Float(b.Close),
			Volume: b.Volume,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}
