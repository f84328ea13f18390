package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/service"
)

// PortfolioHandler handles HTTP requests for the valuation views.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

type positionResponse struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
}

// portfolioResponse is the JSON response for GET /api/stocks/portfolio/{user_id}.
type portfolioResponse struct {
	Cash       float64            `json:"cash"`
	Positions  []positionResponse `json:"positions"`
	TotalValue float64            `json:"total_value"`
}

type summaryResponse struct {
	Cash             float64 `json:"cash"`
	InvestedValue    float64 `json:"invested_value"`
	TotalValue       float64 `json:"total_value"`
	DayChange        float64 `json:"day_change"`
	DayChangePercent float64 `json:"day_change_percent"`
	PositionCount    int     `json:"position_count"`
}

type sectorResponse struct {
	Sector     string  `json:"sector"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

type sectorsResponse struct {
	Sectors []sectorResponse `json:"sectors"`
}

type metricsResponse struct {
	TotalInvested    float64 `json:"total_invested"`
	TotalSold        float64 `json:"total_sold"`
	CurrentValue     float64 `json:"current_value"`
	ProfitLoss       float64 `json:"profit_loss"`
	ReturnPercentage float64 `json:"return_percentage"`
}

type performanceResponse struct {
	Portfolio []float64       `json:"portfolio"`
	Benchmark []float64       `json:"benchmark"`
	Labels    []string        `json:"labels"`
	Metrics   metricsResponse `json:"metrics"`
}

// Portfolio handles GET /api/stocks/portfolio/{user_id}.
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	v, err := h.portfolioSvc.Portfolio(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildPortfolioResponse(v))
}

// Summary handles GET /api/stocks/summary/{user_id}.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.portfolioSvc.Summary(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summaryResponse{
		Cash:             money(s.Cash),
		InvestedValue:    money(s.InvestedValue),
		TotalValue:       money(s.TotalValue),
		DayChange:        money(s.DayChange),
		DayChangePercent: money(s.DayChangePercent),
		PositionCount:    s.PositionCount,
	})
}

// Sectors handles GET /api/stocks/sectors/{user_id}.
func (h *PortfolioHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	allocs, err := h.portfolioSvc.Sectors(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := sectorsResponse{Sectors: make([]sectorResponse, len(allocs))}
	for i, a := range allocs {
		resp.Sectors[i] = sectorResponse{
			Sector:     a.Sector,
			Value:      money(a.Value),
			Percentage: domain.Float(a.Percentage),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Performance handles GET /api/stocks/performance/{user_id}.
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolioSvc.Performance(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, performanceResponse{
		Portfolio: moneySeries(p.Portfolio),
		Benchmark: moneySeries(p.Benchmark),
		Labels:    p.Labels,
		Metrics: metricsResponse{
			TotalInvested:    money(p.TotalInvested),
			TotalSold:        money(p.TotalSold),
			CurrentValue:     money(p.CurrentValue),
			ProfitLoss:       money(p.ProfitLoss),
			ReturnPercentage: money(p.ReturnPercentage),
		},
	})
}

func buildPortfolioResponse(v domain.Valuation) portfolioResponse {
	positions := make([]positionResponse, len(v.Positions))
	for i, p := range v.Positions {
		positions[i] = positionResponse{
			Symbol:        p.Symbol,
			Quantity:      domain.Float(p.Quantity),
			CurrentPrice:  domain.Float(p.CurrentPrice),
			CurrentValue:  money(p.CurrentValue),
			Change:        domain.Float(p.Change),
			PercentChange: domain.Float(p.PercentChange.Round(4)),
		}
	}
	return portfolioResponse{
		Cash:       money(v.Cash),
		Positions:  positions,
		TotalValue: money(v.TotalValue),
	}
}

func moneySeries(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = money(d)
	}
	return out
}
