package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

// SectorAllocation is the value held in one sector.
type SectorAllocation struct {
	Sector     string
	Value      decimal.Decimal
	Percentage decimal.Decimal // of total portfolio value, 2 places
}

// Summary is the headline view of an account.
type Summary struct {
	Cash             decimal.Decimal
	InvestedValue    decimal.Decimal // Σ position values
	TotalValue       decimal.Decimal
	DayChange        decimal.Decimal // Σ quantity × quote change
	DayChangePercent decimal.Decimal // relative to the previous close value
	PositionCount    int
}

// Performance compares current value with the money put in.
type Performance struct {
	TotalInvested    decimal.Decimal // Σ BUY totals
	TotalSold        decimal.Decimal // Σ SELL totals
	CurrentValue     decimal.Decimal
	ProfitLoss       decimal.Decimal
	ReturnPercentage decimal.Decimal // 0 when nothing was invested
	Portfolio        []decimal.Decimal
	Benchmark        []decimal.Decimal
	Labels           []string
}

// PortfolioService values accounts against live quotes and derives the
// summary, sector and performance views.
type PortfolioService struct {
	accounts AccountRepository
	trades   TradeRepository
	quotes   QuoteSource
	sectors  SectorLookup
	logger   *slog.Logger
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(
	accounts AccountRepository,
	trades TradeRepository,
	quotes QuoteSource,
	sectors SectorLookup,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		accounts: accounts,
		trades:   trades,
		quotes:   quotes,
		sectors:  sectors,
		logger:   logger.With("component", "portfolio"),
	}
}

// Value prices every holding with quantity > 0. A holding whose quote is
// unavailable is skipped: it yields no position and adds nothing to the
// total. Value never fails. Positions are ordered by symbol.
func (s *PortfolioService) Value(ctx context.Context, a *domain.Account) domain.Valuation {
	v := domain.Valuation{
		Cash:       a.Cash,
		Positions:  []domain.Position{},
		TotalValue: a.Cash,
	}
	for _, h := range a.ActiveHoldings() {
		q, err := s.quotes.GetQuote(ctx, h.Symbol)
		if err != nil {
			s.logger.Warn("skipping unquotable position",
				"account_id", a.ID, "symbol", h.Symbol, "error", err)
			continue
		}
		value := h.Quantity.Mul(q.Price)
		v.Positions = append(v.Positions, domain.Position{
			Symbol:        h.Symbol,
			Quantity:      h.Quantity,
			CurrentPrice:  q.Price,
			CurrentValue:  value,
			Change:        q.Change,
			PercentChange: q.PercentChange,
		})
		v.TotalValue = v.TotalValue.Add(value)
	}
	return v
}

// Portfolio loads and values an account.
func (s *PortfolioService) Portfolio(ctx context.Context, accountID string) (domain.Valuation, error) {
	a, err := s.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return domain.Valuation{}, err
	}
	return s.Value(ctx, a), nil
}

// Summary loads and values an account and adds the day change.
func (s *PortfolioService) Summary(ctx context.Context, accountID string) (Summary, error) {
	v, err := s.Portfolio(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(v), nil
}

// Summarize derives the summary view from a valuation.
func Summarize(v domain.Valuation) Summary {
	sum := Summary{
		Cash:          v.Cash,
		TotalValue:    v.TotalValue,
		PositionCount: len(v.Positions),
	}
	for _, p := range v.Positions {
		sum.InvestedValue = sum.InvestedValue.Add(p.CurrentValue)
		sum.DayChange = sum.DayChange.Add(p.Quantity.Mul(p.Change))
	}
	sum.DayChangePercent = domain.Percent(sum.DayChange, v.TotalValue.Sub(sum.DayChange))
	return sum
}

// Sectors loads and values an account and allocates it by sector.
func (s *PortfolioService) Sectors(ctx context.Context, accountID string) ([]SectorAllocation, error) {
	v, err := s.Portfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return AllocateBySector(v, func(symbol string) (string, error) {
		return s.sectors.Sector(ctx, symbol)
	}), nil
}

// AllocateBySector groups position values by sector, adds cash as its own
// sector and sorts by value descending. Equal values keep the order in
// which their sector was first seen. A failed lookup files the position
// under Other.
func AllocateBySector(v domain.Valuation, lookup func(symbol string) (string, error)) []SectorAllocation {
	index := make(map[string]int)
	var out []SectorAllocation
	add := func(sector string, value decimal.Decimal) {
		i, ok := index[sector]
		if !ok {
			i = len(out)
			index[sector] = i
			out = append(out, SectorAllocation{Sector: sector})
		}
		out[i].Value = out[i].Value.Add(value)
	}

	for _, p := range v.Positions {
		sector, err := lookup(p.Symbol)
		if err != nil || sector == "" {
			sector = domain.SectorOther
		}
		add(sector, p.CurrentValue)
	}
	add(domain.SectorCash, v.Cash)

	for i := range out {
		out[i].Percentage = domain.Percent(out[i].Value, v.TotalValue).Round(2)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out
}

// Performance loads the account and its full trade history and compares
// the current value with the total bought.
func (s *PortfolioService) Performance(ctx context.Context, accountID string) (Performance, error) {
	a, err := s.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return Performance{}, err
	}
	trades, err := s.trades.FindTrades(ctx, accountID, domain.TradeFilter{})
	if err != nil {
		return Performance{}, err
	}
	return Measure(s.Value(ctx, a), trades), nil
}

// Measure derives performance from a valuation and the trade history.
func Measure(v domain.Valuation, trades []*domain.Trade) Performance {
	p := Performance{CurrentValue: v.TotalValue}
	for _, t := range trades {
		switch t.Type {
		case domain.TradeBuy:
			p.TotalInvested = p.TotalInvested.Add(t.Total)
		case domain.TradeSell:
			p.TotalSold = p.TotalSold.Add(t.Total)
		}
	}
	p.ProfitLoss = p.CurrentValue.Sub(p.TotalInvested)
	if p.TotalInvested.IsPositive() {
		p.ReturnPercentage = domain.Percent(p.ProfitLoss, p.TotalInvested)
	}
	p.Portfolio = []decimal.Decimal{p.CurrentValue}
	p.Benchmark = []decimal.Decimal{p.TotalInvested}
	p.Labels = []string{"Current"}
	return p
}
