package domain

import (
	"regexp"
	"strings"
	"sync"
)

// Dots are excluded: they are path separators in the document store's
// holdings map.
var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9-]{0,9}$`)

// NormalizeSymbol trims and upper-cases a ticker symbol. All caches,
// holdings and trade records are keyed by the normalized form.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSymbol reports whether a normalized symbol is well formed.
func ValidSymbol(s string) bool {
	return symbolRegex.MatchString(s)
}

// Sector labels used by the allocation view.
const (
	SectorOther = "Other"
	SectorCash  = "Cash"
)

// SectorRegistry maps symbols to sector labels in a thread-safe manner.
// It is seeded with a small table of well-known tickers and learns new
// entries as they are resolved from the market-data provider.
type SectorRegistry struct {
	mu      sync.RWMutex
	sectors map[string]string
}

// NewSectorRegistry creates a registry seeded with the given entries.
func NewSectorRegistry(seed map[string]string) *SectorRegistry {
	r := &SectorRegistry{
		sectors: make(map[string]string, len(seed)),
	}
	for symbol, sector := range seed {
		r.sectors[NormalizeSymbol(symbol)] = sector
	}
	return r
}

// Register records the sector of a symbol. Safe for concurrent use.
func (r *SectorRegistry) Register(symbol, sector string) {
	if sector == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sectors[NormalizeSymbol(symbol)] = sector
}

// Lookup returns the sector of a symbol. Safe for concurrent use.
func (r *SectorRegistry) Lookup(symbol string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sectors[NormalizeSymbol(symbol)]
	return s, ok
}

// DefaultSectors is the seed table used by the server.
var DefaultSectors = map[string]string{
	"AAPL":  "Technology",
	"MSFT":  "Technology",
	"GOOGL": "Communication Services",
	"GOOG":  "Communication Services",
	"META":  "Communication Services",
	"AMZN":  "Consumer Cyclical",
	"TSLA":  "Consumer Cyclical",
	"NVDA":  "Technology",
	"AMD":   "Technology",
	"INTC":  "Technology",
	"IBM":   "Technology",
	"JPM":   "Financial Services",
	"BAC":   "Financial Services",
	"V":     "Financial Services",
	"MA":    "Financial Services",
	"JNJ":   "Healthcare",
	"PFE":   "Healthcare",
	"UNH":   "Healthcare",
	"XOM":   "Energy",
	"CVX":   "Energy",
	"KO":    "Consumer Defensive",
	"PEP":   "Consumer Defensive",
	"WMT":   "Consumer Defensive",
	"DIS":   "Communication Services",
	"NFLX":  "Communication Services",
	"BA":    "Industrials",
	"CAT":   "Industrials",
	"SPY":   "ETF",
	"QQQ":   "ETF",
}
