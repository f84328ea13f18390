package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// writeTimeoutGateSlots is how many gated upstream calls the default
// WRITE_TIMEOUT leaves room for.
const writeTimeoutGateSlots = 10

// Store kinds.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Quote providers.
const (
	ProviderAlphaVantage = "alphavantage"
	ProviderPolygon      = "polygon"
)

// Config holds all runtime configuration for the paper trader.
type Config struct {
	Port     int
	LogLevel string

	Store         string
	MongoURI      string
	MongoDatabase string

	QuoteProvider      string
	QuoteAPIKey        string // key for the selected provider
	QuoteBaseURL       string // empty selects the provider's public endpoint
	QuoteCacheTTL      time.Duration
	QuoteCacheSize     int
	QuoteMinInterval   time.Duration
	QuoteTimeout       time.Duration
	QuoteMaxRetries    int
	CacheSweepInterval time.Duration

	StartingCash   decimal.Decimal
	PriceTolerance decimal.Decimal

	GeminiAPIKey  string // empty disables the advice assistant
	AdviceModel   string
	AdviceHistory int

	CORSOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. Variables may also come from a .env file in the
// working directory; real environment variables take precedence. It
// returns an error for any invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getStr("MONGO_DATABASE", "finance_app"),
		QuoteBaseURL:  os.Getenv("QUOTE_BASE_URL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		AdviceModel:   getStr("ADVICE_MODEL", "gemini-2.0-flash"),
		CORSOrigins:   splitList(getStr("CORS_ORIGIN", "http://localhost:5173")),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg.LogLevel = getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	cfg.Store = getStr("STORE", StoreMemory)
	switch cfg.Store {
	case StoreMemory:
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when STORE=%s", StoreMongo)
		}
	default:
		return nil, fmt.Errorf("invalid STORE: %q, must be one of: %s, %s", cfg.Store, StoreMemory, StoreMongo)
	}

	cfg.QuoteProvider = getStr("QUOTE_PROVIDER", ProviderAlphaVantage)
	switch cfg.QuoteProvider {
	case ProviderAlphaVantage:
		cfg.QuoteAPIKey = os.Getenv("ALPHA_VANTAGE_API_KEY")
		if cfg.QuoteAPIKey == "" {
			return nil, fmt.Errorf("ALPHA_VANTAGE_API_KEY is required when QUOTE_PROVIDER=%s", ProviderAlphaVantage)
		}
	case ProviderPolygon:
		cfg.QuoteAPIKey = os.Getenv("POLYGON_API_KEY")
		if cfg.QuoteAPIKey == "" {
			return nil, fmt.Errorf("POLYGON_API_KEY is required when QUOTE_PROVIDER=%s", ProviderPolygon)
		}
	default:
		return nil, fmt.Errorf("invalid QUOTE_PROVIDER: %q, must be one of: %s, %s",
			cfg.QuoteProvider, ProviderAlphaVantage, ProviderPolygon)
	}

	if cfg.QuoteCacheTTL, err = getDuration("QUOTE_CACHE_TTL", 300*time.Second); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_TTL: %w", err)
	}
	if cfg.QuoteCacheSize, err = getInt("QUOTE_CACHE_SIZE", 100); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_SIZE: %w", err)
	}
	if cfg.QuoteCacheSize < 1 {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_SIZE: %d, must be at least 1", cfg.QuoteCacheSize)
	}
	if cfg.QuoteMinInterval, err = getDuration("QUOTE_MIN_INTERVAL", 12*time.Second); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_MIN_INTERVAL: %w", err)
	}
	if cfg.QuoteTimeout, err = getDuration("QUOTE_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}
	if cfg.QuoteMaxRetries, err = getInt("QUOTE_MAX_RETRIES", 2); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_MAX_RETRIES: %w", err)
	}
	if cfg.QuoteMaxRetries < 0 {
		return nil, fmt.Errorf("invalid QUOTE_MAX_RETRIES: %d, must not be negative", cfg.QuoteMaxRetries)
	}
	if cfg.CacheSweepInterval, err = getDuration("CACHE_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, fmt.Errorf("invalid CACHE_SWEEP_INTERVAL: %w", err)
	}

	if cfg.StartingCash, err = getDecimal("STARTING_CASH", decimal.NewFromInt(25000)); err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if cfg.StartingCash.IsNegative() {
		return nil, fmt.Errorf("invalid STARTING_CASH: %s, must not be negative", cfg.StartingCash)
	}
	if cfg.PriceTolerance, err = getDecimal("PRICE_TOLERANCE", decimal.RequireFromString("0.05")); err != nil {
		return nil, fmt.Errorf("invalid PRICE_TOLERANCE: %w", err)
	}
	if !cfg.PriceTolerance.IsPositive() || !cfg.PriceTolerance.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid PRICE_TOLERANCE: %s, must be between 0 and 1 exclusive", cfg.PriceTolerance)
	}

	if cfg.AdviceHistory, err = getInt("ADVICE_HISTORY", 5); err != nil {
		return nil, fmt.Errorf("invalid ADVICE_HISTORY: %w", err)
	}
	if cfg.AdviceHistory < 0 {
		return nil, fmt.Errorf("invalid ADVICE_HISTORY: %d, must not be negative", cfg.AdviceHistory)
	}

	if cfg.ReadTimeout, err = getDuration("READ_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	// A valuation can queue one gate interval per uncached symbol.
	writeDefault := max(30*time.Second, cfg.QuoteMinInterval*writeTimeoutGateSlots)
	if cfg.WriteTimeout, err = getDuration("WRITE_TIMEOUT", writeDefault); err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = getDuration("IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// AdviceEnabled reports whether a model key is configured.
func (c *Config) AdviceEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

// splitList splits a comma-separated value and drops empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
