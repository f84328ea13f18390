package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/efreitasn/papertrader/internal/domain"
)

// ClientConfig tunes upstream calls.
type ClientConfig struct {
	MaxRetries int           // extra attempts after a rate-limited response
	Timeout    time.Duration // per attempt, excluding the gate wait
}

// Client is the market-data entry point used by the services. Lookups go
// cache first; concurrent misses for the same symbol share one upstream
// call, and every upstream call passes through the gate.
type Client struct {
	provider Provider
	quotes   *Cache[domain.Quote]
	history  *Cache[[]domain.Bar]
	gate     *Gate
	sectors  *domain.SectorRegistry
	group    singleflight.Group
	cfg      ClientConfig
	logger   *slog.Logger
}

// NewClient wires a provider to its cache and gate. Historical series
// are cached with the same TTL, size bound and clock as quotes.
func NewClient(provider Provider, quotes *Cache[domain.Quote], gate *Gate, sectors *domain.SectorRegistry, cfg ClientConfig, logger *slog.Logger) *Client {
	if sectors == nil {
		sectors = domain.NewSectorRegistry(nil)
	}
	return &Client{
		provider: provider,
		quotes:   quotes,
		history:  NewCache[[]domain.Bar](quotes.ttl, quotes.maxSize, quotes.clock),
		gate:     gate,
		sectors:  sectors,
		cfg:      cfg,
		logger:   logger.With("component", "quote", "provider", provider.Name()),
	}
}

// GetQuote returns the quote for symbol. Every failure wraps
// domain.ErrQuoteUnavailable.
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	sym := domain.NormalizeSymbol(symbol)
	if !domain.ValidSymbol(sym) {
		return domain.Quote{}, fmt.Errorf("%w: malformed symbol %q", domain.ErrQuoteUnavailable, symbol)
	}
	if q, ok := c.quotes.Get(sym); ok {
		return q, nil
	}

	v, err, _ := c.group.Do("quote:"+sym, func() (any, error) {
		// Another flight may have filled the cache while this one queued.
		if q, ok := c.quotes.Get(sym); ok {
			return q, nil
		}
		q, err := withRetry(ctx, c, "quote", func(ctx context.Context) (domain.Quote, error) {
			return c.provider.Quote(ctx, sym)
		})
		if err != nil {
			return nil, err
		}
		c.quotes.Set(sym, q)
		return q, nil
	})
	if err != nil {
		c.logger.Warn("quote unavailable", "symbol", sym, "error", err)
		return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, sym, err)
	}
	return v.(domain.Quote), nil
}

// GetHistory returns up to days daily bars for symbol, oldest first.
func (c *Client) GetHistory(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	sym := domain.NormalizeSymbol(symbol)
	if !domain.ValidSymbol(sym) {
		return nil, fmt.Errorf("%w: malformed symbol %q", domain.ErrQuoteUnavailable, symbol)
	}
	key := sym + ":" + strconv.Itoa(days)
	if bars, ok := c.history.Get(key); ok {
		return bars, nil
	}

	v, err, _ := c.group.Do("history:"+key, func() (any, error) {
		if bars, ok := c.history.Get(key); ok {
			return bars, nil
		}
		bars, err := withRetry(ctx, c, "history", func(ctx context.Context) ([]domain.Bar, error) {
			return c.provider.History(ctx, sym, days)
		})
		if err != nil {
			return nil, err
		}
		c.history.Set(key, bars)
		return bars, nil
	})
	if err != nil {
		c.logger.Warn("history unavailable", "symbol", sym, "days", days, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, sym, err)
	}
	return v.([]domain.Bar), nil
}

// Sector classifies symbol from the registry, asking the provider for
// unknown symbols when it can. A symbol the provider has no sector for
// is registered as Other so it isn't asked again.
func (c *Client) Sector(ctx context.Context, symbol string) (string, error) {
	sym := domain.NormalizeSymbol(symbol)
	if s, ok := c.sectors.Lookup(sym); ok {
		return s, nil
	}
	src, ok := c.provider.(SectorSource)
	if !ok {
		return "", fmt.Errorf("no sector for %s", sym)
	}

	v, err, _ := c.group.Do("sector:"+sym, func() (any, error) {
		return withRetry(ctx, c, "sector", func(ctx context.Context) (string, error) {
			return src.Sector(ctx, sym)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.sectors.Register(sym, domain.SectorOther)
		}
		return "", err
	}
	sector := v.(string)
	c.sectors.Register(sym, sector)
	return sector, nil
}

// StartSweeper purges expired quotes and series every interval until ctx
// is cancelled.
func (c *Client) StartSweeper(ctx context.Context, interval time.Duration) {
	c.quotes.StartSweeper(ctx, interval)
	c.history.StartSweeper(ctx, interval)
}

// withRetry runs fn behind the gate, retrying rate-limited attempts up to
// MaxRetries times. Other errors are returned at once.
func withRetry[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err = c.gate.Wait(ctx, c.provider.Name()); err != nil {
			return result, err
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if c.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		}
		result, err = fn(callCtx)
		cancel()

		if err == nil || !errors.Is(err, ErrRateLimited) {
			return result, err
		}
		c.logger.Warn("provider rate limited", "op", op, "attempt", attempt+1)
	}
	return result, err
}
