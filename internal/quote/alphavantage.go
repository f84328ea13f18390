package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/efreitasn/papertrader/internal/domain"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage reads quotes, daily bars and company sectors from the
// Alpha Vantage query API.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewAlphaVantage creates a provider. An empty baseURL selects the public
// endpoint; a nil client selects http.DefaultClient.
func NewAlphaVantage(apiKey, baseURL string, client *http.Client) *AlphaVantage {
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &AlphaVantage{apiKey: apiKey, baseURL: baseURL, http: client}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

// Quote calls GLOBAL_QUOTE.
func (a *AlphaVantage) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	body, err := a.query(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}})
	if err != nil {
		return domain.Quote{}, err
	}

	var fields map[string]string
	if raw, ok := body["Global Quote"]; ok {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return domain.Quote{}, fmt.Errorf("%w: Global Quote: %v", ErrMalformed, err)
		}
	}
	if len(fields) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	price, err := parseDecimal(fields["05. price"])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: price: %v", ErrMalformed, err)
	}
	if !price.IsPositive() {
		return domain.Quote{}, fmt.Errorf("%w: non-positive price %s", ErrMalformed, price)
	}
	change, err := parseDecimal(fields["09. change"])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: change: %v", ErrMalformed, err)
	}
	pct, err := parseDecimal(strings.TrimSuffix(fields["10. change percent"], "%"))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: change percent: %v", ErrMalformed, err)
	}

	q := domain.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		PercentChange: pct,
	}
	// Optional fields: a bad value leaves the zero value in place.
	q.High, _ = parseDecimal(fields["03. high"])
	q.Low, _ = parseDecimal(fields["04. low"])
	q.Volume, _ = strconv.ParseInt(fields["06. volume"], 10, 64)
	q.Timestamp, _ = time.Parse(time.DateOnly, fields["07. latest trading day"])
	return q, nil
}

// History calls TIME_SERIES_DAILY and keeps the most recent days bars.
func (a *AlphaVantage) History(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	size := "compact" // last 100 bars
	if days > 100 {
		size = "full"
	}
	body, err := a.query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {size},
	})
	if err != nil {
		return nil, err
	}

	raw, ok := body["Time Series (Daily)"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("%w: Time Series (Daily): %v", ErrMalformed, err)
	}

	bars := make([]domain.Bar, 0, len(series))
	for day, v := range series {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrMalformed, day)
		}
		bar := domain.Bar{Date: date}
		if bar.Open, err = parseDecimal(v["1. open"]); err != nil {
			return nil, fmt.Errorf("%w: %s open: %v", ErrMalformed, day, err)
		}
		if bar.High, err = parseDecimal(v["2. high"]); err != nil {
			return nil, fmt.Errorf("%w: %s high: %v", ErrMalformed, day, err)
		}
		if bar.Low, err = parseDecimal(v["3. low"]); err != nil {
			return nil, fmt.Errorf("%w: %s low: %v", ErrMalformed, day, err)
		}
		if bar.Close, err = parseDecimal(v["4. close"]); err != nil {
			return nil, fmt.Errorf("%w: %s close: %v", ErrMalformed, day, err)
		}
		bar.Volume, _ = strconv.ParseInt(v["5. volume"], 10, 64)
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// Sector calls OVERVIEW and returns the company's sector in title case.
func (a *AlphaVantage) Sector(ctx context.Context, symbol string) (string, error) {
	body, err := a.query(ctx, url.Values{"function": {"OVERVIEW"}, "symbol": {symbol}})
	if err != nil {
		return "", err
	}
	var sector string
	if raw, ok := body["Sector"]; ok {
		_ = json.Unmarshal(raw, &sector)
	}
	if sector == "" || sector == "None" {
		return "", fmt.Errorf("%w: no sector for %s", ErrNotFound, symbol)
	}
	return cases.Title(language.English).String(strings.ToLower(sector)), nil
}

// query performs one GET and classifies the envelope. Alpha Vantage
// answers throttled requests with HTTP 200 and a "Note" or "Information"
// field, and unknown symbols with an "Error Message" field.
func (a *AlphaVantage) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("apikey", a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", params.Get("function"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage %s: unexpected status %d", params.Get("function"), resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, ok := body["Note"]; ok {
		return nil, ErrRateLimited
	}
	if _, ok := body["Information"]; ok {
		return nil, ErrRateLimited
	}
	if _, ok := body["Error Message"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, params.Get("symbol"))
	}
	return body, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}
