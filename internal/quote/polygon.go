package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

const polygonBaseURL = "https://api.polygon.io"

// Polygon reads quotes and daily bars from Polygon.io aggregates. The
// quote is derived from the previous trading day's bar.
type Polygon struct {
	apiKey  string
	baseURL string
	http    *http.Client
	clock   Clock
}

// NewPolygon creates a provider. An empty baseURL selects the public
// endpoint; a nil client selects http.DefaultClient.
func NewPolygon(apiKey, baseURL string, client *http.Client, clock Clock) *Polygon {
	if baseURL == "" {
		baseURL = polygonBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Polygon{apiKey: apiKey, baseURL: baseURL, http: client, clock: clock}
}

func (p *Polygon) Name() string { return "polygon" }

// Quote reads /v2/aggs/ticker/{symbol}/prev. Price is the close, change
// is close minus open and the percentage is relative to the open.
func (p *Polygon) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var body any
	if err := p.get(ctx, "/v2/aggs/ticker/"+url.PathEscape(symbol)+"/prev", url.Values{"adjusted": {"true"}}, &body); err != nil {
		return domain.Quote{}, err
	}

	count, err := pathFloat(body, "$.resultsCount")
	if err != nil || count == 0 {
		return domain.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	open, err := pathFloat(body, "$.results[0].o")
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: open: %v", ErrMalformed, err)
	}
	closing, err := pathFloat(body, "$.results[0].c")
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: close: %v", ErrMalformed, err)
	}
	if open == 0 {
		return domain.Quote{}, fmt.Errorf("%w: zero open for %s", ErrMalformed, symbol)
	}
	if closing <= 0 {
		return domain.Quote{}, fmt.Errorf("%w: non-positive close for %s", ErrMalformed, symbol)
	}

	o := decimal.NewFromFloat(open)
	c := decimal.NewFromFloat(closing)
	change := c.Sub(o)
	q := domain.Quote{
		Symbol:        symbol,
		Price:         c,
		Change:        change,
		PercentChange: domain.Percent(change, o),
	}
	if h, err := pathFloat(body, "$.results[0].h"); err == nil {
		q.High = decimal.NewFromFloat(h)
	}
	if l, err := pathFloat(body, "$.results[0].l"); err == nil {
		q.Low = decimal.NewFromFloat(l)
	}
	if v, err := pathFloat(body, "$.results[0].v"); err == nil {
		q.Volume = int64(v)
	}
	if t, err := pathFloat(body, "$.results[0].t"); err == nil {
		q.Timestamp = time.UnixMilli(int64(t)).UTC()
	}
	return q, nil
}

type polygonAgg struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"`
}

// History reads daily range aggregates covering enough calendar days to
// contain the requested number of trading days.
func (p *Polygon) History(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	if days <= 0 {
		days = 30
	}
	to := p.clock.Now().UTC()
	from := to.AddDate(0, 0, -(days*7/5 + 7))

	var body struct {
		ResultsCount int          `json:"resultsCount"`
		Results      []polygonAgg `json:"results"`
	}
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(symbol), from.Format(time.DateOnly), to.Format(time.DateOnly))
	params := url.Values{"adjusted": {"true"}, "sort": {"asc"}, "limit": {"5000"}}
	if err := p.get(ctx, path, params, &body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	bars := make([]domain.Bar, 0, len(body.Results))
	for _, r := range body.Results {
		t := time.UnixMilli(r.Time).UTC()
		bars = append(bars, domain.Bar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   decimal.NewFromFloat(r.Open),
			High:   decimal.NewFromFloat(r.High),
			Low:    decimal.NewFromFloat(r.Low),
			Close:  decimal.NewFromFloat(r.Close),
			Volume: int64(r.Volume),
		})
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// get performs one GET and decodes the JSON body into out. Polygon
// reports throttling as HTTP 429 and errors as "status": "ERROR".
func (p *Polygon) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("apiKey", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("polygon %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("polygon %s: unexpected status %d", path, resp.StatusCode)
	}

	raw := json.RawMessage{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &status); err == nil && status.Status == "ERROR" {
		return fmt.Errorf("%w: %s", ErrRateLimited, status.Error)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// pathFloat evaluates a JSONPath expression against a decoded document
// and returns a number.
func pathFloat(doc any, path string) (float64, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0, err
	}
	// jsonpath may wrap a single match in a list.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return 0, fmt.Errorf("%s: no match", path)
		}
		v = list[0]
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s: not a number: %v", path, v)
	}
	return f, nil
}
