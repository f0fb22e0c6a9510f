// Package vci implements provider.MarketData against the VCI market data
// HTTP API. Requests are paced with a token-bucket limiter so the upstream
// per-minute quota is respected regardless of caller behavior.
package vci

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
	"github.com/viktsys/stockcollect/provider"
)

const dateLayout = "2006-01-02"

// Client talks to the VCI API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

var _ provider.MarketData = (*Client)(nil)

// NewClient builds a Client from configuration. A nil httpClient uses a
// client with the configured timeout.
func NewClient(cfg config.ProviderConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

type listingDTO struct {
	Symbol         string `json:"symbol"`
	OrganName      string `json:"organ_name"`
	OrganShortName string `json:"organ_short_name"`
	Exchange       string `json:"exchange"`
	Industry       string `json:"icb_name"`
}

type barDTO struct {
	Time   string          `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type statementDTO struct {
	Type    string                     `json:"type"`
	Year    int                        `json:"year"`
	Quarter int                        `json:"quarter"`
	Items   map[string]decimal.Decimal `json:"items"`
}

// Listings returns all listed symbols.
func (c *Client) Listings(ctx context.Context) ([]provider.ListingRecord, error) {
	var body struct {
		Data []listingDTO `json:"data"`
	}
	if err := c.get(ctx, "listings", "/listing/all", nil, &body); err != nil {
		return nil, err
	}

	out := make([]provider.ListingRecord, 0, len(body.Data))
	for _, d := range body.Data {
		if d.Symbol == "" {
			continue
		}
		out = append(out, provider.ListingRecord{
			Symbol:         d.Symbol,
			OrganName:      d.OrganName,
			OrganShortName: d.OrganShortName,
			Exchange:       d.Exchange,
			Industry:       d.Industry,
		})
	}
	return out, nil
}

// Prices returns daily OHLCV bars for symbol within [from, to].
func (c *Client) Prices(ctx context.Context, symbol string, from, to time.Time) ([]provider.PriceBar, error) {
	return c.history(ctx, "prices", symbol, from, to)
}

// Index returns daily bars for a market index. The VCI API serves indices
// through the same history endpoint as securities.
func (c *Client) Index(ctx context.Context, code string, from, to time.Time) ([]provider.PriceBar, error) {
	return c.history(ctx, "index", code, from, to)
}

func (c *Client) history(ctx context.Context, op, symbol string, from, to time.Time) ([]provider.PriceBar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start", from.Format(dateLayout))
	q.Set("end", to.Format(dateLayout))
	q.Set("interval", "1D")

	var body struct {
		Data []barDTO `json:"data"`
	}
	if err := c.get(ctx, op, "/quote/history", q, &body); err != nil {
		return nil, err
	}

	bars := make([]provider.PriceBar, 0, len(body.Data))
	for _, d := range body.Data {
		day, err := time.Parse(dateLayout, d.Time)
		if err != nil {
			return nil, &provider.Error{Kind: provider.KindTransient, Op: op,
				Err: fmt.Errorf("parse time %q: %w", d.Time, err)}
		}
		bars = append(bars, provider.PriceBar{
			TradeDate: day,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    d.Volume,
		})
	}
	return bars, nil
}

// Financials returns income statements and balance sheets for symbol.
func (c *Client) Financials(ctx context.Context, symbol string, period provider.Period) ([]provider.Statement, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("period", string(period))

	var body struct {
		Data []statementDTO `json:"data"`
	}
	if err := c.get(ctx, "financials", "/finance/statements", q, &body); err != nil {
		return nil, err
	}

	out := make([]provider.Statement, 0, len(body.Data))
	for _, d := range body.Data {
		if d.Type != models.StatementIncome && d.Type != models.StatementBalance {
			continue
		}
		out = append(out, provider.Statement{
			StatementType: d.Type,
			Year:          d.Year,
			Quarter:       d.Quarter,
			Items:         d.Items,
		})
	}
	return out, nil
}

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, op, path string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Op: op, Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &provider.Error{Kind: provider.KindTransient, Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return &provider.Error{Kind: classifyStatus(res.StatusCode), Op: op, Status: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &provider.Error{Kind: provider.KindTransient, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func classifyStatus(status int) provider.ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return provider.KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.KindAuthFailed
	default:
		// 429 and 5xx are retryable; remaining 4xx are treated the same
		// way so an upstream glitch never kills a whole run.
		return provider.KindTransient
	}
}
