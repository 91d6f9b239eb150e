// Package alphavantage is a client for the Alpha Vantage stock data API.
package alphavantage

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/TextQLLabs/market-cap-tracker/internal/fetcher"
	"github.com/TextQLLabs/market-cap-tracker/internal/resilience"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

var (
	// ErrRateLimited is returned when the API answers with a throttling note
	// instead of data.
	ErrRateLimited = eris.New("alphavantage: rate limited")
	// ErrNotFound is returned when the API does not know the symbol.
	ErrNotFound = eris.New("alphavantage: symbol not found")
)

// MonthlyBar is one month of the TIME_SERIES_MONTHLY response.
type MonthlyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type monthlyResponse struct {
	Series       map[string]MonthlyBar `json:"Monthly Time Series"`
	ErrorMessage string                `json:"Error Message"`
	Note         string                `json:"Note"`
	Information  string                `json:"Information"`
}

// Overview is the subset of the OVERVIEW response the tracker uses.
type Overview struct {
	Symbol            string `json:"Symbol"`
	Name              string `json:"Name"`
	CIK               string `json:"CIK"`
	SharesOutstanding string `json:"SharesOutstanding"`
	MarketCap         string `json:"MarketCapitalization"`
	ErrorMessage      string `json:"Error Message"`
	Note              string `json:"Note"`
	Information       string `json:"Information"`
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL. An empty u keeps the
// default.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithGetter overrides the HTTP fetcher.
func WithGetter(g fetcher.Getter) Option {
	return func(c *Client) {
		c.getter = g
	}
}

// Client calls the Alpha Vantage query endpoint. It implements
// source.PriceSeries.
type Client struct {
	apiKey  string
	baseURL string
	getter  fetcher.Getter
}

var _ source.PriceSeries = (*Client)(nil)

// NewClient creates an Alpha Vantage client. An API key is required.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, eris.New("alphavantage: api key is required")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	if c.getter == nil {
		c.getter = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
	}
	return c, nil
}

func (c *Client) url(function, symbol string) string {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	return c.baseURL + "?" + q.Encode()
}

// Monthly returns the full monthly series for symbol keyed by date.
func (c *Client) Monthly(ctx context.Context, symbol string) (map[string]MonthlyBar, error) {
	resp, err := fetcher.GetJSON[monthlyResponse](ctx, c.getter, c.url("TIME_SERIES_MONTHLY", symbol), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "alphavantage: monthly %s", symbol)
	}
	if err := apiError(resp.ErrorMessage, resp.Note, resp.Information); err != nil {
		return nil, eris.Wrapf(err, "alphavantage: monthly %s", symbol)
	}
	return resp.Series, nil
}

// MonthlyCloses returns the month-end closes dated within year, oldest first.
func (c *Client) MonthlyCloses(ctx context.Context, symbol string, year int) ([]source.Close, error) {
	series, err := c.Monthly(ctx, symbol)
	if err != nil {
		return nil, err
	}
	var out []source.Close
	for date, bar := range series {
		d, err := time.Parse(time.DateOnly, date)
		if err != nil || d.Year() != year {
			continue
		}
		price, err := strconv.ParseFloat(bar.Close, 64)
		if err != nil {
			continue
		}
		out = append(out, source.Close{Date: d, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// GetOverview returns company fundamentals for symbol.
func (c *Client) GetOverview(ctx context.Context, symbol string) (*Overview, error) {
	ov, err := fetcher.GetJSON[Overview](ctx, c.getter, c.url("OVERVIEW", symbol), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "alphavantage: overview %s", symbol)
	}
	if err := apiError(ov.ErrorMessage, ov.Note, ov.Information); err != nil {
		return nil, eris.Wrapf(err, "alphavantage: overview %s", symbol)
	}
	if ov.Symbol == "" {
		return nil, eris.Wrapf(ErrNotFound, "overview %s", symbol)
	}
	return ov, nil
}

// SharesOutstanding returns the current shares outstanding for symbol.
func (c *Client) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	ov, err := c.GetOverview(ctx, symbol)
	if err != nil {
		return 0, err
	}
	shares, err := strconv.ParseFloat(ov.SharesOutstanding, 64)
	if err != nil || shares <= 0 {
		return 0, eris.Errorf("alphavantage: invalid shares outstanding %q for %s", ov.SharesOutstanding, symbol)
	}
	return shares, nil
}

// apiError maps the error fields Alpha Vantage returns with a 200 status.
func apiError(errMsg, note, info string) error {
	switch {
	case errMsg != "":
		return eris.Wrap(ErrNotFound, errMsg)
	case note != "":
		return resilience.NewTransientError(eris.Wrap(ErrRateLimited, note), http.StatusTooManyRequests)
	case info != "":
		return resilience.NewTransientError(eris.Wrap(ErrRateLimited, info), http.StatusTooManyRequests)
	}
	return nil
}
