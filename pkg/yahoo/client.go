// Package yahoo is a client for the Yahoo Finance chart and quote summary
// endpoints.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/TextQLLabs/market-cap-tracker/internal/fetcher"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData is returned when Yahoo has no result for a symbol.
var ErrNoData = eris.New("yahoo: no data")

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

// ChartResult is one symbol's bars from the v8 chart endpoint.
type ChartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				SharesOutstanding rawValue `json:"sharesOutstanding"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
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

// Client reads Yahoo Finance market data. It implements source.PriceSeries.
type Client struct {
	baseURL string
	getter  fetcher.Getter
}

var _ source.PriceSeries = (*Client)(nil)

// NewClient creates a Yahoo Finance client.
func NewClient(opts ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	if c.getter == nil {
		c.getter = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
	}
	return c
}

// Chart returns monthly bars for symbol between from and to.
func (c *Client) Chart(ctx context.Context, symbol string, from, to time.Time) (*ChartResult, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(from.Unix()))
	q.Set("period2", fmt.Sprint(to.Unix()))
	q.Set("interval", "1mo")
	q.Set("events", "history")
	u := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()

	resp, err := fetcher.GetJSON[chartResponse](ctx, c.getter, u, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: chart %s", symbol)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, eris.Errorf("yahoo: chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, eris.Wrapf(ErrNoData, "chart %s", symbol)
	}
	return &resp.Chart.Result[0], nil
}

// MonthlyCloses returns one close per monthly bar in year, dated at the end
// of the bar's month. Bars without a close are skipped.
func (c *Client) MonthlyCloses(ctx context.Context, symbol string, year int) ([]source.Close, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	res, err := c.Chart(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := res.Indicators.Quote[0].Close

	var out []source.Close
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		start := time.Unix(ts, 0).UTC()
		if start.Year() != year {
			continue
		}
		out = append(out, source.Close{Date: monthEnd(start), Price: *closes[i]})
	}
	return out, nil
}

// SharesOutstanding returns the current shares outstanding for symbol.
func (c *Client) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	u := c.baseURL + "/v10/finance/quoteSummary/" + url.PathEscape(symbol) + "?modules=defaultKeyStatistics"
	resp, err := fetcher.GetJSON[summaryResponse](ctx, c.getter, u, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "yahoo: quote summary %s", symbol)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return 0, eris.Errorf("yahoo: quote summary %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return 0, eris.Wrapf(ErrNoData, "quote summary %s", symbol)
	}
	shares := resp.QuoteSummary.Result[0].DefaultKeyStatistics.SharesOutstanding.Raw
	if shares <= 0 {
		return 0, eris.Wrapf(ErrNoData, "shares outstanding %s", symbol)
	}
	return shares, nil
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
