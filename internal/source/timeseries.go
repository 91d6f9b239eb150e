package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// Close is one period-end closing price.
type Close struct {
	Date  time.Time
	Price float64
}

// PriceSeries is implemented by market data clients that expose monthly
// closing prices and a current shares outstanding figure.
type PriceSeries interface {
	MonthlyCloses(ctx context.Context, symbol string, year int) ([]Close, error)
	SharesOutstanding(ctx context.Context, symbol string) (float64, error)
}

var billion = decimal.NewFromInt(1_000_000_000)

// TimeSeries derives a year-end market cap from a price series: the last
// close dated within the year multiplied by shares outstanding.
type TimeSeries struct {
	name   string
	label  string
	series PriceSeries

	nowFunc func() time.Time
}

// NewTimeSeries creates a time-series provider. label is the human readable
// source name used in citations (e.g. "Yahoo Finance").
func NewTimeSeries(name, label string, series PriceSeries) (*TimeSeries, error) {
	if series == nil {
		return nil, eris.Errorf("source: %s: price series is required", name)
	}
	if label == "" {
		label = name
	}
	return &TimeSeries{name: name, label: label, series: series, nowFunc: time.Now}, nil
}

// Name implements Fetcher.
func (t *TimeSeries) Name() string { return t.name }

// FetchPoint implements Fetcher.
func (t *TimeSeries) FetchPoint(ctx context.Context, q Query) (*model.MarketCapPoint, error) {
	closes, err := t.series.MonthlyCloses(ctx, q.Symbol, q.Year)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s monthly closes", t.name)
	}
	last, ok := YearEndClose(closes, q.Year)
	if !ok {
		return nil, nil
	}

	shares, err := t.series.SharesOutstanding(ctx, q.Symbol)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s shares outstanding", t.name)
	}
	if shares <= 0 {
		return nil, nil
	}

	date := last.Date.Format(model.DateLayout)
	return &model.MarketCapPoint{
		Year:            q.Year,
		MarketCap:       model.Billions(MarketCapBillions(last.Price, shares)),
		Citation:        fmt.Sprintf("%s API - %s", t.label, date),
		Notes:           fmt.Sprintf("Calculated from closing price $%.2f on %s", last.Price, date),
		ConfidenceLevel: model.ConfidenceHigh,
		LastVerified:    t.nowFunc().Format(model.DateLayout),
		SourceType:      model.SourceTypeAPI,
		SourceKind:      model.SourceKindAPI,
	}, nil
}

// YearEndClose returns the latest positive close dated within year: the
// December close when present, otherwise the nearest earlier month.
func YearEndClose(closes []Close, year int) (Close, bool) {
	var (
		best  Close
		found bool
	)
	for _, c := range closes {
		if c.Date.Year() != year || c.Price <= 0 {
			continue
		}
		if !found || c.Date.After(best.Date) {
			best = c
			found = true
		}
	}
	return best, found
}

// MarketCapBillions computes price * shares / 1e9 rounded to 2 decimals.
func MarketCapBillions(price, shares float64) float64 {
	v := decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(shares)).
		Div(billion).
		Round(2)
	f, _ := v.Float64()
	return f
}

// normalizeSymbol upper-cases and trims a ticker for map lookups.
func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Meter books calls against a per-source quota.
type Meter interface {
	Wait(ctx context.Context, source string) error
	Record(source string)
}

// Metered wraps prices so every call is booked under source on m. The
// filing provider uses it to charge its price lookups to the market data
// source that serves them.
func Metered(prices PriceSeries, m Meter, source string) PriceSeries {
	if m == nil {
		return prices
	}
	return &meteredPrices{prices: prices, meter: m, source: source}
}

type meteredPrices struct {
	prices PriceSeries
	meter  Meter
	source string
}

func (p *meteredPrices) MonthlyCloses(ctx context.Context, symbol string, year int) ([]Close, error) {
	if err := p.meter.Wait(ctx, p.source); err != nil {
		return nil, eris.Wrapf(err, "source: %s: wait", p.source)
	}
	defer p.meter.Record(p.source)
	return p.prices.MonthlyCloses(ctx, symbol, year)
}

func (p *meteredPrices) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	if err := p.meter.Wait(ctx, p.source); err != nil {
		return 0, eris.Wrapf(err, "source: %s: wait", p.source)
	}
	defer p.meter.Record(p.source)
	return p.prices.SharesOutstanding(ctx, symbol)
}
