package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/xbrl"
)

// FactsSource returns the XBRL company facts for a registrant.
type FactsSource interface {
	CompanyFacts(ctx context.Context, cik string) (*xbrl.CompanyFacts, error)
}

// Filing computes market cap from official annual filings: the cover page
// shares outstanding reported for the fiscal year, times the year-end close.
// Years that predate structured XBRL data yield no result and are left for
// manual extraction.
type Filing struct {
	facts  FactsSource
	prices PriceSeries

	nowFunc func() time.Time
}

// NewFiling creates an official-filing provider.
func NewFiling(facts FactsSource, prices PriceSeries) (*Filing, error) {
	if facts == nil {
		return nil, eris.New("source: sec_edgar: facts source is required")
	}
	if prices == nil {
		return nil, eris.New("source: sec_edgar: price series is required")
	}
	return &Filing{facts: facts, prices: prices, nowFunc: time.Now}, nil
}

// Name implements Fetcher.
func (f *Filing) Name() string { return NameSECEdgar }

// RequiresFilingID marks the provider as unusable without a CIK.
func (f *Filing) RequiresFilingID() bool { return true }

// FetchPoint implements Fetcher.
func (f *Filing) FetchPoint(ctx context.Context, q Query) (*model.MarketCapPoint, error) {
	if q.FilingID == "" {
		return nil, nil
	}

	facts, err := f.facts.CompanyFacts(ctx, q.FilingID)
	if err != nil {
		return nil, eris.Wrap(err, "source: sec_edgar company facts")
	}
	fv, ok := facts.AnnualValue(xbrl.NamespaceDEI, xbrl.SharesOutstandingFact, xbrl.UnitShares, q.Year)
	if !ok {
		return nil, nil
	}
	shares, ok := fv.Float()
	if !ok || shares <= 0 {
		return nil, nil
	}

	closes, err := f.prices.MonthlyCloses(ctx, q.Symbol, q.Year)
	if err != nil {
		return nil, eris.Wrap(err, "source: sec_edgar year-end price")
	}
	last, ok := YearEndClose(closes, q.Year)
	if !ok {
		return nil, nil
	}

	return &model.MarketCapPoint{
		Year:      q.Year,
		MarketCap: model.Billions(MarketCapBillions(last.Price, shares)),
		Citation:  fmt.Sprintf("SEC %s %s filed %s", fv.Form, fv.Accn, fv.Filed),
		Notes: fmt.Sprintf("%.0f shares outstanding per %s cover page x closing price $%.2f on %s",
			shares, fv.Form, last.Price, last.Date.Format(model.DateLayout)),
		ConfidenceLevel: model.ConfidenceHigh,
		LastVerified:    f.nowFunc().Format(model.DateLayout),
		SourceType:      model.SourceTypeSEC,
		SourceKind:      model.SourceKindSEC,
	}, nil
}
