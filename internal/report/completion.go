// Package report computes dataset coverage statistics.
package report

import (
	"math"
	"sort"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// CompanyCompletion is the coverage of one company's history.
type CompanyCompletion struct {
	Ticker         string  `json:"ticker"`
	Name           string  `json:"name"`
	ExpectedYears  int     `json:"expected_years"`
	ActualCount    int     `json:"actual_count"` // numeric entries
	MissingCount   int     `json:"missing_count"`
	Interpolated   int     `json:"interpolated_count"`
	Incomplete     int     `json:"incomplete_count"`
	CompletionRate float64 `json:"completion_rate"` // percent, one decimal
}

// Overall aggregates every company.
type Overall struct {
	Companies      int     `json:"companies"`
	TotalExpected  int     `json:"total_expected"`
	TotalActual    int     `json:"total_actual"`
	TotalMissing   int     `json:"total_missing"`
	Interpolated   int     `json:"interpolated_count"`
	Incomplete     int     `json:"incomplete_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// Completion is the full coverage report, companies ordered by completion
// rate ascending so the least complete come first.
type Completion struct {
	Through   int                 `json:"through"`
	Companies []CompanyCompletion `json:"companies"`
	Overall   Overall             `json:"overall"`
}

// Compute builds the coverage report for every company, expecting one entry
// per year from first_public_year through the given year.
func Compute(ds *model.Dataset, through int) Completion {
	out := Completion{Through: through}
	for _, ticker := range ds.Tickers() {
		c := ds.Companies[ticker]
		cc := companyCompletion(ticker, c, through)
		out.Companies = append(out.Companies, cc)

		out.Overall.Companies++
		out.Overall.TotalExpected += cc.ExpectedYears
		out.Overall.TotalActual += cc.ActualCount
		out.Overall.TotalMissing += cc.MissingCount
		out.Overall.Interpolated += cc.Interpolated
		out.Overall.Incomplete += cc.Incomplete
	}
	out.Overall.CompletionRate = rate(out.Overall.TotalActual, out.Overall.TotalExpected)

	sort.SliceStable(out.Companies, func(i, j int) bool {
		return out.Companies[i].CompletionRate < out.Companies[j].CompletionRate
	})
	return out
}

func companyCompletion(ticker string, c *model.CompanyRecord, through int) CompanyCompletion {
	cc := CompanyCompletion{Ticker: ticker, Name: c.Name}
	if c.FirstPublicYear > 0 && through >= c.FirstPublicYear {
		cc.ExpectedYears = through - c.FirstPublicYear + 1
	}

	present := make(map[int]bool, len(c.History))
	for _, p := range c.History {
		if p.MarketCap.IsNumeric() {
			cc.ActualCount++
		}
		if p.IsInterpolated() {
			cc.Interpolated++
		}
		if p.MarketCap.Sentinel() == model.SentinelIncomplete {
			cc.Incomplete++
		}
		if p.Year >= c.FirstPublicYear && p.Year <= through {
			present[p.Year] = true
		}
	}
	cc.MissingCount = cc.ExpectedYears - len(present)
	cc.CompletionRate = rate(cc.ActualCount, cc.ExpectedYears)
	return cc
}

func rate(actual, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return math.Round(float64(actual)/float64(expected)*1000) / 10
}

// MissingYears returns the years from first_public_year through the given
// year that lack a usable value: no entry, an interpolated entry, or an
// incomplete entry. PRIVATE years are considered resolved.
func MissingYears(c *model.CompanyRecord, through int) []int {
	if c == nil || c.FirstPublicYear <= 0 {
		return nil
	}
	have := make(map[int]bool, len(c.History))
	for _, p := range c.History {
		if p.IsInterpolated() || p.IsIncomplete() {
			continue
		}
		have[p.Year] = true
	}
	var years []int
	for y := c.FirstPublicYear; y <= through; y++ {
		if !have[y] {
			years = append(years, y)
		}
	}
	return years
}
