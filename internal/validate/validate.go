// Package validate screens market cap histories for implausible values.
// Validation is advisory: it reports issues and never alters the data.
package validate

import (
	"fmt"
	"sort"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// Rule names reported on issues.
const (
	RuleGrowthRate   = "growth_rate"
	RuleMinimumValue = "minimum_value"
	RuleCeiling      = "historical_context"
)

// Thresholds, in billions of USD.
const (
	MaxGrowthRatio = 10.0
	MinGrowthRatio = 0.1
	MinimumValue   = 0.01
	CeilingValue   = 10000.0
)

// Report is the outcome of validating a set of points.
type Report struct {
	Issues []model.ValidationIssue `json:"issues"`
}

// OK reports whether no rule failed.
func (r Report) OK() bool { return len(r.Issues) == 0 }

// ByYear groups issues by the year of the offending point.
func (r Report) ByYear() map[int][]model.ValidationIssue {
	out := make(map[int][]model.ValidationIssue)
	for _, is := range r.Issues {
		out[is.Year] = append(out[is.Year], is)
	}
	return out
}

// Years returns the sorted years that have at least one issue.
func (r Report) Years() []int {
	by := r.ByYear()
	years := make([]int, 0, len(by))
	for y := range by {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Validate applies every rule to every point. Neighbors for the growth rule
// are the points whose year is exactly one less or one more, looked up by
// year number within the same slice. Sentinel values pass every rule.
func Validate(points []model.MarketCapPoint) Report {
	byYear := make(map[int]float64, len(points))
	for _, p := range points {
		if v, ok := p.MarketCap.Float(); ok {
			byYear[p.Year] = v
		}
	}

	var rep Report
	for _, p := range points {
		v, ok := p.MarketCap.Float()
		if !ok {
			continue
		}
		if is, bad := checkGrowth(p.Year, v, byYear); bad {
			rep.Issues = append(rep.Issues, is)
		}
		if v < MinimumValue {
			rep.Issues = append(rep.Issues, model.ValidationIssue{
				Year:        p.Year,
				Rule:        RuleMinimumValue,
				Description: fmt.Sprintf("market cap %.4fB is below the %.2fB minimum", v, MinimumValue),
			})
		}
		if v > CeilingValue {
			rep.Issues = append(rep.Issues, model.ValidationIssue{
				Year:        p.Year,
				Rule:        RuleCeiling,
				Description: fmt.Sprintf("market cap %.2fB exceeds the %.0fB ceiling", v, CeilingValue),
			})
		}
	}
	return rep
}

func checkGrowth(year int, v float64, byYear map[int]float64) (model.ValidationIssue, bool) {
	if prev, ok := byYear[year-1]; ok && prev != 0 {
		if r := v / prev; r > MaxGrowthRatio || r < MinGrowthRatio {
			return growthIssue(year, year-1, r), true
		}
	}
	if next, ok := byYear[year+1]; ok && v != 0 {
		if r := next / v; r > MaxGrowthRatio || r < MinGrowthRatio {
			return growthIssue(year, year+1, r), true
		}
	}
	return model.ValidationIssue{}, false
}

func growthIssue(year, neighbor int, ratio float64) model.ValidationIssue {
	return model.ValidationIssue{
		Year:        year,
		Rule:        RuleGrowthRate,
		Description: fmt.Sprintf("growth ratio %.2fx between %d and %d is outside [%.1f, %.0f]", ratio, min(year, neighbor), max(year, neighbor), MinGrowthRatio, MaxGrowthRatio),
	}
}
