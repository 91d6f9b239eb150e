// Package xbrl parses XBRL company facts JSON published by SEC EDGAR.
package xbrl

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CompanyFacts represents the EDGAR company facts JSON structure.
type CompanyFacts struct {
	CIK        int               `json:"cik"`
	EntityName string            `json:"entityName"`
	Facts      map[string]FactNS `json:"facts"`
}

// FactNS groups facts by namespace (e.g., "us-gaap", "dei").
type FactNS map[string]Fact

// Fact is a single XBRL fact with its units and values.
type Fact struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactValue `json:"units"`
}

// FactValue is a single data point for a fact.
type FactValue struct {
	End   string `json:"end"`
	Val   any    `json:"val"`
	Accn  string `json:"accn"`
	FY    int    `json:"fy"`
	FP    string `json:"fp"`
	Form  string `json:"form"`
	Filed string `json:"filed"`
	Frame string `json:"frame,omitempty"`
}

// Float returns Val as a float64 when it is numeric.
func (v FactValue) Float() (float64, bool) {
	switch n := v.Val.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ParseCompanyFacts parses EDGAR company facts JSON from a reader.
func ParseCompanyFacts(r io.Reader) (*CompanyFacts, error) {
	var facts CompanyFacts
	if err := json.NewDecoder(r).Decode(&facts); err != nil {
		return nil, eris.Wrap(err, "xbrl: parse company facts")
	}
	return &facts, nil
}

// Values returns every reported value of ns:name in the given unit.
func (f *CompanyFacts) Values(ns, name, unit string) []FactValue {
	if f == nil {
		return nil
	}
	nsMap, ok := f.Facts[ns]
	if !ok {
		return nil
	}
	fact, ok := nsMap[name]
	if !ok {
		return nil
	}
	return fact.Units[unit]
}

// AnnualValue picks the value of ns:name reported on an annual report
// (10-K family) for fiscal year fy. When several filings report the same
// fiscal year, the latest filed one wins, so amendments supersede originals.
func (f *CompanyFacts) AnnualValue(ns, name, unit string, fy int) (FactValue, bool) {
	var best FactValue
	found := false
	for _, v := range f.Values(ns, name, unit) {
		if v.FY != fy || !isAnnualForm(v.Form) {
			continue
		}
		if _, ok := v.Float(); !ok {
			continue
		}
		if !found || v.Filed > best.Filed {
			best = v
			found = true
		}
	}
	return best, found
}

func isAnnualForm(form string) bool {
	return strings.HasPrefix(form, "10-K") || strings.HasPrefix(form, "20-F") || strings.HasPrefix(form, "40-F")
}
