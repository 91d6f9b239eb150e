package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// StructureIssue is a structural problem found in the raw dataset document.
type StructureIssue struct {
	Company string `json:"company,omitempty"`
	Index   int    `json:"index"` // history position; -1 when not entry specific
	Message string `json:"message"`
}

func (i StructureIssue) String() string {
	switch {
	case i.Company == "":
		return i.Message
	case i.Index < 0:
		return fmt.Sprintf("%s: %s", i.Company, i.Message)
	default:
		return fmt.Sprintf("%s[%d]: %s", i.Company, i.Index, i.Message)
	}
}

var (
	topLevelKeys = []string{"metadata", "companies"}
	companyKeys  = []string{"name", "ticker", "first_public_year", "ever_top_10", "market_cap_history"}
	entryKeys    = []string{"year", "market_cap", "citation", "notes"}
)

// CheckStructure reports missing keys and mistyped values in a raw dataset
// document. It never repairs anything; an empty result means the document
// is well formed.
func CheckStructure(raw []byte) []StructureIssue {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return []StructureIssue{{Index: -1, Message: "document is not a JSON object: " + err.Error()}}
	}

	var issues []StructureIssue
	for _, k := range topLevelKeys {
		if _, ok := top[k]; !ok {
			issues = append(issues, StructureIssue{Index: -1, Message: fmt.Sprintf("missing top-level key %q", k)})
		}
	}
	rawCompanies, ok := top["companies"]
	if !ok {
		return issues
	}

	var companies map[string]map[string]json.RawMessage
	if err := json.Unmarshal(rawCompanies, &companies); err != nil {
		return append(issues, StructureIssue{Index: -1, Message: "companies is not an object of objects"})
	}

	names := make([]string, 0, len(companies))
	for name := range companies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if companies[name] == nil {
			issues = append(issues, StructureIssue{Company: name, Index: -1, Message: "company entry is null"})
			continue
		}
		issues = append(issues, checkCompany(name, companies[name])...)
	}
	return issues
}

func checkCompany(name string, c map[string]json.RawMessage) []StructureIssue {
	var issues []StructureIssue
	for _, k := range companyKeys {
		if _, ok := c[k]; !ok {
			issues = append(issues, StructureIssue{Company: name, Index: -1, Message: fmt.Sprintf("missing key %q", k)})
		}
	}
	rawHistory, ok := c["market_cap_history"]
	if !ok {
		return issues
	}
	var history []map[string]json.RawMessage
	if err := json.Unmarshal(rawHistory, &history); err != nil {
		return append(issues, StructureIssue{Company: name, Index: -1, Message: "market_cap_history is not an array of objects"})
	}

	for i, entry := range history {
		for _, k := range entryKeys {
			if _, ok := entry[k]; !ok {
				issues = append(issues, StructureIssue{Company: name, Index: i, Message: fmt.Sprintf("missing key %q", k)})
			}
		}
		if y, ok := entry["year"]; ok && !isInteger(y) {
			issues = append(issues, StructureIssue{Company: name, Index: i, Message: "year is not an integer"})
		}
		if mc, ok := entry["market_cap"]; ok && !isMarketCap(mc) {
			issues = append(issues, StructureIssue{Company: name, Index: i, Message: "market_cap is neither a number nor a known sentinel"})
		}
	}
	return issues
}

func isInteger(raw json.RawMessage) bool {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return false
	}
	return f == math.Trunc(f)
}

func isMarketCap(raw json.RawMessage) bool {
	var mc model.MarketCap
	return json.Unmarshal(raw, &mc) == nil
}
