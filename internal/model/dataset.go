package model

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// CompanyRecord is one company's entry in the dataset document.
type CompanyRecord struct {
	Name            string           `json:"name"`
	Ticker          string           `json:"ticker"`
	FirstPublicYear int              `json:"first_public_year"`
	EverInTopN      bool             `json:"ever_top_10"`
	Exchange        string           `json:"exchange,omitempty"`
	Sector          string           `json:"sector,omitempty"`
	CIK             string           `json:"cik,omitempty"`
	History         []MarketCapPoint `json:"market_cap_history"`
}

// Point returns the history entry for year, if any.
func (c *CompanyRecord) Point(year int) (MarketCapPoint, bool) {
	for _, p := range c.History {
		if p.Year == year {
			return p, true
		}
	}
	return MarketCapPoint{}, false
}

// Metadata is the dataset header. Keys other than the ones modeled here are
// carried through unchanged on rewrite.
type Metadata struct {
	LastUpdated string
	DataSource  string
	Extra       map[string]json.RawMessage
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["last_updated"] = m.LastUpdated
	if m.DataSource != "" {
		out["data_source"] = m.DataSource
	}
	return json.Marshal(out)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode metadata")
	}
	*m = Metadata{}
	if v, ok := raw["last_updated"]; ok {
		if err := json.Unmarshal(v, &m.LastUpdated); err != nil {
			return eris.Wrap(err, "model: decode metadata last_updated")
		}
		delete(raw, "last_updated")
	}
	if v, ok := raw["data_source"]; ok {
		if err := json.Unmarshal(v, &m.DataSource); err != nil {
			return eris.Wrap(err, "model: decode metadata data_source")
		}
		delete(raw, "data_source")
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// Dataset is the whole market cap document. It is loaded, mutated and
// written as a single unit.
type Dataset struct {
	Metadata  Metadata                  `json:"metadata"`
	Companies map[string]*CompanyRecord `json:"companies"`
}

// Company looks up a company by ticker, case-insensitively.
func (d *Dataset) Company(ticker string) (*CompanyRecord, bool) {
	if c, ok := d.Companies[ticker]; ok {
		return c, c != nil
	}
	up := strings.ToUpper(ticker)
	for key, c := range d.Companies {
		if c == nil {
			continue
		}
		if strings.ToUpper(key) == up || strings.ToUpper(c.Ticker) == up {
			return c, true
		}
	}
	return nil, false
}

// Tickers returns the dataset keys in sorted order.
func (d *Dataset) Tickers() []string {
	return slices.Sorted(maps.Keys(d.Companies))
}
