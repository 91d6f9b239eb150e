package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Sentinel is a non-numeric placeholder stored in place of a market cap.
type Sentinel string

const (
	SentinelPrivate    Sentinel = "PRIVATE"
	SentinelIncomplete Sentinel = "DATA_INCOMPLETE"
)

// MarketCap is a market capitalization in billions of USD, or a sentinel
// when no numeric value is knowable. The zero value is numeric 0.
type MarketCap struct {
	billions float64
	sentinel Sentinel
}

// Billions returns a numeric market cap.
func Billions(v float64) MarketCap {
	return MarketCap{billions: v}
}

// Private returns the PRIVATE sentinel.
func Private() MarketCap {
	return MarketCap{sentinel: SentinelPrivate}
}

// Incomplete returns the DATA_INCOMPLETE sentinel.
func Incomplete() MarketCap {
	return MarketCap{sentinel: SentinelIncomplete}
}

// Float returns the numeric value and true, or 0 and false for sentinels.
func (m MarketCap) Float() (float64, bool) {
	if m.sentinel != "" {
		return 0, false
	}
	return m.billions, true
}

// IsNumeric reports whether m holds a number.
func (m MarketCap) IsNumeric() bool {
	return m.sentinel == ""
}

// Sentinel returns the sentinel, or "" for numeric values.
func (m MarketCap) Sentinel() Sentinel {
	return m.sentinel
}

func (m MarketCap) String() string {
	if m.sentinel != "" {
		return string(m.sentinel)
	}
	return strconv.FormatFloat(m.billions, 'f', -1, 64)
}

// ParseMarketCap parses a number (billions) or one of the sentinel strings.
func ParseMarketCap(s string) (MarketCap, error) {
	s = strings.TrimSpace(s)
	switch Sentinel(strings.ToUpper(s)) {
	case SentinelPrivate:
		return Private(), nil
	case SentinelIncomplete:
		return Incomplete(), nil
	}
	s = strings.TrimPrefix(strings.TrimSuffix(s, "B"), "$")
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return MarketCap{}, eris.Wrapf(err, "model: parse market cap %q", s)
	}
	return Billions(v), nil
}

func (m MarketCap) MarshalJSON() ([]byte, error) {
	if m.sentinel != "" {
		return json.Marshal(string(m.sentinel))
	}
	return json.Marshal(m.billions)
}

func (m *MarketCap) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode market cap")
		}
		switch Sentinel(s) {
		case SentinelPrivate, SentinelIncomplete:
			*m = MarketCap{sentinel: Sentinel(s)}
			return nil
		}
		return eris.Errorf("model: unknown market cap sentinel %q", s)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "model: decode market cap")
	}
	*m = Billions(v)
	return nil
}

// ConfidenceLevel grades how much a data point can be trusted.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

// SourceType is the coarse provenance recorded alongside a point.
type SourceType string

const (
	SourceTypeAPI            SourceType = "API"
	SourceTypeSEC            SourceType = "SEC"
	SourceTypeManualResearch SourceType = "MANUAL_RESEARCH"
	SourceTypeInterpolated   SourceType = "INTERPOLATED"
)

// DateLayout is the layout of LastVerified and metadata dates.
const DateLayout = "2006-01-02"

// MarketCapPoint is one year of a company's market cap history.
type MarketCapPoint struct {
	Year            int             `json:"year"`
	MarketCap       MarketCap       `json:"market_cap"`
	Citation        string          `json:"citation"`
	Notes           string          `json:"notes"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level,omitempty"`
	LastVerified    string          `json:"last_verified,omitempty"`
	SourceType      SourceType      `json:"source_type,omitempty"`
	SourceKind      SourceKind      `json:"source_kind,omitempty"`
}

// Kind returns the explicit source kind, falling back to classifying the
// citation for records written before source kinds existed.
func (p MarketCapPoint) Kind() SourceKind {
	if p.SourceKind != "" {
		return p.SourceKind
	}
	return ClassifyCitation(p.Citation)
}

// IsIncomplete reports whether the point is a known-incomplete marker.
func (p MarketCapPoint) IsIncomplete() bool {
	return strings.Contains(p.Citation, string(SentinelIncomplete)) ||
		p.MarketCap.Sentinel() == SentinelIncomplete
}

// IsInterpolated reports whether the point is an interpolated placeholder.
func (p MarketCapPoint) IsInterpolated() bool {
	return p.SourceKind == SourceKindInterpolated ||
		strings.Contains(p.Citation, "INTERPOLATED")
}
