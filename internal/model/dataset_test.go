package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `{
  "metadata": {"last_updated": "2025-01-20", "data_source": "manual", "version": 3},
  "companies": {
    "META": {
      "name": "Meta Platforms",
      "ticker": "META",
      "first_public_year": 2012,
      "ever_top_10": true,
      "market_cap_history": [
        {"year": 2012, "market_cap": 63.0, "citation": "Yahoo Finance API - 2012-12-31", "notes": ""},
        {"year": 2013, "market_cap": "DATA_INCOMPLETE", "citation": "DATA_INCOMPLETE", "notes": "pending"}
      ]
    }
  }
}`

func TestDataset_RoundTripPreservesMetadata(t *testing.T) {
	t.Parallel()

	var ds Dataset
	require.NoError(t, json.Unmarshal([]byte(sampleDataset), &ds))

	assert.Equal(t, "2025-01-20", ds.Metadata.LastUpdated)
	assert.Equal(t, "manual", ds.Metadata.DataSource)
	require.Contains(t, ds.Metadata.Extra, "version")

	meta := ds.Companies["META"]
	require.NotNil(t, meta)
	require.Len(t, meta.History, 2)
	assert.Equal(t, Incomplete(), meta.History[1].MarketCap)

	ds.Metadata.LastUpdated = "2025-02-01"
	out, err := json.Marshal(&ds)
	require.NoError(t, err)

	var back map[string]map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "2025-02-01", back["metadata"]["last_updated"])
	assert.EqualValues(t, 3, back["metadata"]["version"])
}

func TestDataset_CompanyLookup(t *testing.T) {
	t.Parallel()

	ds := Dataset{Companies: map[string]*CompanyRecord{
		"SAUDI_ARAMCO": {Name: "Saudi Aramco", Ticker: "2222.SR"},
		"META":         {Name: "Meta", Ticker: "META"},
	}}

	c, ok := ds.Company("meta")
	require.True(t, ok)
	assert.Equal(t, "Meta", c.Name)

	c, ok = ds.Company("2222.sr")
	require.True(t, ok)
	assert.Equal(t, "Saudi Aramco", c.Name)

	_, ok = ds.Company("AAPL")
	assert.False(t, ok)

	assert.Equal(t, []string{"META", "SAUDI_ARAMCO"}, ds.Tickers())
}

func TestDataset_CompanySkipsNullEntries(t *testing.T) {
	t.Parallel()

	ds := Dataset{Companies: map[string]*CompanyRecord{
		"META": nil,
		"AAPL": {Name: "Apple", Ticker: "AAPL"},
	}}

	_, ok := ds.Company("META")
	assert.False(t, ok)
	_, ok = ds.Company("meta")
	assert.False(t, ok)
	c, ok := ds.Company("aapl")
	require.True(t, ok)
	assert.Equal(t, "Apple", c.Name)
}

func TestCompanyRecord_Point(t *testing.T) {
	t.Parallel()

	c := CompanyRecord{History: []MarketCapPoint{{Year: 2020, MarketCap: Billions(1)}}}
	p, ok := c.Point(2020)
	require.True(t, ok)
	assert.Equal(t, 2020, p.Year)

	_, ok = c.Point(2021)
	assert.False(t, ok)
}
