package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketCap_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want MarketCap
	}{
		{"number", `104.5`, Billions(104.5)},
		{"integer", `2`, Billions(2)},
		{"private", `"PRIVATE"`, Private()},
		{"incomplete", `"DATA_INCOMPLETE"`, Incomplete()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got MarketCap
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)

			out, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}
}

func TestMarketCap_UnknownSentinel(t *testing.T) {
	t.Parallel()
	var m MarketCap
	err := json.Unmarshal([]byte(`"N/A"`), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown market cap sentinel")
}

func TestMarketCap_Float(t *testing.T) {
	t.Parallel()

	v, ok := Billions(3.25).Float()
	assert.True(t, ok)
	assert.InDelta(t, 3.25, v, 1e-9)

	_, ok = Private().Float()
	assert.False(t, ok)
	assert.False(t, Incomplete().IsNumeric())
	assert.Equal(t, "DATA_INCOMPLETE", Incomplete().String())
	assert.Equal(t, "12.5", Billions(12.5).String())
}

func TestParseMarketCap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    MarketCap
		wantErr bool
	}{
		{"104.0", Billions(104), false},
		{" 1,880 ", Billions(1880), false},
		{"$215B", Billions(215), false},
		{"private", Private(), false},
		{"DATA_INCOMPLETE", Incomplete(), false},
		{"lots", MarketCap{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMarketCap(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarketCapPoint_Markers(t *testing.T) {
	t.Parallel()

	p := MarketCapPoint{Year: 2013, MarketCap: Incomplete()}
	assert.True(t, p.IsIncomplete())
	assert.False(t, p.IsInterpolated())

	p = MarketCapPoint{Year: 2013, MarketCap: Billions(1), Citation: "DATA_INCOMPLETE - pending research"}
	assert.True(t, p.IsIncomplete())

	p = MarketCapPoint{Year: 2013, MarketCap: Billions(1), Citation: "INTERPOLATED from 2012/2014"}
	assert.True(t, p.IsInterpolated())
	assert.Equal(t, SourceKindInterpolated, p.Kind())

	p = MarketCapPoint{Year: 2013, MarketCap: Billions(1), SourceKind: SourceKindInterpolated}
	assert.True(t, p.IsInterpolated())
}

func TestMarketCapPoint_KindPrefersExplicit(t *testing.T) {
	t.Parallel()

	p := MarketCapPoint{Citation: "SEC 10-K", SourceKind: SourceKindUserProvided}
	assert.Equal(t, SourceKindUserProvided, p.Kind())

	p.SourceKind = ""
	assert.Equal(t, SourceKindSEC, p.Kind())
}
