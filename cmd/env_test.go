package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TextQLLabs/market-cap-tracker/internal/collect"
	"github.com/TextQLLabs/market-cap-tracker/internal/config"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
)

func TestWithManualFallback(t *testing.T) {
	in := collect.DefaultChains()
	out := withManualFallback(in)

	assert.Equal(t, []string{source.NameYahoo, source.NameAlphaVantage, source.NameManual}, out.Modern)
	assert.Equal(t, []string{source.NameSECEdgar, source.NameYahoo, source.NameManual}, out.FilingEra)
	assert.Equal(t, []string{source.NameYahoo, source.NameAlphaVantage}, in.Modern, "input chains untouched")
	assert.Equal(t, out, withManualFallback(out))
}

func TestBuildProviders(t *testing.T) {
	t.Run("no credentials registers yahoo only", func(t *testing.T) {
		c := &config.Config{Chains: collect.DefaultChains()}
		p, err := buildProviders(context.Background(), c, newLimiter(c))
		require.NoError(t, err)
		assert.Equal(t, []string{source.NameYahoo}, p.registry.List())
		assert.Nil(t, p.manual)
		assert.Equal(t, collect.DefaultChains(), p.chains)
	})

	t.Run("all sources", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "research.csv")
		require.NoError(t, os.WriteFile(path, []byte("symbol,year,market_cap,citation\nGE,1985,39.5,Historical records\n"), 0o644))

		c := &config.Config{Chains: collect.DefaultChains()}
		c.Sources.AlphaVantage.Key = "demo"
		c.Sources.SECEdgar.UserAgent = "mcap test@example.com"
		c.Sources.Manual.Path = path

		p, err := buildProviders(context.Background(), c, newLimiter(c))
		require.NoError(t, err)
		assert.Equal(t, []string{source.NameAlphaVantage, source.NameManual, source.NameSECEdgar, source.NameYahoo}, p.registry.List())
		require.NotNil(t, p.manual)
		assert.Equal(t, source.NameManual, p.chains.Modern[len(p.chains.Modern)-1])

		pt := p.manual.Fetch(context.Background(), source.Query{Symbol: "GE", Year: 1985})
		require.NotNil(t, pt)
		assert.Equal(t, "39.5", pt.MarketCap.String())
	})

	t.Run("bad manual path", func(t *testing.T) {
		c := &config.Config{}
		c.Sources.Manual.Path = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := buildProviders(context.Background(), c, newLimiter(c))
		require.Error(t, err)
	})
}
