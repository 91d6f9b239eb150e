package main

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/collect"
	"github.com/TextQLLabs/market-cap-tracker/internal/config"
	"github.com/TextQLLabs/market-cap-tracker/internal/dataset"
	"github.com/TextQLLabs/market-cap-tracker/internal/fetcher"
	"github.com/TextQLLabs/market-cap-tracker/internal/manual"
	"github.com/TextQLLabs/market-cap-tracker/internal/ratelimit"
	"github.com/TextQLLabs/market-cap-tracker/internal/resilience"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
	"github.com/TextQLLabs/market-cap-tracker/internal/store"
	"github.com/TextQLLabs/market-cap-tracker/pkg/alphavantage"
	"github.com/TextQLLabs/market-cap-tracker/pkg/edgar"
	"github.com/TextQLLabs/market-cap-tracker/pkg/yahoo"
)

func initDataset() *dataset.Store {
	return dataset.NewStore(cfg.Dataset.Path, cfg.Dataset.BackupDir)
}

// initStore opens and migrates the run log.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// providers is the wired set of market data sources for one process.
type providers struct {
	registry *source.Registry
	chains   collect.Chains
	manual   source.Provider
	breakers *resilience.ServiceBreakers
}

// buildProviders registers every source the configuration enables. Yahoo
// needs no credentials and is always available; Alpha Vantage needs a key
// and SEC EDGAR a contact User-Agent. Price lookups made by the filing
// provider are booked on limiter under yahoo.
func buildProviders(ctx context.Context, c *config.Config, limiter *ratelimit.Limiter) (*providers, error) {
	breakers := resilience.NewServiceBreakers(c.Resilience.Breaker.BreakerConfig())
	getter := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.Sources.UserAgent,
		Retry:        c.Resilience.Retry.RetryConfig(),
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
	reg := source.NewRegistry()

	yc := yahoo.NewClient(yahoo.WithBaseURL(c.Sources.Yahoo.BaseURL), yahoo.WithGetter(getter))
	yts, err := source.NewTimeSeries(source.NameYahoo, "Yahoo Finance", yc)
	if err != nil {
		return nil, err
	}
	reg.Register(source.Guard(yts, breakers.Get(source.NameYahoo)))

	if c.Sources.AlphaVantage.Key != "" {
		av, err := alphavantage.NewClient(c.Sources.AlphaVantage.Key,
			alphavantage.WithBaseURL(c.Sources.AlphaVantage.BaseURL),
			alphavantage.WithGetter(getter),
		)
		if err != nil {
			return nil, err
		}
		ats, err := source.NewTimeSeries(source.NameAlphaVantage, "Alpha Vantage", av)
		if err != nil {
			return nil, err
		}
		reg.Register(source.Guard(ats, breakers.Get(source.NameAlphaVantage)))
	} else {
		zap.L().Warn("alpha_vantage disabled: sources.alpha_vantage.key not set")
	}

	if c.Sources.SECEdgar.UserAgent != "" {
		ec, err := edgar.NewClient(c.Sources.SECEdgar.UserAgent,
			edgar.WithBaseURL(c.Sources.SECEdgar.BaseURL),
			edgar.WithGetter(getter),
		)
		if err != nil {
			return nil, err
		}
		filing, err := source.NewFiling(ec, source.Metered(yc, limiter, source.NameYahoo))
		if err != nil {
			return nil, err
		}
		reg.Register(source.Guard(filing, breakers.Get(source.NameSECEdgar)))
	} else {
		zap.L().Warn("sec_edgar disabled: sources.sec_edgar.user_agent not set")
	}

	p := &providers{registry: reg, chains: c.Chains, breakers: breakers}

	if c.Sources.Manual.Path != "" {
		entries, err := manual.Load(ctx, c.Sources.Manual.Path)
		if err != nil {
			return nil, err
		}
		p.manual = source.Guard(source.NewManual(entries...), nil)
		reg.Register(p.manual)
		p.chains = withManualFallback(p.chains)
	}
	return p, nil
}

// withManualFallback appends the manual provider to the end of each chain
// so researched values fill years every API missed.
func withManualFallback(c collect.Chains) collect.Chains {
	add := func(chain []string) []string {
		if slices.Contains(chain, source.NameManual) {
			return chain
		}
		return append(slices.Clone(chain), source.NameManual)
	}
	return collect.Chains{Modern: add(c.Modern), FilingEra: add(c.FilingEra)}
}

func newLimiter(c *config.Config) *ratelimit.Limiter {
	return ratelimit.New(c.RateLimits)
}
