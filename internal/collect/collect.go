// Package collect runs the acquisition step: for each missing year it walks
// an era-specific chain of providers under the shared rate limiter and keeps
// the first point returned.
package collect

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/ratelimit"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
	"github.com/TextQLLabs/market-cap-tracker/internal/validate"
)

// Era boundaries.
const (
	ModernEraStart = 2000
	FilingEraStart = 1994
)

// Chains names the providers tried, in order, for each era.
type Chains struct {
	Modern    []string `yaml:"modern" mapstructure:"modern"`
	FilingEra []string `yaml:"filing_era" mapstructure:"filing_era"`
}

// DefaultChains returns the default provider order per era.
func DefaultChains() Chains {
	return Chains{
		Modern:    []string{source.NameYahoo, source.NameAlphaVantage},
		FilingEra: []string{source.NameSECEdgar, source.NameYahoo},
	}
}

// Request asks for the given years of one company.
type Request struct {
	Ticker   string
	Years    []int
	FilingID string
}

// Result is the outcome of one Collect call.
type Result struct {
	Points         []model.MarketCapPoint
	Report         validate.Report
	ManualResearch []int          // years before the filing era
	Unresolved     []int          // years where every provider came back empty
	Calls          map[string]int // provider calls made, absent results included
}

// Orchestrator fetches candidate points. It holds no per-company state and
// may serve concurrent Collect calls; the limiter is shared.
type Orchestrator struct {
	registry *source.Registry
	limiter  *ratelimit.Limiter
	chains   Chains
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithChains overrides the default era chains. Empty chains keep defaults.
func WithChains(c Chains) Option {
	return func(o *Orchestrator) {
		if len(c.Modern) > 0 {
			o.chains.Modern = c.Modern
		}
		if len(c.FilingEra) > 0 {
			o.chains.FilingEra = c.FilingEra
		}
	}
}

// New creates an Orchestrator over the registered providers.
func New(registry *source.Registry, limiter *ratelimit.Limiter, opts ...Option) *Orchestrator {
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	o := &Orchestrator{
		registry: registry,
		limiter:  limiter,
		chains:   DefaultChains(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chain returns the provider names to try for year. ok is false for years
// that can only be filled by manual research.
func (o *Orchestrator) Chain(year int) (names []string, ok bool) {
	switch {
	case year >= ModernEraStart:
		return o.chains.Modern, true
	case year >= FilingEraStart:
		return o.chains.FilingEra, true
	default:
		return nil, false
	}
}

// Collect fetches each requested year in ascending order. Only context
// cancellation aborts the run; provider failures are absent results.
func (o *Orchestrator) Collect(ctx context.Context, req Request) (*Result, error) {
	log := zap.L().With(zap.String("ticker", req.Ticker))

	years := append([]int(nil), req.Years...)
	sort.Ints(years)

	res := &Result{Calls: make(map[string]int)}
	seen := make(map[int]bool, len(years))
	for _, year := range years {
		if seen[year] {
			continue
		}
		seen[year] = true

		chain, ok := o.Chain(year)
		if !ok {
			log.Info("collect: year requires manual historical research", zap.Int("year", year))
			res.ManualResearch = append(res.ManualResearch, year)
			continue
		}

		p, err := o.tryChain(ctx, chain, source.Query{Symbol: req.Ticker, Year: year, FilingID: req.FilingID}, res.Calls)
		if err != nil {
			return res, eris.Wrapf(err, "collect: %s %d", req.Ticker, year)
		}
		if p == nil {
			log.Warn("collect: no data found", zap.Int("year", year))
			res.Unresolved = append(res.Unresolved, year)
			continue
		}
		log.Info("collect: collected",
			zap.Int("year", year),
			zap.Stringer("market_cap", p.MarketCap),
			zap.String("citation", p.Citation),
		)
		res.Points = append(res.Points, *p)
	}

	res.Report = validate.Validate(res.Points)
	for _, is := range res.Report.Issues {
		log.Warn("collect: validation issue",
			zap.Int("year", is.Year),
			zap.String("rule", is.Rule),
			zap.String("description", is.Description),
		)
	}
	return res, nil
}

func (o *Orchestrator) tryChain(ctx context.Context, chain []string, q source.Query, calls map[string]int) (*model.MarketCapPoint, error) {
	for _, name := range chain {
		p := o.registry.Get(name)
		if p == nil {
			zap.L().Debug("collect: provider not configured", zap.String("source", name))
			continue
		}
		if q.FilingID == "" && source.NeedsFilingID(p) {
			continue
		}

		if err := o.limiter.Wait(ctx, name); err != nil {
			return nil, err
		}
		pt := p.Fetch(ctx, q)
		o.limiter.Record(name)
		calls[name]++

		if pt != nil {
			if pt.Year != q.Year {
				zap.L().Warn("collect: provider returned wrong year, ignoring",
					zap.String("source", name),
					zap.Int("want", q.Year),
					zap.Int("got", pt.Year),
				)
				continue
			}
			return pt, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
