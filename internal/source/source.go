// Package source defines the data provider contract used by the collector
// and the provider variants built on top of it.
package source

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/resilience"
)

// Well-known provider names. They double as rate limit keys.
const (
	NameYahoo        = "yahoo"
	NameAlphaVantage = "alpha_vantage"
	NameSECEdgar     = "sec_edgar"
	NameManual       = "manual"
)

// Query identifies the data point being requested.
type Query struct {
	Symbol   string
	Year     int
	FilingID string // registrant identifier (CIK); only filing providers use it
}

// Provider supplies one candidate point per (symbol, year). A nil result
// means no data; providers never surface errors to their caller.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) *model.MarketCapPoint
}

// FilingProvider marks providers that need Query.FilingID.
type FilingProvider interface {
	Provider
	RequiresFilingID() bool
}

// Fetcher is the error-returning form implemented by provider variants.
// A nil point with a nil error means the source has no data for the query.
type Fetcher interface {
	Name() string
	FetchPoint(ctx context.Context, q Query) (*model.MarketCapPoint, error)
}

// Guard adapts a Fetcher into a Provider. Errors are logged and turned into
// absent results; a non-nil breaker short-circuits a failing source.
func Guard(f Fetcher, cb *resilience.CircuitBreaker) Provider {
	return &guarded{f: f, cb: cb}
}

type guarded struct {
	f  Fetcher
	cb *resilience.CircuitBreaker
}

func (g *guarded) Name() string { return g.f.Name() }

func (g *guarded) RequiresFilingID() bool {
	if fp, ok := g.f.(interface{ RequiresFilingID() bool }); ok {
		return fp.RequiresFilingID()
	}
	return false
}

func (g *guarded) Fetch(ctx context.Context, q Query) *model.MarketCapPoint {
	var (
		p   *model.MarketCapPoint
		err error
	)
	if g.cb != nil {
		p, err = resilience.ExecuteVal(ctx, g.cb, func(ctx context.Context) (*model.MarketCapPoint, error) {
			return g.f.FetchPoint(ctx, q)
		})
	} else {
		p, err = g.f.FetchPoint(ctx, q)
	}
	if err != nil {
		zap.L().Warn("source: fetch failed",
			zap.String("source", g.f.Name()),
			zap.String("symbol", q.Symbol),
			zap.Int("year", q.Year),
			zap.Error(err),
		)
		return nil
	}
	if p == nil {
		zap.L().Debug("source: no data",
			zap.String("source", g.f.Name()),
			zap.String("symbol", q.Symbol),
			zap.Int("year", q.Year),
		)
	}
	return p
}

// NeedsFilingID reports whether p can only answer queries that carry a
// registrant identifier.
func NeedsFilingID(p Provider) bool {
	fp, ok := p.(FilingProvider)
	return ok && fp.RequiresFilingID()
}

// Registry manages available providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
