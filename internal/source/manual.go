package source

import (
	"context"
	"sync"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// ManualEntry is one operator-supplied point for a symbol.
type ManualEntry struct {
	Symbol string
	Point  model.MarketCapPoint
}

type manualKey struct {
	symbol string
	year   int
}

// Manual serves operator-researched points verbatim. It never makes
// external calls.
type Manual struct {
	mu     sync.RWMutex
	points map[manualKey]model.MarketCapPoint
}

// NewManual creates a manual provider preloaded with entries. Later entries
// for the same (symbol, year) replace earlier ones.
func NewManual(entries ...ManualEntry) *Manual {
	m := &Manual{points: make(map[manualKey]model.MarketCapPoint)}
	for _, e := range entries {
		m.Add(e)
	}
	return m
}

// Add stores or replaces an entry.
func (m *Manual) Add(e ManualEntry) {
	p := e.Point
	if p.SourceType == "" {
		p.SourceType = model.SourceTypeManualResearch
	}
	if p.SourceKind == "" {
		p.SourceKind = model.ClassifyCitation(p.Citation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[manualKey{normalizeSymbol(e.Symbol), p.Year}] = p
}

// Len returns the number of stored entries.
func (m *Manual) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Name implements Fetcher.
func (m *Manual) Name() string { return NameManual }

// FetchPoint implements Fetcher. It never fails.
func (m *Manual) FetchPoint(_ context.Context, q Query) (*model.MarketCapPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[manualKey{normalizeSymbol(q.Symbol), q.Year}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
