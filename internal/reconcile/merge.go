// Package reconcile merges newly collected points into a company's stored
// history using the source priority ranking.
package reconcile

import (
	"sort"

	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

// Decision is the outcome for one incoming point.
type Decision int

const (
	Add Decision = iota
	Replace
	Keep
)

func (d Decision) String() string {
	switch d {
	case Add:
		return "add"
	case Replace:
		return "replace"
	default:
		return "keep"
	}
}

// ShouldReplace reports whether incoming may overwrite existing for the
// same year. Higher priority wins; interpolated and incomplete records give
// way to anything real; ties keep what is stored.
func ShouldReplace(existing, incoming model.MarketCapPoint) bool {
	if incoming.Kind().Priority() > existing.Kind().Priority() {
		return true
	}
	if existing.IsInterpolated() && !incoming.IsInterpolated() {
		return true
	}
	if existing.IsIncomplete() {
		return true
	}
	return false
}

// Merge folds incoming into existing and returns the merged history sorted
// by year together with per-decision counts. Neither input is modified.
// Incoming points are applied in order, so a later incoming point for the
// same year competes with the one applied before it.
func Merge(existing, incoming []model.MarketCapPoint) ([]model.MarketCapPoint, model.MergeStats) {
	merged := make([]model.MarketCapPoint, 0, len(existing)+len(incoming))
	index := make(map[int]int, len(existing)+len(incoming))

	var stats model.MergeStats
	for _, p := range existing {
		if i, ok := index[p.Year]; ok {
			zap.L().Warn("reconcile: duplicate year in stored history",
				zap.Int("year", p.Year),
				zap.String("first_citation", merged[i].Citation),
				zap.String("second_citation", p.Citation),
			)
			if ShouldReplace(merged[i], p) {
				merged[i] = p
			}
			stats.Collapsed++
			continue
		}
		index[p.Year] = len(merged)
		merged = append(merged, p)
	}

	for _, p := range incoming {
		switch decide(merged, index, p) {
		case Add:
			index[p.Year] = len(merged)
			merged = append(merged, p)
			stats.Added++
		case Replace:
			merged[index[p.Year]] = p
			stats.Replaced++
		case Keep:
			stats.Kept++
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Year < merged[j].Year })
	return merged, stats
}

func decide(merged []model.MarketCapPoint, index map[int]int, p model.MarketCapPoint) Decision {
	i, ok := index[p.Year]
	if !ok {
		return Add
	}
	if ShouldReplace(merged[i], p) {
		return Replace
	}
	return Keep
}
