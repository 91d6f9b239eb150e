package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/collect"
	"github.com/TextQLLabs/market-cap-tracker/internal/dataset"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/reconcile"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
	"github.com/TextQLLabs/market-cap-tracker/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const datasetFixture = `{
  "metadata": {"last_updated": "2025-01-20"},
  "companies": {
    "META": {
      "name": "Meta Platforms",
      "ticker": "META",
      "first_public_year": 2012,
      "ever_top_10": true,
      "cik": "1326801",
      "market_cap_history": [
        {"year": 2012, "market_cap": 63.0, "citation": "Yahoo Finance API - 2012-12-31", "notes": ""},
        {"year": 2013, "market_cap": "DATA_INCOMPLETE", "citation": "DATA_INCOMPLETE", "notes": ""}
      ]
    },
    "GE": {
      "name": "General Electric",
      "ticker": "GE",
      "first_public_year": 1989,
      "ever_top_10": true,
      "market_cap_history": [
        {"year": 1989, "market_cap": 58.4, "citation": "Historical records - Fortune 500", "notes": ""}
      ]
    }
  }
}`

func newTestDataset(t *testing.T) *dataset.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "market_caps.json")
	require.NoError(t, os.WriteFile(path, []byte(datasetFixture), 0o644))
	return dataset.NewStore(path, filepath.Join(dir, "backups"))
}

func TestParseYears(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "2012", want: []int{2012}},
		{in: "2014, 2010,2012-2013", want: []int{2010, 2012, 2013, 2014}},
		{in: "2012-2014,2013", want: []int{2012, 2013, 2014}},
		{in: "twenty", wantErr: true},
		{in: "2014-2012", wantErr: true},
		{in: "2012-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseYears(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanJobs(t *testing.T) {
	ds, err := newTestDataset(t).Load(context.Background())
	require.NoError(t, err)

	t.Run("missing years for every company", func(t *testing.T) {
		jobs, err := planJobs(ds, nil, nil, 2014, "")
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, collectJob{Ticker: "GE", Years: []int{1990, 1991, 1992, 1993, 1994, 1995, 1996, 1997, 1998, 1999,
			2000, 2001, 2002, 2003, 2004, 2005, 2006, 2007, 2008, 2009, 2010, 2011, 2012, 2013, 2014}}, jobs[0])
		assert.Equal(t, collectJob{Ticker: "META", Years: []int{2013, 2014}, FilingID: "1326801"}, jobs[1])
	})

	t.Run("explicit years and cik override", func(t *testing.T) {
		jobs, err := planJobs(ds, []string{"meta"}, []int{2012}, 2014, "0001326801")
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, collectJob{Ticker: "META", Years: []int{2012}, FilingID: "0001326801"}, jobs[0])
	})

	t.Run("complete company is skipped", func(t *testing.T) {
		jobs, err := planJobs(ds, []string{"GE"}, nil, 1989, "")
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("unknown ticker", func(t *testing.T) {
		_, err := planJobs(ds, []string{"NOPE"}, nil, 2014, "")
		require.ErrorIs(t, err, reconcile.ErrUnknownCompany)
	})
}

func newTestCollector(t *testing.T, data *dataset.Store, entries ...source.ManualEntry) (*collector, store.Store) {
	t.Helper()
	manual := source.Guard(source.NewManual(entries...), nil)
	reg := source.NewRegistry()
	reg.Register(manual)

	runs, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, runs.Migrate(context.Background()))
	t.Cleanup(func() { _ = runs.Close() })

	chains := collect.Chains{Modern: []string{source.NameManual}, FilingEra: []string{source.NameManual}}
	return &collector{
		orch:   collect.New(reg, nil, collect.WithChains(chains)),
		engine: reconcile.NewEngine(data),
		manual: manual,
		runs:   runs,
	}, runs
}

func entry(symbol string, year int, billions float64) source.ManualEntry {
	return source.ManualEntry{Symbol: symbol, Point: model.MarketCapPoint{
		Year:            year,
		MarketCap:       model.Billions(billions),
		Citation:        "Historical records - annual report",
		ConfidenceLevel: model.ConfidenceMedium,
		SourceType:      model.SourceTypeManualResearch,
		SourceKind:      model.SourceKindHistorical,
	}}
}

func TestCollector_RunBatch(t *testing.T) {
	ctx := context.Background()
	data := newTestDataset(t)
	c, runs := newTestCollector(t, data,
		entry("META", 2013, 134.1),
		entry("GE", 1990, 58.0),
		entry("NOPE", 2015, 1.0),
	)

	results, err := c.runBatch(ctx, []collectJob{
		{Ticker: "META", Years: []int{2013, 2014}},
		{Ticker: "GE", Years: []int{1990, 1991}},
		{Ticker: "NOPE", Years: []int{2015}},
	}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 companies failed")
	require.Len(t, results, 3)

	ge, meta, nope := results[0], results[1], results[2]
	assert.Equal(t, "GE", ge.Ticker)
	require.NoError(t, ge.Err)
	assert.Equal(t, 1, ge.Result.Collected, "pre-1994 year answered from manual research")
	assert.Equal(t, []int{1991}, ge.Result.ManualResearch)
	assert.Equal(t, model.MergeStats{Added: 1}, ge.Result.Stats)

	assert.Equal(t, "META", meta.Ticker)
	require.NoError(t, meta.Err)
	assert.Equal(t, model.MergeStats{Replaced: 1}, meta.Result.Stats)
	assert.Equal(t, []int{2014}, meta.Result.Unresolved)
	assert.Equal(t, 2, meta.Result.Calls[source.NameManual])
	assert.NotEmpty(t, meta.Result.BackupPath)

	assert.Equal(t, "NOPE", nope.Ticker)
	require.ErrorIs(t, nope.Err, reconcile.ErrUnknownCompany)

	ds, err := data.Load(ctx)
	require.NoError(t, err)
	m, _ := ds.Company("META")
	p, ok := m.Point(2013)
	require.True(t, ok)
	assert.Equal(t, model.Billions(134.1), p.MarketCap)

	complete, err := runs.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	assert.Len(t, complete, 2)

	failed, err := runs.ListRuns(ctx, store.RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "NOPE", failed[0].Ticker)
	assert.Contains(t, failed[0].Error, "unknown company")
}

func TestCollector_DryRun(t *testing.T) {
	ctx := context.Background()
	data := newTestDataset(t)
	c, _ := newTestCollector(t, data, entry("META", 2013, 134.1))
	c.dryRun = true
	c.runs = nil

	results, err := c.runBatch(ctx, []collectJob{{Ticker: "META", Years: []int{2013}}}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Result.Collected)
	assert.Zero(t, results[0].Result.Stats.Total())

	ds, err := data.Load(ctx)
	require.NoError(t, err)
	m, _ := ds.Company("META")
	p, _ := m.Point(2013)
	assert.True(t, p.IsIncomplete(), "dry run leaves the dataset untouched")

	backups, err := data.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestCollector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestCollector(t, newTestDataset(t), entry("META", 2013, 134.1))
	_, err := c.runBatch(ctx, []collectJob{{Ticker: "META", Years: []int{2013}}}, 1)
	require.Error(t, err)
}

func TestFormatCollectSummary(t *testing.T) {
	var buf bytes.Buffer
	formatCollectSummary(&buf, []companyResult{
		{Ticker: "GE", Result: &model.RunResult{Collected: 1, Stats: model.MergeStats{Added: 1}, ManualResearch: []int{1985, 1986}}},
		{Ticker: "META", Result: &model.RunResult{Collected: 2, Stats: model.MergeStats{Replaced: 2}, Unresolved: []int{2014}}},
		{Ticker: "NOPE", Err: reconcile.ErrUnknownCompany},
	})

	out := buf.String()
	assert.Contains(t, out, "TICKER")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "2014")
	assert.Contains(t, out, "Manual historical research needed:")
	assert.Contains(t, out, "GE: 1985,1986")
}

func TestJoinYears(t *testing.T) {
	assert.Equal(t, "-", joinYears(nil))
	assert.Equal(t, "1999,2000", joinYears([]int{1999, 2000}))
}
