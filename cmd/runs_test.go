package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

func sampleRuns() []model.Run {
	base := time.Date(2025, 1, 21, 9, 0, 0, 0, time.UTC)
	return []model.Run{
		{
			ID:        "4f1c2a9e-0d1b-4a51-9a55-0d7b8e0f3c11",
			Ticker:    "META",
			Years:     []int{2013, 2014},
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Collected: 2, Stats: model.MergeStats{Added: 1, Replaced: 1}},
			CreatedAt: base,
			UpdatedAt: base.Add(4 * time.Second),
		},
		{
			ID:        "9b0e7d4c-5a2f-4c3d-8e1a-6f2b9c0d1e22",
			Ticker:    "GE",
			Years:     []int{1985},
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{ManualResearch: []int{1985}},
			CreatedAt: base.Add(time.Minute),
			UpdatedAt: base.Add(time.Minute + 2*time.Second),
		},
		{
			ID:        "short",
			Ticker:    "NOPE",
			Status:    model.RunStatusFailed,
			Error:     "reconcile: unknown company",
			CreatedAt: base.Add(-48 * time.Hour),
			UpdatedAt: base.Add(-48 * time.Hour),
		},
		{
			ID:        "c3d4e5f6",
			Ticker:    "MSFT",
			Status:    model.RunStatusCollecting,
			CreatedAt: base,
			UpdatedAt: base,
		},
	}
}

func TestComputeRunStats(t *testing.T) {
	runs := sampleRuns()

	all := computeRunStats(runs, time.Time{})
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 2, all.Complete)
	assert.Equal(t, 1, all.Failed)
	assert.Equal(t, 1, all.Other)
	assert.Equal(t, model.MergeStats{Added: 1, Replaced: 1}, all.Merge)
	assert.Equal(t, 1, all.Manual)
	assert.InDelta(t, 3.0, all.AvgDurSecs, 1e-9)

	recent := computeRunStats(runs, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 3, recent.Total)
	assert.Zero(t, recent.Failed)
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[0], "TICKER")
	assert.Contains(t, lines[2], "4f1c2a9e")
	assert.NotContains(t, lines[2], "4f1c2a9e-0d1b")
	assert.Contains(t, lines[2], "2013,2014")
	assert.Contains(t, lines[2], "4s")
	assert.Contains(t, lines[4], "short")
	assert.Contains(t, lines[4], "failed")
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, computeRunStats(sampleRuns(), time.Time{}))
	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "Avg duration:")
	assert.Contains(t, out, "Manual research years:")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "4f1c2a9e", truncateID("4f1c2a9e-0d1b-4a51-9a55-0d7b8e0f3c11"))
	assert.Equal(t, "abc", truncateID("abc"))
}

func TestCommandMode(t *testing.T) {
	assert.Equal(t, "runs", commandMode(runsListCmd))
	assert.Equal(t, "runs", commandMode(runsStatsCmd))
	assert.Equal(t, "collect", commandMode(collectCmd))
	assert.Equal(t, "mcap", commandMode(rootCmd))
}
