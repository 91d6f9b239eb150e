// Package manual loads operator-researched market cap points from YAML, CSV
// and XLSX files for the manual-entry provider.
package manual

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/TextQLLabs/market-cap-tracker/internal/fetcher"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
)

// Column names shared by every format. Spaces in spreadsheet headers are
// treated as underscores.
const (
	colSymbol       = "symbol"
	colYear         = "year"
	colMarketCap    = "market_cap"
	colCitation     = "citation"
	colNotes        = "notes"
	colConfidence   = "confidence_level"
	colSourceKind   = "source_kind"
	colLastVerified = "last_verified"
)

// yamlDoc is the layout of a YAML research file.
type yamlDoc struct {
	Points []map[string]string `yaml:"manual_research"`
}

// Load reads research entries from path. The format follows the extension:
// .yaml/.yml, .csv or .xlsx. A directory loads every supported file in it,
// in name order.
func Load(ctx context.Context, path string) ([]source.ManualEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manual: stat %s", path)
	}
	if !info.IsDir() {
		return loadFile(ctx, path)
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manual: read dir %s", path)
	}
	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if !e.IsDir() && supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []source.ManualEntry
	for _, name := range names {
		entries, err := loadFile(ctx, filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".csv", ".xlsx":
		return true
	}
	return false
}

func loadFile(ctx context.Context, path string) ([]source.ManualEntry, error) {
	var (
		records []map[string]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		records, err = readYAML(path)
	case ".csv":
		records, err = readCSV(ctx, path)
	case ".xlsx":
		records, err = fetcher.ReadXLSXRecords(path, fetcher.XLSXOptions{})
	default:
		return nil, eris.Errorf("manual: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "manual: load %s", path)
	}

	entries := make([]source.ManualEntry, 0, len(records))
	for i, rec := range records {
		e, err := ParseRecord(rec)
		if err != nil {
			return nil, eris.Wrapf(err, "manual: %s row %d", filepath.Base(path), i+1)
		}
		entries = append(entries, e)
	}
	zap.L().Info("manual: loaded research file",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

func readYAML(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read file")
	}
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "parse yaml")
	}
	for i, rec := range doc.Points {
		norm := make(map[string]string, len(rec))
		for k, v := range rec {
			norm[strings.ToLower(k)] = v
		}
		doc.Points[i] = norm
	}
	return doc.Points, nil
}

func readCSV(ctx context.Context, path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	defer f.Close() //nolint:errcheck
	return fetcher.ReadCSVRecords(ctx, f)
}

// ParseRecord converts one column-keyed record into an entry. symbol, year
// and market_cap are required; the source kind is classified from the
// citation when not given.
func ParseRecord(rec map[string]string) (source.ManualEntry, error) {
	get := func(col string) string {
		if v, ok := rec[col]; ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(rec[strings.ReplaceAll(col, "_", " ")])
	}

	symbol := get(colSymbol)
	if symbol == "" {
		return source.ManualEntry{}, eris.New("missing symbol")
	}
	year, err := strconv.Atoi(get(colYear))
	if err != nil {
		return source.ManualEntry{}, eris.Wrapf(err, "invalid year %q", get(colYear))
	}
	mc, err := model.ParseMarketCap(get(colMarketCap))
	if err != nil {
		return source.ManualEntry{}, err
	}

	p := model.MarketCapPoint{
		Year:            year,
		MarketCap:       mc,
		Citation:        get(colCitation),
		Notes:           get(colNotes),
		ConfidenceLevel: model.ConfidenceLevel(strings.ToUpper(get(colConfidence))),
		LastVerified:    get(colLastVerified),
		SourceType:      model.SourceTypeManualResearch,
	}
	if p.ConfidenceLevel == "" {
		p.ConfidenceLevel = model.ConfidenceMedium
	}
	if kind := model.SourceKind(strings.ToLower(get(colSourceKind))); kind != "" {
		if !kind.Valid() {
			return source.ManualEntry{}, eris.Errorf("unknown source kind %q", kind)
		}
		p.SourceKind = kind
	} else {
		p.SourceKind = model.ClassifyCitation(p.Citation)
	}
	return source.ManualEntry{Symbol: strings.ToUpper(symbol), Point: p}, nil
}
