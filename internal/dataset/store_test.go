package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const fixture = `{
  "metadata": {"last_updated": "2025-01-20", "version": "1.2"},
  "companies": {
    "META": {
      "name": "Meta Platforms",
      "ticker": "META",
      "first_public_year": 2012,
      "ever_top_10": true,
      "market_cap_history": [
        {"year": 2012, "market_cap": 63.0, "citation": "Yahoo Finance API - 2012-12-31", "notes": ""},
        {"year": 2013, "market_cap": "DATA_INCOMPLETE", "citation": "DATA_INCOMPLETE", "notes": ""}
      ]
    }
  }
}
`

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "market_caps.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	s := NewStore(path, filepath.Join(dir, "backups"))
	s.nowFunc = func() time.Time { return time.Date(2025, 1, 21, 14, 30, 5, 0, time.Local) }
	return s
}

func TestStore_LoadSave(t *testing.T) {
	s := newTestStore(t, fixture)
	ctx := context.Background()

	ds, err := s.Load(ctx)
	require.NoError(t, err)
	meta, ok := ds.Company("META")
	require.True(t, ok)
	require.Len(t, meta.History, 2)

	meta.History = append(meta.History, model.MarketCapPoint{Year: 2014, MarketCap: model.Billions(216.7), Citation: "SEC 10-K"})
	require.NoError(t, s.Save(ctx, ds))

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Companies["META"].History, 3)
	assert.Contains(t, again.Metadata.Extra, "version", "unknown metadata keys survive a save")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t, "")
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := newTestStore(t, "{not json")
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset: decode")
}

func TestStore_LoadRejectsNullCompany(t *testing.T) {
	s := newTestStore(t, `{"metadata": {}, "companies": {"AAPL": null}}`)
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), `company "AAPL" is null`)
}

func TestStore_BackupIsByteCopy(t *testing.T) {
	s := newTestStore(t, fixture)

	path, err := s.Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "market_caps_backup_20250121_143005.json", filepath.Base(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(got))

	second, err := s.Backup(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, path, second, "same-second backups do not overwrite each other")
}

func TestStore_UpdateBacksUpBeforeWriting(t *testing.T) {
	s := newTestStore(t, fixture)
	ctx := context.Background()

	backup, err := s.Update(ctx, func(ds *model.Dataset) error {
		ds.Metadata.LastUpdated = "2025-01-21"
		return nil
	})
	require.NoError(t, err)

	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(old))

	ds, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-21", ds.Metadata.LastUpdated)
}

func TestStore_UpdateFailureLeavesFileUntouched(t *testing.T) {
	s := newTestStore(t, fixture)

	_, err := s.Update(context.Background(), func(ds *model.Dataset) error {
		ds.Companies = nil
		return errors.New("merge failed")
	})
	require.Error(t, err)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, fixture, string(raw))
}

func TestStore_UpdateBackupFailureIsFatal(t *testing.T) {
	s := newTestStore(t, fixture)
	// A regular file where the backup directory should be.
	require.NoError(t, os.WriteFile(s.backupDir, []byte("x"), 0o644))

	called := false
	_, err := s.Update(context.Background(), func(*model.Dataset) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, fixture, string(raw))
}

func TestStore_ConcurrentUpdatesSerialize(t *testing.T) {
	s := newTestStore(t, fixture)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(year int) {
			defer wg.Done()
			_, err := s.Update(ctx, func(ds *model.Dataset) error {
				c := ds.Companies["META"]
				c.History = append(c.History, model.MarketCapPoint{Year: year, MarketCap: model.Billions(1)})
				return nil
			})
			assert.NoError(t, err)
		}(2020 + i)
	}
	wg.Wait()

	ds, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ds.Companies["META"].History, 10, "no update is lost")
}

func TestStore_ListBackups(t *testing.T) {
	s := newTestStore(t, fixture)
	ctx := context.Background()

	none, err := s.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, none)

	first, err := s.Backup(ctx)
	require.NoError(t, err)
	s.nowFunc = func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.Local) }
	second, err := s.Backup(ctx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.backupDir, "notes.txt"), []byte("ignore"), 0o644))

	list, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].Path)
	assert.Equal(t, first, list[1].Path)
	assert.Equal(t, int64(len(fixture)), list[0].Size)
	assert.Equal(t, 2025, list[0].CreatedAt.Year())
}

func TestStore_Check(t *testing.T) {
	s := newTestStore(t, fixture)
	issues, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}
