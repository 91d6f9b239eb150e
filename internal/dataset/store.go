// Package dataset persists the market cap dataset as a single JSON document
// with timestamped full backups taken before every mutation.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/model"
)

const (
	backupPrefix = "market_caps_backup_"
	backupLayout = "20060102_150405"
)

var (
	// ErrNotFound is returned when the dataset file does not exist.
	ErrNotFound = eris.New("dataset: file not found")

	// ErrMalformed is returned when the document decodes but cannot be used,
	// such as a null company entry.
	ErrMalformed = eris.New("dataset: malformed document")
)

// Store reads and writes the dataset file. Update calls are serialized.
type Store struct {
	path      string
	backupDir string

	mu sync.Mutex

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewStore creates a Store for the dataset at path. Backups go to backupDir,
// or next to the dataset when backupDir is empty.
func NewStore(path, backupDir string) *Store {
	if backupDir == "" {
		backupDir = filepath.Dir(path)
	}
	return &Store{path: path, backupDir: backupDir, nowFunc: time.Now}
}

// Path returns the dataset file path.
func (s *Store) Path() string { return s.path }

// Load reads and decodes the whole dataset.
func (s *Store) Load(ctx context.Context) (*model.Dataset, error) {
	raw, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var ds model.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, eris.Wrapf(err, "dataset: decode %s", s.path)
	}
	if ds.Companies == nil {
		ds.Companies = make(map[string]*model.CompanyRecord)
	}
	for _, ticker := range ds.Tickers() {
		if ds.Companies[ticker] == nil {
			return nil, eris.Wrapf(ErrMalformed, "%s: company %q is null", s.path, ticker)
		}
	}
	return &ds, nil
}

// Save replaces the dataset file atomically: the document is written to a
// temp file in the same directory and renamed over the original.
func (s *Store) Save(ctx context.Context, ds *model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return eris.Wrap(err, "dataset: encode")
	}
	return writeAtomic(s.path, buf.Bytes())
}

// Backup copies the current dataset file byte for byte into the backup
// directory and returns the backup path.
func (s *Store) Backup(ctx context.Context) (string, error) {
	raw, err := s.read(ctx)
	if err != nil {
		return "", eris.Wrap(err, "dataset: backup")
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "dataset: create backup dir %s", s.backupDir)
	}

	base := backupPrefix + s.nowFunc().Format(backupLayout)
	path := filepath.Join(s.backupDir, base+".json")
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			path = filepath.Join(s.backupDir, fmt.Sprintf("%s_%d.json", base, i))
			continue
		}
		if err != nil {
			return "", eris.Wrapf(err, "dataset: create backup %s", path)
		}
		if _, err := f.Write(raw); err != nil {
			_ = f.Close()
			return "", eris.Wrapf(err, "dataset: write backup %s", path)
		}
		if err := f.Close(); err != nil {
			return "", eris.Wrapf(err, "dataset: close backup %s", path)
		}
		break
	}

	zap.L().Info("dataset: backup created", zap.String("path", path))
	return path, nil
}

// Update runs a read-modify-write cycle under the store lock: load, back up,
// apply fn, save. A failed backup or a failing fn leaves the file untouched.
// The backup path is returned even when a later step fails.
func (s *Store) Update(ctx context.Context, fn func(ds *model.Dataset) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	backup, err := s.Backup(ctx)
	if err != nil {
		return "", err
	}
	if err := fn(ds); err != nil {
		return backup, err
	}
	if err := s.Save(ctx, ds); err != nil {
		return backup, err
	}
	return backup, nil
}

// BackupInfo describes one backup file.
type BackupInfo struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// ListBackups returns backups newest first. A missing backup directory
// yields an empty list.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read backup dir %s", s.backupDir)
	}

	var out []BackupInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), ".json")
		if len(stamp) < len(backupLayout) {
			continue
		}
		ts, err := time.ParseInLocation(backupLayout, stamp[:len(backupLayout)], time.Local)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: stat backup %s", name)
		}
		out = append(out, BackupInfo{
			Path:      filepath.Join(s.backupDir, name),
			CreatedAt: ts,
			Size:      info.Size(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Path > out[j].Path
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Check runs CheckStructure over the dataset file.
func (s *Store) Check(ctx context.Context) ([]StructureIssue, error) {
	raw, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return CheckStructure(raw), nil
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, eris.Wrap(ErrNotFound, s.path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", s.path)
	}
	return raw, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "dataset: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "dataset: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrap(err, "dataset: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "dataset: replace %s", path)
	}
	return nil
}
