// Package backup exports the cargo and news tables to timestamped JSON files
// and prunes old exports.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cargoport/internal/cargo"
	"cargoport/internal/news"
)

const (
	filePrefix = "cargoport-"
	fileSuffix = ".json"
	nameLayout = "20060102T150405.000000000Z"
	// FormatVersion is written into every snapshot.
	FormatVersion = 1
)

// Source supplies the rows to export.
type Source interface {
	ListAll(ctx context.Context) ([]*cargo.Cargo, error)
	ListNews(ctx context.Context, limit int) ([]news.Item, error)
}

// Snapshot is the on-disk document.
type Snapshot struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	Cargo     []*cargo.Cargo `json:"cargo"`
	News      []news.Item    `json:"news"`
}

// Result describes one completed export.
type Result struct {
	Path   string
	Cargo  int
	News   int
	Pruned []string
}

// Exporter writes snapshots into a directory.
type Exporter struct {
	dir       string
	retention int
	now       func() time.Time
}

// NewExporter builds an exporter. retention <= 0 keeps every file.
func NewExporter(dir string, retention int) *Exporter {
	return &Exporter{dir: dir, retention: retention, now: time.Now}
}

// Export writes one snapshot and applies retention.
func (e *Exporter) Export(ctx context.Context, src Source) (Result, error) {
	items, err := src.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export cargo: %w", err)
	}
	headlines, err := src.ListNews(ctx, 0)
	if err != nil {
		return Result{}, fmt.Errorf("export news: %w", err)
	}
	if items == nil {
		items = []*cargo.Cargo{}
	}
	if headlines == nil {
		headlines = []news.Item{}
	}

	createdAt := e.now().UTC()
	snapshot := Snapshot{Version: FormatVersion, CreatedAt: createdAt, Cargo: items, News: headlines}
	path := filepath.Join(e.dir, filePrefix+createdAt.Format(nameLayout)+fileSuffix)
	if err := writeJSON(path, snapshot); err != nil {
		return Result{}, err
	}

	pruned, err := e.prune()
	if err != nil {
		return Result{Path: path, Cargo: len(items), News: len(headlines)}, err
	}
	return Result{Path: path, Cargo: len(items), News: len(headlines), Pruned: pruned}, nil
}

// List returns existing snapshot paths, oldest first.
func (e *Exporter) List() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(e.dir, name)
	}
	return paths, nil
}

// Read loads a snapshot from disk.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &snapshot, nil
}

func (e *Exporter) prune() ([]string, error) {
	if e.retention <= 0 {
		return nil, nil
	}
	paths, err := e.List()
	if err != nil {
		return nil, err
	}
	if len(paths) <= e.retention {
		return nil, nil
	}
	stale := paths[:len(paths)-e.retention]
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("prune backup %s: %w", filepath.Base(path), err)
		}
	}
	return stale, nil
}

func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		tmp.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit backup: %w", err)
	}
	return nil
}
