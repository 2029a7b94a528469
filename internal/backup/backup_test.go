package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/cargo"
	"cargoport/internal/news"
)

type stubSource struct {
	cargo []*cargo.Cargo
	news  []news.Item
	err   error
}

func (s stubSource) ListAll(context.Context) ([]*cargo.Cargo, error) { return s.cargo, s.err }
func (s stubSource) ListNews(context.Context, int) ([]news.Item, error) {
	return s.news, nil
}

func TestExportWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir, 0)
	exporter.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

	src := stubSource{
		cargo: []*cargo.Cargo{{ID: "a", Type: cargo.TypeCake, Status: cargo.StatusShipping, Name: "Alpha"}},
		news:  []news.Item{{Link: "https://news.test/a", Title: "Headline"}},
	}
	result, err := exporter.Export(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Cargo)
	assert.Equal(t, 1, result.News)
	assert.Equal(t, "cargoport-20261019T080000.000000000Z.json", filepath.Base(result.Path))

	snapshot, err := Read(result.Path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, snapshot.Version)
	require.Len(t, snapshot.Cargo, 1)
	assert.Equal(t, "Alpha", snapshot.Cargo[0].Name)
	assert.Equal(t, "Headline", snapshot.News[0].Title)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".backup-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExportEmptyTablesWritesArrays(t *testing.T) {
	exporter := NewExporter(t.TempDir(), 0)
	result, err := exporter.Export(context.Background(), stubSource{})
	require.NoError(t, err)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cargo": []`)
	assert.Contains(t, string(data), `"news": []`)
}

func TestExportAppliesRetention(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir, 2)
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	var written []string
	for i := range 4 {
		exporter.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		result, err := exporter.Export(context.Background(), stubSource{})
		require.NoError(t, err)
		written = append(written, result.Path)
	}

	remaining, err := exporter.List()
	require.NoError(t, err)
	assert.Equal(t, written[2:], remaining)
}

func TestExportSourceError(t *testing.T) {
	dir := t.TempDir()
	_, err := NewExporter(dir, 0).Export(context.Background(), stubSource{err: errors.New("db down")})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
