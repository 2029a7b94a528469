package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/cargo"
	"cargoport/internal/config"
	"cargoport/internal/testsupport"
)

type healthStub struct {
	health cargo.Health
	err    error
}

func (h healthStub) CheckHealth(context.Context) (cargo.Health, error) { return h.health, h.err }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	assert.True(t, result.Passed, result.Detail)
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Detail)
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	assert.False(t, CheckDirectoryAccess("test", f).Passed)
}

func TestCheckStore(t *testing.T) {
	ok := CheckStore(context.Background(), healthStub{health: cargo.Health{Driver: "sqlite", Reachable: true, SchemaVersion: 1}})
	assert.True(t, ok.Passed, ok.Detail)

	down := CheckStore(context.Background(), healthStub{health: cargo.Health{Driver: "postgres", Error: "connection refused"}})
	assert.False(t, down.Passed, "unreachable store")

	broken := CheckStore(context.Background(), healthStub{err: errors.New("boom")})
	assert.False(t, broken.Passed, "health error")
}

func TestCheckGenerator(t *testing.T) {
	cfg := config.Default().Generator
	assert.False(t, CheckGenerator(cfg).Passed, "no api key")

	cfg.APIKey = "key"
	result := CheckGenerator(cfg)
	assert.True(t, result.Passed, result.Detail)

	cfg.BaseURL = "not a url"
	assert.False(t, CheckGenerator(cfg).Passed, "invalid base url")
}

func TestCheckWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"precipitation":0}}`))
	}))
	defer srv.Close()

	cfg := config.Default().Weather
	cfg.BaseURL = srv.URL
	result := CheckWeather(context.Background(), cfg)
	assert.True(t, result.Passed, result.Detail)

	srv.Close()
	assert.False(t, CheckWeather(context.Background(), cfg).Passed, "closed server")
}

func TestRunAll_NilConfig(t *testing.T) {
	assert.Nil(t, RunAll(context.Background(), nil, nil))
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Disabled = []string{
		string(config.JobSendWeather),
		string(config.JobFetchRemoteNews),
	}

	results := RunAll(context.Background(), cfg, healthStub{health: cargo.Health{Driver: "sqlite", Reachable: true}})
	// four directories, the store and the generator
	assert.Len(t, results, 6)
	assert.Empty(t, Failed(results))
}
