package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cargoport/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Generator.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.AssetDir = filepath.Join(base, "storage")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.PublicURL = "http://cargo.test"
	cfgVal.Weather.MaxJitterSeconds = 0
	cfgVal.News.MaxJitterSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	require.NoError(t, builder.cfg.EnsureDirectories(), "ensure directories")
	return builder.cfg
}

// WithGeneratorURL points the generator client at a test server.
func WithGeneratorURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generator.BaseURL = url
	}
}

// WithAPIToken sets the bearer token required on mutating routes.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
