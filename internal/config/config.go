package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	AssetDir  string `toml:"asset_dir"`
	BackupDir string `toml:"backup_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
	PublicURL string `toml:"public_url"`
}

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// Store selects the persistence backend.
type Store struct {
	Driver      string `toml:"driver"`
	DatabaseURL string `toml:"database_url"`
	MaxConns    int    `toml:"max_conns"`
}

// Generator contains the connection settings for the text generator API.
type Generator struct {
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	Model            string `toml:"model"`
	AnthropicVersion string `toml:"anthropic_version"`
	MaxTokens        int    `toml:"max_tokens"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryAttempts    int    `toml:"retry_attempts"`
}

// Enrichment bounds the load the enrichment job puts on the generator.
type Enrichment struct {
	Concurrency       int     `toml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	// LeaseSeconds is how long a claim may stay pending before a later sweep
	// treats it as abandoned.
	LeaseSeconds int `toml:"lease_seconds"`
}

// Schedule maps job kinds to their tick periods in seconds.
type Schedule struct {
	Periods  map[string]int `toml:"periods"`
	Disabled []string       `toml:"disabled"`
}

// Weather configures the weather check job.
type Weather struct {
	Enabled          bool    `toml:"enabled"`
	BaseURL          string  `toml:"base_url"`
	Latitude         float64 `toml:"latitude"`
	Longitude        float64 `toml:"longitude"`
	MaxJitterSeconds int     `toml:"max_jitter_seconds"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
}

// News configures the remote news feed job.
type News struct {
	Enabled          bool   `toml:"enabled"`
	FeedURL          string `toml:"feed_url"`
	MaxItems         int    `toml:"max_items"`
	MaxJitterSeconds int    `toml:"max_jitter_seconds"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// Backup configures the database export job.
type Backup struct {
	RetentionCount int `toml:"retention_count"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cargoport.
//
// Configuration sections by subsystem:
//   - Paths: data, asset, backup and log directories plus the API bind address
//   - Store: sqlite or postgres backend
//   - Generator: text generator API credentials and limits
//   - Enrichment: fan-out, rate limit and claim lease for text enrichment
//   - Schedule: job periods and disabled jobs
//   - Weather, News, Backup: collaborator jobs
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Store      Store      `toml:"store"`
	Generator  Generator  `toml:"generator"`
	Enrichment Enrichment `toml:"enrichment"`
	Schedule   Schedule   `toml:"schedule"`
	Weather    Weather    `toml:"weather"`
	News       News       `toml:"news"`
	Backup     Backup     `toml:"backup"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cargoport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.BackupDir, c.TextureDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TextureDir is where uploaded cargo textures live.
func (c *Config) TextureDir() string {
	if strings.TrimSpace(c.Paths.AssetDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.AssetDir, "texture")
}

// SQLitePath returns the SQLite database file used when store.driver is sqlite.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Paths.DataDir, "cargoport.db")
}

// LeaseDuration returns the enrichment claim lease.
func (c *Config) LeaseDuration() time.Duration {
	return time.Duration(c.Enrichment.LeaseSeconds) * time.Second
}

const (
	// GeneratorRetryMaxDelay caps the pause between generator retries.
	GeneratorRetryMaxDelay = 10 * time.Second
	// ClaimReleaseMargin is the tail of the lease kept for releasing a claim.
	ClaimReleaseMargin = 5 * time.Second
)

// GeneratorCallBudget is the longest one generator call can take: every
// retry attempt running to its timeout plus the capped pauses between them.
func (c *Config) GeneratorCallBudget() time.Duration {
	attempts := max(c.Generator.RetryAttempts, 1)
	perAttempt := time.Duration(c.Generator.TimeoutSeconds) * time.Second
	return time.Duration(attempts)*perAttempt + time.Duration(attempts-1)*GeneratorRetryMaxDelay
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
