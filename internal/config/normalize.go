package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeGenerator()
	c.normalizeSchedule()
	c.normalizeWeather()
	c.normalizeNews()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AssetDir) == "" {
		c.Paths.AssetDir = defaultAssetDir
	}
	if c.Paths.AssetDir, err = expandPath(c.Paths.AssetDir); err != nil {
		return fmt.Errorf("paths.asset_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		c.Paths.BackupDir = defaultBackupDir
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CARGOPORT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	c.Paths.PublicURL = strings.TrimRight(strings.TrimSpace(c.Paths.PublicURL), "/")
	if c.Paths.PublicURL == "" {
		c.Paths.PublicURL = "http://" + c.Paths.APIBind
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.DatabaseURL = strings.TrimSpace(c.Store.DatabaseURL)
	if c.Store.DatabaseURL == "" {
		if value, ok := os.LookupEnv("DATABASE_URL"); ok {
			c.Store.DatabaseURL = strings.TrimSpace(value)
		}
	}
	if c.Store.MaxConns <= 0 {
		c.Store.MaxConns = defaultStoreMaxConns
	}
}

func (c *Config) normalizeGenerator() {
	c.Generator.APIKey = strings.TrimSpace(c.Generator.APIKey)
	if c.Generator.APIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.Generator.APIKey = strings.TrimSpace(value)
		}
	}
	c.Generator.BaseURL = strings.TrimSpace(c.Generator.BaseURL)
	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = defaultGeneratorBaseURL
	}
	c.Generator.Model = strings.TrimSpace(c.Generator.Model)
	if c.Generator.Model == "" {
		c.Generator.Model = defaultGeneratorModel
	}
	c.Generator.AnthropicVersion = strings.TrimSpace(c.Generator.AnthropicVersion)
	if c.Generator.AnthropicVersion == "" {
		c.Generator.AnthropicVersion = defaultGeneratorAnthropicVersion
	}
}

func (c *Config) normalizeSchedule() {
	if c.Schedule.Periods == nil {
		c.Schedule.Periods = map[string]int{}
	}
	normalized := make(map[string]int, len(c.Schedule.Periods))
	for name, seconds := range c.Schedule.Periods {
		normalized[strings.ToLower(strings.TrimSpace(name))] = seconds
	}
	c.Schedule.Periods = normalized

	disabled := make([]string, 0, len(c.Schedule.Disabled))
	for _, name := range c.Schedule.Disabled {
		if trimmed := strings.ToLower(strings.TrimSpace(name)); trimmed != "" {
			disabled = append(disabled, trimmed)
		}
	}
	c.Schedule.Disabled = disabled
}

func (c *Config) normalizeWeather() {
	c.Weather.BaseURL = strings.TrimSpace(c.Weather.BaseURL)
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = defaultWeatherBaseURL
	}
	if c.Weather.MaxJitterSeconds < 0 {
		c.Weather.MaxJitterSeconds = 0
	}
}

func (c *Config) normalizeNews() {
	c.News.FeedURL = strings.TrimSpace(c.News.FeedURL)
	if c.News.MaxItems <= 0 {
		c.News.MaxItems = defaultNewsMaxItems
	}
	if c.News.MaxJitterSeconds < 0 {
		c.News.MaxJitterSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
