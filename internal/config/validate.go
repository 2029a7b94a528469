package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateWeather(); err != nil {
		return err
	}
	if err := c.validateNews(); err != nil {
		return err
	}
	if c.Backup.RetentionCount < 0 {
		return errors.New("backup.retention_count must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		return nil
	case StoreDriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required when store.driver is postgres (or set DATABASE_URL)")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (expected sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateSchedule() error {
	for name, seconds := range c.Schedule.Periods {
		if _, err := ParseJobKind(name); err != nil {
			return fmt.Errorf("schedule.periods: %w", err)
		}
		if seconds < 1 {
			return fmt.Errorf("schedule.periods.%s must be at least 1 second", name)
		}
	}
	for _, name := range c.Schedule.Disabled {
		if _, err := ParseJobKind(name); err != nil {
			return fmt.Errorf("schedule.disabled: %w", err)
		}
	}
	return nil
}

func (c *Config) validateGenerator() error {
	if !c.JobEnabled(JobGenCargoTextInfo) {
		return nil
	}
	if c.Generator.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("generator.api_key is required. Set ANTHROPIC_API_KEY env var or edit %s (create with 'cargoport config init')", defaultPath)
	}
	if _, err := url.ParseRequestURI(c.Generator.BaseURL); err != nil {
		return fmt.Errorf("generator.base_url: %w", err)
	}
	if err := ensurePositiveMap(map[string]int{
		"generator.max_tokens":      c.Generator.MaxTokens,
		"generator.timeout_seconds": c.Generator.TimeoutSeconds,
		"generator.retry_attempts":  c.Generator.RetryAttempts,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if err := ensurePositiveMap(map[string]int{
		"enrichment.concurrency":   c.Enrichment.Concurrency,
		"enrichment.burst":         c.Enrichment.Burst,
		"enrichment.lease_seconds": c.Enrichment.LeaseSeconds,
	}); err != nil {
		return err
	}
	if c.Enrichment.RequestsPerSecond <= 0 {
		return errors.New("enrichment.requests_per_second must be positive")
	}
	if need := c.GeneratorCallBudget() + ClaimReleaseMargin; c.LeaseDuration() <= need {
		return fmt.Errorf("enrichment.lease_seconds must exceed %d (generator.retry_attempts x generator.timeout_seconds plus retry pauses and release margin)", int(need/time.Second))
	}
	return nil
}

func (c *Config) validateWeather() error {
	if !c.Weather.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(c.Weather.BaseURL); err != nil {
		return fmt.Errorf("weather.base_url: %w", err)
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return errors.New("weather.latitude must be between -90 and 90")
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return errors.New("weather.longitude must be between -180 and 180")
	}
	if c.Weather.TimeoutSeconds <= 0 {
		return errors.New("weather.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNews() error {
	if !c.News.Enabled {
		return nil
	}
	if strings.TrimSpace(c.News.FeedURL) == "" {
		return errors.New("news.feed_url must be set when news.enabled is true")
	}
	if _, err := url.ParseRequestURI(c.News.FeedURL); err != nil {
		return fmt.Errorf("news.feed_url: %w", err)
	}
	if c.News.TimeoutSeconds <= 0 {
		return errors.New("news.timeout_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
