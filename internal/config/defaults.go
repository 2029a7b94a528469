package config

const (
	defaultConfigPath                = "~/.config/cargoport/config.toml"
	defaultDataDir                   = "~/.local/share/cargoport"
	defaultAssetDir                  = "~/.local/share/cargoport/storage"
	defaultBackupDir                 = "~/.local/share/cargoport/backups"
	defaultLogDir                    = "~/.local/share/cargoport/logs"
	defaultAPIBind                   = "127.0.0.1:7870"
	defaultStoreDriver               = StoreDriverSQLite
	defaultStoreMaxConns             = 8
	defaultGeneratorBaseURL          = "https://api.anthropic.com/v1/messages"
	defaultGeneratorModel            = "claude-3-5-sonnet-latest"
	defaultGeneratorAnthropicVersion = "2023-06-01"
	defaultGeneratorMaxTokens        = 1024
	defaultGeneratorTimeoutSeconds   = 60
	defaultGeneratorRetryAttempts    = 3
	defaultEnrichmentConcurrency     = 4
	defaultEnrichmentRequestsPerSec  = 2.0
	defaultEnrichmentBurst           = 4
	defaultEnrichmentLeaseSeconds    = 300
	defaultWeatherBaseURL            = "https://api.open-meteo.com/v1/forecast"
	defaultWeatherLatitude           = 25.0330
	defaultWeatherLongitude          = 121.5654
	defaultWeatherMaxJitterSeconds   = 15
	defaultWeatherTimeoutSeconds     = 10
	defaultNewsMaxItems              = 20
	defaultNewsMaxJitterSeconds      = 30
	defaultNewsTimeoutSeconds        = 30
	defaultBackupRetentionCount      = 21
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			AssetDir:  defaultAssetDir,
			BackupDir: defaultBackupDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Store: Store{
			Driver:   defaultStoreDriver,
			MaxConns: defaultStoreMaxConns,
		},
		Generator: Generator{
			BaseURL:          defaultGeneratorBaseURL,
			Model:            defaultGeneratorModel,
			AnthropicVersion: defaultGeneratorAnthropicVersion,
			MaxTokens:        defaultGeneratorMaxTokens,
			TimeoutSeconds:   defaultGeneratorTimeoutSeconds,
			RetryAttempts:    defaultGeneratorRetryAttempts,
		},
		Enrichment: Enrichment{
			Concurrency:       defaultEnrichmentConcurrency,
			RequestsPerSecond: defaultEnrichmentRequestsPerSec,
			Burst:             defaultEnrichmentBurst,
			LeaseSeconds:      defaultEnrichmentLeaseSeconds,
		},
		Schedule: Schedule{
			Periods: map[string]int{},
		},
		Weather: Weather{
			Enabled:          true,
			BaseURL:          defaultWeatherBaseURL,
			Latitude:         defaultWeatherLatitude,
			Longitude:        defaultWeatherLongitude,
			MaxJitterSeconds: defaultWeatherMaxJitterSeconds,
			TimeoutSeconds:   defaultWeatherTimeoutSeconds,
		},
		News: News{
			MaxItems:         defaultNewsMaxItems,
			MaxJitterSeconds: defaultNewsMaxJitterSeconds,
			TimeoutSeconds:   defaultNewsTimeoutSeconds,
		},
		Backup: Backup{
			RetentionCount: defaultBackupRetentionCount,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
