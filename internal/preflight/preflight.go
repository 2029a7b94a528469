package preflight

import (
	"context"

	"cargoport/internal/cargo"
	"cargoport/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// HealthChecker reports storage health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (cargo.Health, error)
}

// RunAll executes all applicable preflight checks for the given config.
// store may be nil when the caller has not opened one.
func RunAll(ctx context.Context, cfg *config.Config, store HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Texture directory", cfg.TextureDir()),
		CheckDirectoryAccess("Backup directory", cfg.Paths.BackupDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if store != nil {
		results = append(results, CheckStore(ctx, store))
	}

	if cfg.JobEnabled(config.JobGenCargoTextInfo) {
		results = append(results, CheckGenerator(cfg.Generator))
	}

	if cfg.JobEnabled(config.JobSendWeather) {
		results = append(results, CheckWeather(ctx, cfg.Weather))
	}

	if cfg.JobEnabled(config.JobFetchRemoteNews) {
		results = append(results, CheckFeed(ctx, cfg.News))
	}

	return results
}

// Failed returns only the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
