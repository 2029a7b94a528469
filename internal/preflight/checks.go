package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"cargoport/internal/config"
	"cargoport/internal/news"
	"cargoport/internal/services/weather"
)

const remoteCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore verifies the storage backend answers and carries the expected schema.
func CheckStore(ctx context.Context, store HealthChecker) Result {
	const name = "Store"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	health, err := store.CheckHealth(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	if !health.Reachable {
		detail := health.Error
		if detail == "" {
			detail = "unreachable"
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s %s (%s)", health.Driver, health.Location, detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s schema v%d, %d pending claims", health.Driver, health.SchemaVersion, health.Pending)}
}

// CheckGenerator validates generator settings without spending a request.
func CheckGenerator(cfg config.Generator) Result {
	const name = "Generator"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	parsed, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid base url %q", cfg.BaseURL)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s", cfg.Model, parsed.Host)}
}

// CheckWeather performs one live weather lookup.
func CheckWeather(ctx context.Context, cfg config.Weather) Result {
	const name = "Weather"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	raining, err := weather.NewClient(cfg).IsRaining(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (raining: %t)", raining)}
}

// CheckFeed downloads and parses the news feed once.
func CheckFeed(ctx context.Context, cfg config.News) Result {
	const name = "News feed"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	items, err := news.NewFetcher(cfg).Fetch(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d items)", len(items))}
}

func summarizeRemoteError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return err.Error()
}
