package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"cargoport/internal/backup"
	"cargoport/internal/broadcast"
	"cargoport/internal/config"
	"cargoport/internal/enrichment"
	"cargoport/internal/lifecycle"
	"cargoport/internal/logging"
	"cargoport/internal/news"
	"cargoport/internal/services"
)

// Store is the persistence the collaborator jobs need beyond the engines.
type Store interface {
	news.Store
	backup.Source
}

// RainChecker reports current rain.
type RainChecker interface {
	IsRaining(ctx context.Context) (bool, error)
}

// FeedFetcher downloads news items.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]news.Item, error)
}

// Context carries the collaborators every job body may use.
type Context struct {
	Config     *config.Config
	Store      Store
	Publisher  broadcast.Publisher
	Lifecycle  *lifecycle.Engine
	Enrichment *enrichment.Pipeline
	Weather    RainChecker
	News       FeedFetcher
	Backup     *backup.Exporter
	Logger     *slog.Logger

	// Jitter returns the random delay before a collaborator call. Nil picks a
	// uniform delay in [0, ceiling).
	Jitter func(ceiling time.Duration) time.Duration
}

// Func is one tick of a job.
type Func func(ctx context.Context, jc *Context) error

var registry = map[config.JobKind]Func{
	config.JobLaunchRocket:     launchRocket,
	config.JobShipCargoes:      shipCargoes,
	config.JobSendWeather:      sendWeather,
	config.JobFetchRemoteNews:  fetchRemoteNews,
	config.JobBackupDatabase:   backupDatabase,
	config.JobGenCargoTextInfo: genCargoTextInfo,
}

// Lookup returns the body for kind.
func Lookup(kind config.JobKind) (Func, bool) {
	fn, ok := registry[kind]
	return fn, ok
}

func (jc *Context) logger(component string) *slog.Logger {
	return logging.NewComponentLogger(jc.Logger, component)
}

func (jc *Context) sleepJitter(ctx context.Context, ceiling time.Duration) error {
	if ceiling <= 0 {
		return nil
	}
	var delay time.Duration
	if jc.Jitter != nil {
		delay = jc.Jitter(ceiling)
	} else {
		delay = rand.N(ceiling)
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func missing(kind config.JobKind, what string) error {
	return services.Wrap(services.ErrConfiguration, "jobs", string(kind), what+" not configured", nil)
}

func launchRocket(ctx context.Context, jc *Context) error {
	if jc.Lifecycle == nil {
		return missing(config.JobLaunchRocket, "lifecycle engine")
	}
	return jc.Lifecycle.LaunchJob(ctx)
}

func shipCargoes(ctx context.Context, jc *Context) error {
	if jc.Lifecycle == nil {
		return missing(config.JobShipCargoes, "lifecycle engine")
	}
	return jc.Lifecycle.DeliverJob(ctx)
}

func genCargoTextInfo(ctx context.Context, jc *Context) error {
	if jc.Enrichment == nil {
		return missing(config.JobGenCargoTextInfo, "enrichment pipeline")
	}
	_, err := jc.Enrichment.Run(ctx)
	return err
}

func sendWeather(ctx context.Context, jc *Context) error {
	if jc.Weather == nil {
		return missing(config.JobSendWeather, "weather client")
	}
	var maxJitter time.Duration
	if jc.Config != nil {
		maxJitter = time.Duration(jc.Config.Weather.MaxJitterSeconds) * time.Second
	}
	if err := jc.sleepJitter(ctx, maxJitter); err != nil {
		return err
	}

	raining, err := jc.Weather.IsRaining(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		publish(jc, broadcast.Weather(false))
		return fmt.Errorf("check weather: %w", err)
	}
	jc.logger("weather").Info("weather checked", logging.Bool("raining", raining))
	publish(jc, broadcast.Weather(raining))
	return nil
}

func fetchRemoteNews(ctx context.Context, jc *Context) error {
	if jc.News == nil {
		return missing(config.JobFetchRemoteNews, "news fetcher")
	}
	if jc.Store == nil {
		return missing(config.JobFetchRemoteNews, "store")
	}
	var maxJitter time.Duration
	if jc.Config != nil {
		maxJitter = time.Duration(jc.Config.News.MaxJitterSeconds) * time.Second
	}
	if err := jc.sleepJitter(ctx, maxJitter); err != nil {
		return err
	}

	items, err := jc.News.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch remote news: %w", err)
	}
	written, err := jc.Store.UpsertNews(ctx, items)
	if err != nil {
		return fmt.Errorf("store remote news: %w", err)
	}
	jc.logger("news").Info("remote news stored",
		logging.Int("fetched", len(items)),
		logging.Int("written", written),
	)
	return nil
}

func backupDatabase(ctx context.Context, jc *Context) error {
	if jc.Backup == nil {
		return missing(config.JobBackupDatabase, "backup exporter")
	}
	if jc.Store == nil {
		return missing(config.JobBackupDatabase, "store")
	}
	result, err := jc.Backup.Export(ctx, jc.Store)
	if err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	jc.logger("backup").Info("database backed up",
		logging.String("path", result.Path),
		logging.Int("cargo", result.Cargo),
		logging.Int("news", result.News),
		logging.Int("pruned", len(result.Pruned)),
	)
	return nil
}

func publish(jc *Context, event broadcast.Event) {
	if jc.Publisher != nil {
		jc.Publisher.Publish(event)
	}
}
