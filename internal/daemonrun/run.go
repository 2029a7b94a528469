package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"cargoport/internal/assets"
	"cargoport/internal/backup"
	"cargoport/internal/broadcast"
	"cargoport/internal/config"
	"cargoport/internal/daemon"
	"cargoport/internal/enrichment"
	"cargoport/internal/jobs"
	"cargoport/internal/lifecycle"
	"cargoport/internal/logging"
	"cargoport/internal/news"
	"cargoport/internal/scheduler"
	"cargoport/internal/services/anthropic"
	"cargoport/internal/services/weather"
	"cargoport/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Runtime bundles the collaborators of one daemon process. The CLI reuses it
// to run single job ticks without starting the daemon.
type Runtime struct {
	Store     store.Backend
	Hub       *broadcast.Hub
	Textures  *assets.Store
	Lifecycle *lifecycle.Engine
	Pipeline  *enrichment.Pipeline
	Jobs      *jobs.Context
	Scheduler *scheduler.Scheduler
}

// Build opens the store and wires every job collaborator. Jobs enabled in cfg
// are registered on the scheduler with their configured periods.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	hub := broadcast.NewHub(logger)
	textures := assets.NewStore(cfg.TextureDir())
	engine := lifecycle.NewEngine(st, hub, logger)

	generator := anthropic.NewClient(anthropic.Config{
		APIKey:           cfg.Generator.APIKey,
		BaseURL:          cfg.Generator.BaseURL,
		Model:            cfg.Generator.Model,
		AnthropicVersion: cfg.Generator.AnthropicVersion,
		MaxTokens:        cfg.Generator.MaxTokens,
		TimeoutSeconds:   cfg.Generator.TimeoutSeconds,
		RetryAttempts:    cfg.Generator.RetryAttempts,
	}, anthropic.WithRetryBackoff(time.Second, config.GeneratorRetryMaxDelay))
	var limiter *rate.Limiter
	if cfg.Enrichment.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Enrichment.RequestsPerSecond), max(cfg.Enrichment.Burst, 1))
	}
	pipeline := enrichment.NewPipeline(st, textures, generator, hub, logger, enrichment.Options{
		Concurrency:    cfg.Enrichment.Concurrency,
		Lease:          cfg.LeaseDuration(),
		ReleaseTimeout: config.ClaimReleaseMargin,
		Limiter:        limiter,
	})

	jc := &jobs.Context{
		Config:     cfg,
		Store:      st,
		Publisher:  hub,
		Lifecycle:  engine,
		Enrichment: pipeline,
		Backup:     backup.NewExporter(cfg.Paths.BackupDir, cfg.Backup.RetentionCount),
		Logger:     logger,
	}
	if cfg.Weather.Enabled {
		jc.Weather = weather.NewClient(cfg.Weather)
	}
	if cfg.News.Enabled {
		jc.News = news.NewFetcher(cfg.News)
	}

	sched := scheduler.New(jc, logger)
	for _, kind := range config.JobKinds() {
		if !cfg.JobEnabled(kind) {
			logger.Info("job disabled", logging.String(logging.FieldJob, string(kind)))
			continue
		}
		fn, ok := jobs.Lookup(kind)
		if !ok {
			_ = st.Close()
			return nil, fmt.Errorf("no body for job %s", kind)
		}
		if err := sched.Register(kind, cfg.JobPeriod(kind), fn); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	return &Runtime{
		Store:     st,
		Hub:       hub,
		Textures:  textures,
		Lifecycle: engine,
		Pipeline:  pipeline,
		Jobs:      jc,
		Scheduler: sched,
	}, nil
}

// Run starts the cargoport daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg, logging.Overrides{
		Level:       opts.LogLevel,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)

	rt, err := Build(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("build runtime", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, daemon.Deps{
		Store:     rt.Store,
		Hub:       rt.Hub,
		Scheduler: rt.Scheduler,
		Pipeline:  rt.Pipeline,
		Textures:  rt.Textures,
	}, logger)
	if err != nil {
		_ = rt.Store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Only the lock holder owns the pid file.
	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("cargoport daemon shutting down")
	return nil
}

// PIDPath is where a running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "cargoport.pid")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	enabled := make([]string, 0, len(config.JobKinds()))
	for _, kind := range config.JobKinds() {
		if cfg.JobEnabled(kind) {
			enabled = append(enabled, string(kind))
		}
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("store_driver", cfg.Store.Driver),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
		logging.Bool("generator_key_present", strings.TrimSpace(cfg.Generator.APIKey) != ""),
		logging.String("generator_model", cfg.Generator.Model),
		logging.Int("enrichment_concurrency", cfg.Enrichment.Concurrency),
		logging.Duration("enrichment_lease", cfg.LeaseDuration()),
		logging.String("jobs", strings.Join(enabled, ",")),
	)
}
