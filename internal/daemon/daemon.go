package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cargoport/internal/api"
	"cargoport/internal/assets"
	"cargoport/internal/broadcast"
	"cargoport/internal/config"
	"cargoport/internal/enrichment"
	"cargoport/internal/logging"
	"cargoport/internal/preflight"
	"cargoport/internal/scheduler"
	"cargoport/internal/store"
)

// Deps are the collaborators a daemon coordinates.
type Deps struct {
	Store     store.Backend
	Hub       *broadcast.Hub
	Scheduler *scheduler.Scheduler
	Pipeline  *enrichment.Pipeline
	Textures  *assets.Store
}

// Daemon coordinates the background jobs and the API and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Backend
	hub       *broadcast.Hub
	scheduler *scheduler.Scheduler
	pipeline  *enrichment.Pipeline
	textures  *assets.Store
	cargoSvc  *api.CargoService
	newsSvc   *api.NewsService

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	preflight []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Hub == nil || deps.Scheduler == nil || deps.Textures == nil {
		return nil, errors.New("daemon requires config, store, hub, scheduler, and texture store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := LockFile(cfg)
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     deps.Store,
		hub:       deps.Hub,
		scheduler: deps.Scheduler,
		pipeline:  deps.Pipeline,
		textures:  deps.Textures,
		cargoSvc:  api.NewCargoService(deps.Store, deps.Textures, deps.Hub, cfg.Paths.PublicURL),
		newsSvc:   api.NewNewsService(deps.Store),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// LockFile is the flock file guarding cfg's data directory.
func LockFile(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "cargoport.lock")
}

// Start acquires the daemon lock, recovers stale claims, starts the API and
// begins ticking jobs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cargoport daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	results := preflight.RunAll(d.ctx, d.cfg, d.store)
	d.mu.Lock()
	d.preflight = results
	d.mu.Unlock()
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or service; affected jobs log their own errors"),
			logging.String(logging.FieldImpact, "dependent jobs will fail until resolved"),
		)
	}

	if d.pipeline != nil {
		if _, err := d.pipeline.Reclaim(d.ctx); err != nil {
			logging.WarnWithContext(d.logger, "startup claim recovery failed", "claim_recovery_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check store access; the enrichment job retries on every tick"),
			)
		}
	}

	if err := d.api.start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start api: %w", err)
	}
	if err := d.scheduler.Start(d.ctx); err != nil {
		d.api.stop()
		d.abortStart()
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("cargoport daemon started",
		logging.String("lock", d.lockPath),
		logging.String("store", d.cfg.Store.Driver),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops the jobs and the API, disconnects subscribers and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.scheduler.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.hub.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cargoport daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Handler exposes the API routes.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// LockPath returns the flock file guarding the data directory.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.StatusResponse {
	health, err := d.store.CheckHealth(ctx)
	if err != nil && health.Error == "" {
		health.Error = err.Error()
	}
	d.mu.Lock()
	checks := append([]preflight.Result(nil), d.preflight...)
	d.mu.Unlock()
	status := api.StatusResponse{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		Subscribers: d.hub.Count(),
		Jobs:        d.scheduler.Snapshot(),
		Store:       health,
		Preflight:   checks,
	}
	if d.pipeline != nil {
		if summary, ok := d.pipeline.LastSummary(); ok {
			status.Enrichment = &summary
		}
	}
	return status
}
