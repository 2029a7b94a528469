package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron"

	"cargoport/internal/config"
	"cargoport/internal/jobs"
	"cargoport/internal/logging"
	"cargoport/internal/services"
)

// ErrPanic marks a tick that panicked.
var ErrPanic = errors.New("job panicked")

// Stats is a point-in-time view of one job's runs.
type Stats struct {
	Kind         config.JobKind `json:"kind"`
	Period       time.Duration  `json:"period"`
	Runs         int64          `json:"runs"`
	Failures     int64          `json:"failures"`
	Panics       int64          `json:"panics"`
	Running      int            `json:"running"`
	LastStarted  time.Time      `json:"lastStarted,omitzero"`
	LastFinished time.Time      `json:"lastFinished,omitzero"`
	LastDuration time.Duration  `json:"lastDuration"`
	LastError    string         `json:"lastError,omitempty"`
}

type entry struct {
	kind   config.JobKind
	period time.Duration
	fn     jobs.Func
	stats  Stats
}

// Scheduler owns the timelines of registered jobs.
type Scheduler struct {
	jc     *jobs.Context
	logger *slog.Logger

	mu      sync.Mutex
	entries map[config.JobKind]*entry
	cron    *cron.Cron
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a scheduler whose jobs run against jc.
func New(jc *jobs.Context, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jc:      jc,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		entries: make(map[config.JobKind]*entry),
	}
}

// Register adds a job. Unknown kinds, duplicate kinds and periods under one
// second are rejected.
func (s *Scheduler) Register(kind config.JobKind, period time.Duration, fn jobs.Func) error {
	if _, err := config.ParseJobKind(string(kind)); err != nil {
		return services.Wrap(services.ErrConfiguration, "scheduler", "register", "", err)
	}
	if fn == nil {
		return services.Wrap(services.ErrConfiguration, "scheduler", "register", fmt.Sprintf("job %s has no body", kind), nil)
	}
	if period < time.Second {
		return services.Wrap(services.ErrConfiguration, "scheduler", "register", fmt.Sprintf("job %s period %s is below one second", kind, period), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[kind]; exists {
		return services.Wrap(services.ErrConfiguration, "scheduler", "register", fmt.Sprintf("job %s registered twice", kind), nil)
	}
	e := &entry{kind: kind, period: period, fn: fn, stats: Stats{Kind: kind, Period: period}}
	s.entries[kind] = e
	if s.running {
		s.schedule(e)
	}
	return nil
}

// Start begins ticking every registered job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()
	for _, kind := range s.kindsLocked() {
		s.schedule(s.entries[kind])
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.entries)))
	return nil
}

// Stop halts all timelines, cancels in-flight ticks and waits for them to
// return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	c := s.cron
	s.cancel = nil
	s.cron = nil
	s.mu.Unlock()

	c.Stop()
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunOnce executes one tick of kind synchronously and records it.
func (s *Scheduler) RunOnce(ctx context.Context, kind config.JobKind) error {
	s.mu.Lock()
	e, ok := s.entries[kind]
	s.mu.Unlock()
	if !ok {
		return services.Wrap(services.ErrNotFound, "scheduler", "run once", fmt.Sprintf("job %s is not registered", kind), nil)
	}
	return s.execute(ctx, e)
}

// Snapshot returns per-job statistics ordered by kind.
func (s *Scheduler) Snapshot() []Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stats, 0, len(s.entries))
	for _, kind := range s.kindsLocked() {
		out = append(out, s.entries[kind].stats)
	}
	return out
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) kindsLocked() []config.JobKind {
	kinds := make([]config.JobKind, 0, len(s.entries))
	for kind := range s.entries {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// schedule requires s.mu.
func (s *Scheduler) schedule(e *entry) {
	s.cron.Schedule(cron.Every(e.period), cron.FuncJob(func() { s.tick(e) }))
}

func (s *Scheduler) tick(e *entry) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctx := s.runCtx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	_ = s.execute(ctx, e)
}

func (s *Scheduler) execute(ctx context.Context, e *entry) (err error) {
	ctx = services.WithJob(ctx, string(e.kind))
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	s.mu.Lock()
	e.stats.Running++
	e.stats.LastStarted = started
	s.mu.Unlock()

	panicked := false
	defer func() {
		if recovered := recover(); recovered != nil {
			panicked = true
			err = fmt.Errorf("%w: %v", ErrPanic, recovered)
			logging.ErrorWithContext(logger, "job panicked", "job_panic",
				logging.String("panic", fmt.Sprint(recovered)),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "the job keeps its schedule; inspect the stack above"),
			)
		}
		s.record(e, started, err, panicked)
		if err != nil && !panicked {
			s.logFailure(ctx, logger, err)
		}
	}()

	logger.Debug("job tick")
	return e.fn(ctx, s.jc)
}

func (s *Scheduler) record(e *entry, started time.Time, err error, panicked bool) {
	finished := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e.stats.Running--
	e.stats.Runs++
	e.stats.LastFinished = finished
	e.stats.LastDuration = finished.Sub(started)
	e.stats.LastError = ""
	if err != nil {
		e.stats.Failures++
		e.stats.LastError = err.Error()
	}
	if panicked {
		e.stats.Panics++
	}
}

func (s *Scheduler) logFailure(ctx context.Context, logger *slog.Logger, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		logger.Debug("job cancelled", logging.Error(err))
		return
	}
	logging.WarnWithContext(logger, "job failed", "job_failed",
		logging.String("failure_kind", services.FailureKind(err)),
		logging.String(logging.FieldErrorHint, "the job runs again on its next tick"),
		logging.String(logging.FieldImpact, "this tick did no work"),
		logging.Error(err),
	)
}
