// Package lifecycle advances cargo through shipping, delivered and launched.
//
// Both transitions are single conditional bulk updates, so a delayed or
// repeated tick moves every eligible cargo exactly once. Deliver and Launch
// share one mutex: each launch run then reports the delta it applied, and
// every launched cargo is counted in exactly one launch event.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cargoport/internal/broadcast"
	"cargoport/internal/cargo"
	"cargoport/internal/logging"
)

// Store is the persistence surface the engine needs.
type Store interface {
	DeliverShipped(ctx context.Context, cutoff, now time.Time) ([]string, error)
	LaunchDelivered(ctx context.Context, now time.Time) (int, error)
}

// Engine applies lifecycle transitions.
type Engine struct {
	mu        sync.Mutex
	store     Store
	publisher broadcast.Publisher
	logger    *slog.Logger
	clock     func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used by the job wrappers.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs an engine. publisher may be nil.
func NewEngine(store Store, publisher broadcast.Publisher, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		store:     store,
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "lifecycle"),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deliver moves shipping cargo older than the shipping delay to delivered and
// returns the ids that changed.
func (e *Engine) Deliver(ctx context.Context, now time.Time) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.store.DeliverShipped(ctx, now.Add(-cargo.ShippingDelay), now)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Launch moves every delivered cargo to launched and returns how many moved.
func (e *Engine) Launch(ctx context.Context, now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.LaunchDelivered(ctx, now)
}

// DeliverJob is the ship_cargoes job body.
func (e *Engine) DeliverJob(ctx context.Context) error {
	ids, err := e.Deliver(ctx, e.clock())
	if err != nil {
		logging.WithContext(ctx, e.logger).Warn("deliver failed",
			logging.String(logging.FieldEventType, "deliver_failed"),
			logging.String(logging.FieldErrorHint, "check store connectivity; the next tick retries"),
			logging.Error(err),
		)
		return err
	}
	if len(ids) > 0 {
		logging.WithContext(ctx, e.logger).Info("cargo delivered", logging.Int("count", len(ids)))
	}
	return nil
}

// LaunchJob is the launch_rocket job body. The launch event is published even
// when nothing was launched.
func (e *Engine) LaunchJob(ctx context.Context) error {
	count, err := e.Launch(ctx, e.clock())
	if err != nil {
		logging.WithContext(ctx, e.logger).Warn("launch failed",
			logging.String(logging.FieldEventType, "launch_failed"),
			logging.String(logging.FieldErrorHint, "check store connectivity; the next tick retries"),
			logging.Error(err),
		)
		return err
	}
	logging.WithContext(ctx, e.logger).Info("rocket launched", logging.Int("count", count))
	if e.publisher != nil {
		e.publisher.Publish(broadcast.Launch(count))
	}
	return nil
}
