package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"cargoport/internal/assets"
	"cargoport/internal/broadcast"
	"cargoport/internal/logging"
	"cargoport/internal/services"
)

const (
	defaultConcurrency    = 4
	defaultLease          = 5 * time.Minute
	defaultReleaseTimeout = 5 * time.Second
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	ListUnenriched(ctx context.Context) ([]string, error)
	Claim(ctx context.Context, id string, now time.Time) (string, bool, error)
	Release(ctx context.Context, id, token string) error
	CompleteEnrichment(ctx context.Context, id, token, name, description string) (bool, error)
	ReclaimStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)
}

// AssetReader loads the texture for a cargo.
type AssetReader interface {
	Read(ctx context.Context, id string) ([]byte, error)
}

// Generator produces "<name>%%%<description>" text from an image and prompt.
type Generator interface {
	Describe(ctx context.Context, image []byte, mediaType, prompt string) (string, error)
}

// Options tunes a Pipeline. Zero values select defaults.
type Options struct {
	Concurrency    int
	Lease          time.Duration
	ReleaseTimeout time.Duration
	// Limiter is shared by all workers. Nil means unlimited.
	Limiter *rate.Limiter
	Prompt  string
	Clock   func() time.Time
}

// Summary reports what one Run did. Claimed counts every claim this run won,
// whatever happened to it afterwards. Failed counts won claims that were
// released without text. ClaimErrors counts claim statements that errored.
type Summary struct {
	Reclaimed   int64     `json:"reclaimed"`
	Selected    int       `json:"selected"`
	Claimed     int       `json:"claimed"`
	Enriched    int       `json:"enriched"`
	Discarded   int       `json:"discarded"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	ClaimErrors int       `json:"claimErrors"`
	FinishedAt  time.Time `json:"finishedAt,omitzero"`
}

type outcome int

const (
	// outcomeSkipped is a cargo this run never claimed.
	outcomeSkipped outcome = iota
	outcomeEnriched
	// outcomeFailed is a won claim released without text.
	outcomeFailed
	// outcomeDiscarded is a won claim whose text was set elsewhere first.
	outcomeDiscarded
	outcomeClaimError
)

// Pipeline enriches cargo text.
type Pipeline struct {
	store     Store
	assets    AssetReader
	generator Generator
	publisher broadcast.Publisher
	logger    *slog.Logger
	opts      Options

	mu   sync.Mutex
	last *Summary
}

// NewPipeline constructs a pipeline. publisher may be nil.
func NewPipeline(store Store, assetReader AssetReader, generator Generator, publisher broadcast.Publisher, logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Lease <= 0 {
		opts.Lease = defaultLease
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = defaultReleaseTimeout
	}
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{
		store:     store,
		assets:    assetReader,
		generator: generator,
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "enrichment"),
		opts:      opts,
	}
}

// ClaimBudget is how long one worker may hold a claim before it abandons the
// cargo. It ends before the lease does, leaving time for the release.
func (p *Pipeline) ClaimBudget() time.Duration {
	if p.opts.Lease > 2*p.opts.ReleaseTimeout {
		return p.opts.Lease - p.opts.ReleaseTimeout
	}
	return p.opts.Lease / 2
}

// LastSummary returns the summary of the most recent finished Run.
func (p *Pipeline) LastSummary() (Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Summary{}, false
	}
	return *p.last, true
}

// Reclaim releases claims older than the lease.
func (p *Pipeline) Reclaim(ctx context.Context) (int64, error) {
	cutoff := p.opts.Clock().Add(-p.opts.Lease)
	count, err := p.store.ReclaimStaleClaims(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale claims: %w", err)
	}
	if count > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "reclaimed stale enrichment claims", "claims_reclaimed",
			logging.Int64("count", count),
			logging.Duration("lease", p.opts.Lease),
			logging.String(logging.FieldErrorHint, "a previous run stopped while holding claims; they will be retried"),
		)
	}
	return count, nil
}

// Run performs one enrichment tick and blocks until every worker finishes.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	reclaimed, err := p.Reclaim(ctx)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "stale claim sweep failed", "reclaim_failed",
			logging.Error(err),
		)
	}
	summary.Reclaimed = reclaimed

	ids, err := p.store.ListUnenriched(ctx)
	if err != nil {
		return summary, fmt.Errorf("select unenriched cargo: %w", err)
	}
	summary.Selected = len(ids)
	if len(ids) == 0 {
		p.record(summary)
		return summary, nil
	}

	logging.WithContext(ctx, p.logger).Info("enriching cargo", logging.Int("count", len(ids)))

	results := make([]outcome, len(ids))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, id := range ids {
		if ctx.Err() != nil {
			results[i] = outcomeSkipped
			continue
		}
		g.Go(func() error {
			results[i] = p.enrichOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, result := range results {
		switch result {
		case outcomeEnriched:
			summary.Claimed++
			summary.Enriched++
		case outcomeDiscarded:
			summary.Claimed++
			summary.Discarded++
		case outcomeFailed:
			summary.Claimed++
			summary.Failed++
		case outcomeClaimError:
			summary.ClaimErrors++
		default:
			summary.Skipped++
		}
	}
	p.record(summary)

	logging.WithContext(ctx, p.logger).Info("enrichment tick complete",
		logging.Int("selected", summary.Selected),
		logging.Int("claimed", summary.Claimed),
		logging.Int("enriched", summary.Enriched),
		logging.Int("discarded", summary.Discarded),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("claim_errors", summary.ClaimErrors),
	)
	return summary, ctx.Err()
}

func (p *Pipeline) record(summary Summary) {
	summary.FinishedAt = p.opts.Clock()
	p.mu.Lock()
	p.last = &summary
	p.mu.Unlock()
}

func (p *Pipeline) enrichOne(ctx context.Context, id string) outcome {
	ctx = services.WithCargoID(ctx, id)
	logger := logging.WithContext(ctx, p.logger)

	token, won, err := p.store.Claim(ctx, id, p.opts.Clock())
	if err != nil {
		p.logFailure(logger, "claim", err)
		return outcomeClaimError
	}
	if !won {
		logger.Debug("claim lost")
		return outcomeSkipped
	}

	// Past the budget the lease may be reclaimed, so stop working on it.
	claimCtx, cancel := context.WithTimeout(ctx, p.ClaimBudget())
	defer cancel()

	name, description, err := p.generate(claimCtx, id)
	if err != nil {
		p.release(ctx, logger, id, token)
		p.logFailure(logger, "generate", err)
		return outcomeFailed
	}

	written, err := p.store.CompleteEnrichment(claimCtx, id, token, name, description)
	if err != nil {
		p.release(ctx, logger, id, token)
		p.logFailure(logger, "persist", err)
		return outcomeFailed
	}
	if !written {
		p.release(ctx, logger, id, token)
		logger.Info("claim superseded or text set elsewhere, discarding generated text")
		return outcomeDiscarded
	}

	logger.Info("cargo enriched", logging.String("name", name))
	if p.publisher != nil {
		p.publisher.Publish(broadcast.CargoInfo(id, name, description))
	}
	return outcomeEnriched
}

func (p *Pipeline) generate(ctx context.Context, id string) (string, string, error) {
	image, err := p.assets.Read(ctx, id)
	if err != nil {
		return "", "", err
	}
	if p.opts.Limiter != nil {
		if err := p.opts.Limiter.Wait(ctx); err != nil {
			return "", "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	text, err := p.generator.Describe(ctx, image, assets.MediaType, p.opts.Prompt)
	if err != nil {
		return "", "", err
	}
	name, description, err := ParseResponse(text)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "enrichment", "parse response", "", err)
	}
	return name, description, nil
}

// release clears the claim even when ctx is already cancelled.
func (p *Pipeline) release(ctx context.Context, logger *slog.Logger, id, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.ReleaseTimeout)
	defer cancel()
	if err := p.store.Release(releaseCtx, id, token); err != nil {
		logging.ErrorWithContext(logger, "claim release failed", "claim_release_failed",
			logging.String(logging.FieldErrorHint, "the claim expires after the lease and is retried then"),
			logging.Error(err),
		)
	}
}

func (p *Pipeline) logFailure(logger *slog.Logger, step string, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("enrichment cancelled", logging.String("step", step))
		return
	}
	hint := "the next tick retries this cargo"
	if errors.Is(err, context.DeadlineExceeded) {
		hint = "the claim budget ran out; raise enrichment.lease_seconds or lower generator.timeout_seconds"
	}
	switch services.FailureKind(err) {
	case "not_found":
		hint = "texture file is missing; re-upload or edit the text directly"
	case "configuration":
		hint = "check generator.api_key"
	}
	logging.WarnWithContext(logger, "enrichment failed", "enrichment_failed",
		logging.String("step", step),
		logging.String("failure_kind", services.FailureKind(err)),
		logging.String(logging.FieldErrorHint, hint),
		logging.Error(err),
	)
}
