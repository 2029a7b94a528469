package enrichment_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/assets"
	"cargoport/internal/broadcast"
	"cargoport/internal/cargo"
	"cargoport/internal/enrichment"
	"cargoport/internal/store"
	"cargoport/internal/testsupport"
)

type fakeGenerator struct {
	reply    string
	err      error
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	before   func(ctx context.Context)
}

func (g *fakeGenerator) Describe(ctx context.Context, image []byte, mediaType, prompt string) (string, error) {
	g.calls.Add(1)
	current := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if g.before != nil {
		g.before(ctx)
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if len(image) == 0 || mediaType != assets.MediaType || prompt == "" {
		return "", errors.New("bad request")
	}
	return g.reply, g.err
}

type failingClaimStore struct {
	*store.Store
	err error
}

func (s *failingClaimStore) Claim(context.Context, string, time.Time) (string, bool, error) {
	return "", false, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (p *recordingPublisher) Publish(event broadcast.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return 1
}

func (p *recordingPublisher) Events() []broadcast.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broadcast.Event(nil), p.events...)
}

type fixture struct {
	store     *store.Store
	assets    *assets.Store
	publisher *recordingPublisher
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return &fixture{
		store:     testsupport.MustOpenStore(t, cfg),
		assets:    assets.NewStore(cfg.TextureDir()),
		publisher: &recordingPublisher{},
		ctx:       context.Background(),
	}
}

func (f *fixture) cargoWithTexture(t *testing.T) *cargo.Cargo {
	t.Helper()
	item, err := f.store.Create(f.ctx, cargo.NewCargo{Type: cargo.TypeCake, PaintTime: 2})
	require.NoError(t, err)
	_, err = f.assets.Write(item.ID, bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xD9}))
	require.NoError(t, err)
	return item
}

func (f *fixture) pipeline(gen enrichment.Generator, opts enrichment.Options) *enrichment.Pipeline {
	return enrichment.NewPipeline(f.store, f.assets, gen, f.publisher, nil, opts)
}

func TestRunEnrichesAndPublishes(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)
	gen := &fakeGenerator{reply: "Alpha%%%A shiny cargo"}

	summary, err := f.pipeline(gen, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Selected)
	assert.Equal(t, 1, summary.Enriched)
	assert.Zero(t, summary.Failed)

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", stored.Name)
	assert.Equal(t, "A shiny cargo", stored.Description)
	assert.False(t, stored.Pending)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, broadcast.KindCargoInfo, events[0].Kind)
	assert.Equal(t, broadcast.CargoInfoData{ID: item.ID, Name: "Alpha", Description: "A shiny cargo"}, events[0].Data)

	summary, err = f.pipeline(gen, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Selected, "enriched cargo is not selected again")
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestRunReleasesOnMalformedResponse(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)

	summary, err := f.pipeline(&fakeGenerator{reply: "no delimiter here"}, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Name)
	assert.Empty(t, stored.Description)
	assert.False(t, stored.Pending, "claim must be released")
	assert.Empty(t, f.publisher.Events())

	ids, err := f.store.ListUnenriched(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, ids)
}

func TestRunReleasesOnGeneratorError(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)

	summary, err := f.pipeline(&fakeGenerator{err: errors.New("upstream 500")}, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Pending)
	assert.Empty(t, stored.Name)
}

func TestRunIsolatesFailingCargo(t *testing.T) {
	f := newFixture(t)
	missing, err := f.store.Create(f.ctx, cargo.NewCargo{Type: cargo.TypeCake, PaintTime: 1})
	require.NoError(t, err)
	painted := f.cargoWithTexture(t)
	gen := &fakeGenerator{reply: "Alpha%%%A shiny cargo"}

	pipeline := f.pipeline(gen, enrichment.Options{Concurrency: 2})
	summary, err := pipeline.Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 2, summary.Claimed)
	assert.Equal(t, 1, summary.Enriched)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.ClaimErrors)

	stored, err := f.store.GetByID(f.ctx, painted.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", stored.Name)
	assert.Equal(t, "A shiny cargo", stored.Description)

	stored, err = f.store.GetByID(f.ctx, missing.ID)
	require.NoError(t, err)
	assert.False(t, stored.Pending)
	assert.Empty(t, stored.Name)
	assert.Empty(t, stored.Description)

	last, ok := pipeline.LastSummary()
	require.True(t, ok)
	assert.Equal(t, 1, last.Failed)
	assert.False(t, last.FinishedAt.IsZero())
}

func TestRunCountsClaimErrorsSeparately(t *testing.T) {
	f := newFixture(t)
	f.cargoWithTexture(t)
	broken := &failingClaimStore{Store: f.store, err: errors.New("database is locked")}
	gen := &fakeGenerator{reply: "Alpha%%%desc"}

	summary, err := enrichment.NewPipeline(broken, f.assets, gen, f.publisher, nil, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ClaimErrors)
	assert.Zero(t, summary.Claimed)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, gen.calls.Load())
}

func TestRunAbandonsClaimBeforeLeaseExpires(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)

	gen := &fakeGenerator{
		reply: "Alpha%%%desc",
		before: func(ctx context.Context) {
			<-ctx.Done()
		},
	}
	pipeline := f.pipeline(gen, enrichment.Options{Lease: 200 * time.Millisecond, ReleaseTimeout: time.Second})
	assert.Equal(t, 100*time.Millisecond, pipeline.ClaimBudget())

	started := time.Now()
	summary, err := pipeline.Run(f.ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 200*time.Millisecond+time.Second)
	assert.Equal(t, 1, summary.Failed)

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Pending, "an abandoned claim is released")
	assert.Empty(t, stored.Name)
}

func TestRunReleasesWhenTextureMissing(t *testing.T) {
	f := newFixture(t)
	item, err := f.store.Create(f.ctx, cargo.NewCargo{Type: cargo.TypeCake, PaintTime: 1})
	require.NoError(t, err)
	gen := &fakeGenerator{reply: "Alpha%%%desc"}

	summary, err := f.pipeline(gen, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, gen.calls.Load(), "generator is not called without an image")

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Pending)
}

func TestRunSkipsCargoClaimedElsewhere(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)
	_, won, err := f.store.Claim(f.ctx, item.ID, time.Now())
	require.NoError(t, err)
	require.True(t, won)

	gen := &fakeGenerator{reply: "Alpha%%%desc"}
	summary, err := f.pipeline(gen, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Selected, "pending cargo is not selected")
	assert.Zero(t, gen.calls.Load())

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stored.Pending, "foreign claim stays in place")
}

func TestRunDiscardsTextWhenEditedDuringGeneration(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)

	gen := &fakeGenerator{
		reply: "Generated%%%generated description",
		before: func(ctx context.Context) {
			assert.NoError(t, f.store.UpdateText(ctx, item.ID, "Manual", "typed by a person"))
		},
	}
	summary, err := f.pipeline(gen, enrichment.Options{}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 1, summary.Discarded)
	assert.Zero(t, summary.Enriched)

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Manual", stored.Name)
	assert.False(t, stored.Pending)
	assert.Empty(t, f.publisher.Events())
}

func TestRunBoundsConcurrency(t *testing.T) {
	f := newFixture(t)
	for range 6 {
		f.cargoWithTexture(t)
	}
	gen := &fakeGenerator{reply: "Alpha%%%desc", delay: 30 * time.Millisecond}

	summary, err := f.pipeline(gen, enrichment.Options{Concurrency: 2}).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Enriched)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
	assert.Len(t, f.publisher.Events(), 6)
}

func TestConcurrentRunsEnrichEachCargoOnce(t *testing.T) {
	f := newFixture(t)
	for range 4 {
		f.cargoWithTexture(t)
	}
	gen := &fakeGenerator{reply: "Alpha%%%desc", delay: 10 * time.Millisecond}
	pipeline := f.pipeline(gen, enrichment.Options{Concurrency: 4})

	var wg sync.WaitGroup
	var enriched atomic.Int32
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := pipeline.Run(f.ctx)
			assert.NoError(t, err)
			enriched.Add(int32(summary.Enriched))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 4, enriched.Load())
	assert.EqualValues(t, 4, gen.calls.Load())
	assert.Len(t, f.publisher.Events(), 4)
}

func TestReclaimReleasesStaleClaims(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)
	_, won, err := f.store.Claim(f.ctx, item.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, won)

	pipeline := f.pipeline(&fakeGenerator{reply: "Alpha%%%desc"}, enrichment.Options{Lease: time.Minute})
	summary, err := pipeline.Run(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Reclaimed)
	assert.Equal(t, 1, summary.Enriched)
}

func TestRunReleasesClaimsOnCancel(t *testing.T) {
	f := newFixture(t)
	item := f.cargoWithTexture(t)
	ctx, cancel := context.WithCancel(f.ctx)

	gen := &fakeGenerator{
		before: func(context.Context) { cancel() },
		err:    context.Canceled,
	}
	_, err := f.pipeline(gen, enrichment.Options{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	stored, err := f.store.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Pending, "release runs on a detached context")
}
