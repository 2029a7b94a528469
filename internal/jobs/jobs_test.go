package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/backup"
	"cargoport/internal/broadcast"
	"cargoport/internal/cargo"
	"cargoport/internal/config"
	"cargoport/internal/jobs"
	"cargoport/internal/lifecycle"
	"cargoport/internal/news"
	"cargoport/internal/services"
	"cargoport/internal/testsupport"
)

type recorder struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (r *recorder) Publish(event broadcast.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return 1
}

func (r *recorder) all() []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Event(nil), r.events...)
}

type rainStub struct {
	raining bool
	err     error
}

func (s rainStub) IsRaining(context.Context) (bool, error) { return s.raining, s.err }

type feedStub struct {
	items []news.Item
	err   error
}

func (s feedStub) Fetch(context.Context) ([]news.Item, error) { return s.items, s.err }

func run(t *testing.T, kind config.JobKind, jc *jobs.Context) error {
	t.Helper()
	fn, ok := jobs.Lookup(kind)
	require.True(t, ok, "job %s registered", kind)
	return fn(context.Background(), jc)
}

func TestEveryKindHasABody(t *testing.T) {
	for _, kind := range config.JobKinds() {
		_, ok := jobs.Lookup(kind)
		assert.True(t, ok, "missing body for %s", kind)
	}
	_, ok := jobs.Lookup(config.JobKind("test_short"))
	assert.False(t, ok)
}

func TestSendWeatherPublishesResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pub := &recorder{}
	jc := &jobs.Context{Config: cfg, Publisher: pub, Weather: rainStub{raining: true}}

	require.NoError(t, run(t, config.JobSendWeather, jc))
	require.Equal(t, []broadcast.Event{broadcast.Weather(true)}, pub.all())
}

func TestSendWeatherPublishesDryOnError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pub := &recorder{}
	jc := &jobs.Context{Config: cfg, Publisher: pub, Weather: rainStub{err: errors.New("dns failure")}}

	err := run(t, config.JobSendWeather, jc)
	require.Error(t, err)
	assert.Equal(t, []broadcast.Event{broadcast.Weather(false)}, pub.all())
}

func TestSendWeatherHonoursJitterAndCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Weather.MaxJitterSeconds = 15
	pub := &recorder{}
	var asked time.Duration
	jc := &jobs.Context{
		Config:    cfg,
		Publisher: pub,
		Weather:   rainStub{},
		Jitter: func(ceiling time.Duration) time.Duration {
			asked = ceiling
			return time.Hour
		},
	}
	fn, _ := jobs.Lookup(config.JobSendWeather)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := fn(ctx, jc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 15*time.Second, asked)
	assert.Empty(t, pub.all(), "cancelled tick publishes nothing")
}

func TestFetchRemoteNewsStoresItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	now := time.Now().UTC().Truncate(time.Second)
	jc := &jobs.Context{
		Config: cfg,
		Store:  st,
		News: feedStub{items: []news.Item{
			{Link: "https://news.test/a", Title: "A", PublishedAt: now, FetchedAt: now},
			{Link: "https://news.test/b", Title: "B", PublishedAt: now.Add(time.Minute), FetchedAt: now},
		}},
	}

	require.NoError(t, run(t, config.JobFetchRemoteNews, jc))
	items, err := st.ListNews(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetchRemoteNewsReportsFetchError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	jc := &jobs.Context{Config: cfg, Store: st, News: feedStub{err: errors.New("503")}}
	assert.Error(t, run(t, config.JobFetchRemoteNews, jc))
}

func TestBackupDatabaseWritesSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewCargo(t, st, cargo.TypeCake)
	exporter := backup.NewExporter(cfg.Paths.BackupDir, 3)
	jc := &jobs.Context{Config: cfg, Store: st, Backup: exporter}

	require.NoError(t, run(t, config.JobBackupDatabase, jc))
	paths, err := exporter.List()
	require.NoError(t, err)
	require.Len(t, paths, 1)

	snapshot, err := backup.Read(paths[0])
	require.NoError(t, err)
	assert.Len(t, snapshot.Cargo, 1)
}

func TestLifecycleJobsUseEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	pub := &recorder{}
	engine := lifecycle.NewEngine(st, pub, nil)
	jc := &jobs.Context{Config: cfg, Store: st, Lifecycle: engine}

	require.NoError(t, run(t, config.JobShipCargoes, jc))
	require.NoError(t, run(t, config.JobLaunchRocket, jc))
	assert.Equal(t, []broadcast.Event{broadcast.Launch(0)}, pub.all())
}

func TestMissingCollaboratorIsConfigurationError(t *testing.T) {
	jc := &jobs.Context{}
	for _, kind := range config.JobKinds() {
		err := run(t, kind, jc)
		assert.ErrorIs(t, err, services.ErrConfiguration, "kind %s", kind)
	}
}
