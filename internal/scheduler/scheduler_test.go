package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/config"
	"cargoport/internal/jobs"
	"cargoport/internal/scheduler"
	"cargoport/internal/services"
)

func TestRegisterRejectsBadInput(t *testing.T) {
	s := scheduler.New(&jobs.Context{}, nil)
	noop := func(context.Context, *jobs.Context) error { return nil }

	require.NoError(t, s.Register(config.JobShipCargoes, time.Minute, noop))

	err := s.Register(config.JobShipCargoes, time.Minute, noop)
	assert.ErrorIs(t, err, services.ErrConfiguration, "duplicate kind")

	err = s.Register(config.JobKind("test_short"), time.Minute, noop)
	assert.ErrorIs(t, err, services.ErrConfiguration, "unknown kind")

	err = s.Register(config.JobLaunchRocket, 500*time.Millisecond, noop)
	assert.ErrorIs(t, err, services.ErrConfiguration, "sub-second period")

	err = s.Register(config.JobLaunchRocket, time.Minute, nil)
	assert.ErrorIs(t, err, services.ErrConfiguration, "nil body")
}

func TestRunOnceRecordsStats(t *testing.T) {
	s := scheduler.New(&jobs.Context{}, nil)
	calls := 0
	require.NoError(t, s.Register(config.JobBackupDatabase, time.Hour, func(ctx context.Context, _ *jobs.Context) error {
		calls++
		job, ok := services.JobFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, string(config.JobBackupDatabase), job)
		if calls == 2 {
			return errors.New("disk full")
		}
		return nil
	}))

	require.NoError(t, s.RunOnce(context.Background(), config.JobBackupDatabase))
	require.Error(t, s.RunOnce(context.Background(), config.JobBackupDatabase))

	stats := s.Snapshot()
	require.Len(t, stats, 1)
	assert.EqualValues(t, 2, stats[0].Runs)
	assert.EqualValues(t, 1, stats[0].Failures)
	assert.Equal(t, "disk full", stats[0].LastError)
	assert.Equal(t, time.Hour, stats[0].Period)
	assert.Zero(t, stats[0].Running)

	err := s.RunOnce(context.Background(), config.JobSendWeather)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPanicIsRecovered(t *testing.T) {
	s := scheduler.New(&jobs.Context{}, nil)
	require.NoError(t, s.Register(config.JobSendWeather, time.Minute, func(context.Context, *jobs.Context) error {
		panic("boom")
	}))

	err := s.RunOnce(context.Background(), config.JobSendWeather)
	require.ErrorIs(t, err, scheduler.ErrPanic)
	assert.Contains(t, err.Error(), "boom")

	stats := s.Snapshot()
	assert.EqualValues(t, 1, stats[0].Panics)
	assert.EqualValues(t, 1, stats[0].Failures)
}

func TestJobsTickIndependently(t *testing.T) {
	s := scheduler.New(&jobs.Context{}, nil)
	var fast, panicking atomic.Int32
	require.NoError(t, s.Register(config.JobGenCargoTextInfo, time.Second, func(context.Context, *jobs.Context) error {
		fast.Add(1)
		return nil
	}))
	require.NoError(t, s.Register(config.JobSendWeather, time.Second, func(context.Context, *jobs.Context) error {
		panicking.Add(1)
		panic("weather exploded")
	}))
	require.NoError(t, s.Register(config.JobBackupDatabase, time.Hour, func(context.Context, *jobs.Context) error {
		assert.Fail(t, "hourly job must not tick during the test")
		return nil
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	require.Error(t, s.Start(context.Background()), "second start")

	require.Eventually(t, func() bool {
		return fast.Load() >= 2 && panicking.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
	s.Stop()
	assert.False(t, s.Running())

	after := fast.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, fast.Load(), "no ticks after Stop")
}

func TestStopCancelsInFlightTicks(t *testing.T) {
	s := scheduler.New(&jobs.Context{}, nil)
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	require.NoError(t, s.Register(config.JobFetchRemoteNews, time.Second, func(ctx context.Context, _ *jobs.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "job never ticked")
	}
	s.Stop()
	assert.True(t, cancelled.Load())
}
