package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSyncer struct {
	calls       atomic.Int32
	invalidated atomic.Int32
	err         error
}

func (c *countingSyncer) SyncOnce(context.Context) (domain.SyncSummary, error) {
	c.calls.Add(1)
	return domain.SyncSummary{NewFromServer: 1}, c.err
}

func (c *countingSyncer) Invalidate() {
	c.invalidated.Add(1)
}

func TestSyncScheduler_TicksUntilStopped(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewSyncScheduler(SyncSchedulerConfig{
		Syncer:   syncer,
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
	})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, int32(1), syncer.invalidated.Load())

	after := syncer.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, syncer.calls.Load(), "no ticks after Stop returns")
}

func TestSyncScheduler_RunOnStart(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewSyncScheduler(SyncSchedulerConfig{
		Syncer:     syncer,
		Interval:   time.Hour,
		RunOnStart: true,
		Logger:     discardLogger(),
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSyncScheduler_StartTwice(t *testing.T) {
	s := NewSyncScheduler(SyncSchedulerConfig{Syncer: &countingSyncer{}, Interval: time.Hour, Logger: discardLogger()})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)
}

func TestSyncScheduler_StopIsIdempotent(t *testing.T) {
	s := NewSyncScheduler(SyncSchedulerConfig{Syncer: &countingSyncer{}, Logger: discardLogger()})

	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()

	require.NoError(t, s.Start(context.Background()), "a stopped scheduler can be restarted")
	s.Stop()
}

func TestSyncScheduler_ParentContextStopsLoop(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewSyncScheduler(SyncSchedulerConfig{Syncer: syncer, Interval: 5 * time.Millisecond, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	s.Stop()
}

func TestSyncScheduler_TriggerUsesSameSyncer(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("offline")}
	s := NewSyncScheduler(SyncSchedulerConfig{Syncer: syncer, Interval: time.Hour, Logger: discardLogger()})

	summary, err := s.Trigger(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, summary.NewFromServer)
	assert.Equal(t, int32(1), syncer.calls.Load())
}

func TestNewSyncScheduler_DefaultInterval(t *testing.T) {
	s := NewSyncScheduler(SyncSchedulerConfig{Syncer: &countingSyncer{}})

	assert.Equal(t, DefaultSyncInterval, s.interval)
}
