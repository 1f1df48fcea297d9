package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// DefaultSyncInterval is the period between automatic sync runs.
const DefaultSyncInterval = 30 * time.Second

// ErrSchedulerRunning is returned when Start is called twice.
var ErrSchedulerRunning = errors.New("sync scheduler already running")

// Syncer runs one reconciliation pass.
type Syncer interface {
	SyncOnce(ctx context.Context) (domain.SyncSummary, error)
}

type invalidator interface {
	Invalidate()
}

// SyncScheduler calls a Syncer on a fixed interval until stopped.
// Manual triggers go through the same Syncer.
type SyncScheduler struct {
	syncer     Syncer
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SyncSchedulerConfig contains the scheduler settings.
type SyncSchedulerConfig struct {
	Syncer     Syncer
	Interval   time.Duration
	RunOnStart bool
	Logger     *slog.Logger
}

// NewSyncScheduler creates a stopped scheduler.
func NewSyncScheduler(cfg SyncSchedulerConfig) *SyncScheduler {
	if cfg.Syncer == nil {
		panic("app: SyncScheduler requires a syncer")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncScheduler{
		syncer:     cfg.Syncer,
		interval:   interval,
		runOnStart: cfg.RunOnStart,
		logger:     logger.With(slog.String("component", "sync_scheduler")),
	}
}

// Start launches the timer loop. It stops when ctx is done or Stop is called.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.cancel = cancel
	s.done = done

	go s.loop(ctx, done)

	s.logger.InfoContext(ctx, "sync scheduler started", slog.Duration("interval", s.interval))

	return nil
}

// Stop cancels future ticks, discards the result of a run in flight, and
// waits for the loop to exit. Stopping a stopped scheduler is a no-op.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}

	if inv, ok := s.syncer.(invalidator); ok {
		inv.Invalidate()
	}

	cancel()
	<-done

	s.logger.Info("sync scheduler stopped")
}

// Running reports whether the timer loop is active.
func (s *SyncScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done != nil
}

// Trigger runs a sync immediately on the caller's goroutine.
func (s *SyncScheduler) Trigger(ctx context.Context) (domain.SyncSummary, error) {
	return s.syncer.SyncOnce(ctx)
}

func (s *SyncScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	if _, err := s.syncer.SyncOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "scheduled sync failed", slog.Any("error", err))
	}
}
