package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Core bundles the wired quote components shared by every front end.
type Core struct {
	Store     *QuoteStore
	Index     *CategoryIndex
	Codec     *Codec
	Pusher    *Pusher
	Sync      *SyncEngine
	Scheduler *SyncScheduler
	Service   *QuoteService
}

// CoreConfig contains everything needed to assemble a Core.
type CoreConfig struct {
	Durable ports.KeyValueStore
	Session ports.KeyValueStore
	Remote  ports.RemoteQuoteSource
	Flags   ports.FeatureFlags

	FetchLimit      int
	SyncInterval    time.Duration
	SyncOnStart     bool
	PushConcurrency int
	PushTimeout     time.Duration
	MaxImportBytes  int64

	Recorder SyncRecorder
	Logger   *slog.Logger
}

// NewCore wires the components and loads persisted state.
func NewCore(ctx context.Context, cfg CoreConfig) (*Core, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exec := NewExecutor(logger)

	store := NewQuoteStore(QuoteStoreConfig{KV: cfg.Durable, Logger: logger})
	index := NewCategoryIndex(CategoryIndexConfig{Store: store, KV: cfg.Durable, Logger: logger})

	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}

	if err := index.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading category filter: %w", err)
	}

	pusher := NewPusher(PusherConfig{
		Remote:      cfg.Remote,
		Concurrency: cfg.PushConcurrency,
		Timeout:     cfg.PushTimeout,
		Recorder:    cfg.Recorder,
		Logger:      logger,
	})

	engine := NewSyncEngine(SyncEngineConfig{
		Store:      store,
		Remote:     cfg.Remote,
		Pusher:     pusher,
		Flags:      cfg.Flags,
		Recorder:   cfg.Recorder,
		Executor:   exec,
		FetchLimit: cfg.FetchLimit,
		Logger:     logger,
	})

	codec := NewCodec(CodecConfig{
		Store:          store,
		Executor:       exec,
		MaxImportBytes: cfg.MaxImportBytes,
		Logger:         logger,
	})

	return &Core{
		Store:  store,
		Index:  index,
		Codec:  codec,
		Pusher: pusher,
		Sync:   engine,
		Scheduler: NewSyncScheduler(SyncSchedulerConfig{
			Syncer:     engine,
			Interval:   cfg.SyncInterval,
			RunOnStart: cfg.SyncOnStart,
			Logger:     logger,
		}),
		Service: NewQuoteService(QuoteServiceConfig{
			Store:   store,
			Index:   index,
			Codec:   codec,
			Sync:    engine,
			Session: cfg.Session,
			Flags:   cfg.Flags,
			Logger:  logger,
		}),
	}, nil
}

// Close stops the scheduler and drains background pushes.
// Pushes still running when ctx ends are canceled.
func (c *Core) Close(ctx context.Context) {
	c.Scheduler.Stop()

	done := make(chan struct{})

	go func() {
		c.Pusher.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	c.Pusher.Close()
	<-done
}
