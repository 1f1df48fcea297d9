// Package bootstrap assembles the quote core from configuration. The server
// and the CLI share it so both see the same store, remote and sync settings.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Runtime is a wired core plus the adapters it owns.
type Runtime struct {
	Core    *app.Core
	Durable *sqlite.Store
	Remote  *acl.PostsClient
	Health  *ports.DefaultHealthRegistry
}

// Options tune New beyond what the configuration file carries.
type Options struct {
	// Recorder receives sync and push outcomes. Nil discards them.
	Recorder app.SyncRecorder

	Logger *slog.Logger
}

// New opens the durable store, builds the remote client, and loads the core.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	durable, err := sqlite.Open(ctx, &sqlite.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	rt, err := assemble(ctx, cfg, opts.Recorder, logger, durable)
	if err != nil {
		return nil, errors.Join(err, durable.Close())
	}

	return rt, nil
}

func assemble(
	ctx context.Context,
	cfg *config.Config,
	recorder app.SyncRecorder,
	logger *slog.Logger,
	durable *sqlite.Store,
) (*Runtime, error) {
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Remote.BaseURL,
		ServiceName: cfg.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	remote := acl.NewPostsClient(httpClient, logger)

	health := ports.NewHealthRegistry()
	for _, checker := range []ports.HealthChecker{durable, remote} {
		if err := health.Register(checker); err != nil {
			return nil, fmt.Errorf("registering health check: %w", err)
		}
	}

	core, err := app.NewCore(ctx, app.CoreConfig{
		Durable:         durable,
		Session:         memory.New(),
		Remote:          remote,
		Flags:           ports.StaticFlags(cfg.Features),
		FetchLimit:      cfg.Remote.FetchLimit,
		SyncInterval:    cfg.Sync.Interval,
		SyncOnStart:     cfg.Sync.RunOnStart,
		PushConcurrency: cfg.Sync.PushConcurrency,
		PushTimeout:     cfg.Sync.PushTimeout,
		MaxImportBytes:  cfg.Storage.MaxImportBytes,
		Recorder:        recorder,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading quote core: %w", err)
	}

	return &Runtime{Core: core, Durable: durable, Remote: remote, Health: health}, nil
}

// Close stops background sync work, then closes the durable store.
// Pushes still running when ctx ends are canceled.
func (r *Runtime) Close(ctx context.Context) error {
	r.Core.Close(ctx)

	if err := r.Durable.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	return nil
}
