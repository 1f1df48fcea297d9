package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// SyncRecorder receives sync outcomes for metrics.
type SyncRecorder interface {
	RunFinished(summary domain.SyncSummary, err error)
	PushFinished(err error)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(domain.SyncSummary, error) {}
func (nopRecorder) PushFinished(error)                    {}

// Pusher sends local quotes to the remote endpoint in the background.
// Batches outlive the request that started them; Close cancels what is
// still in flight and waits for it.
type Pusher struct {
	remote   ports.RemoteQuoteSource
	limit    int
	timeout  time.Duration
	recorder SyncRecorder
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PusherConfig contains the pusher settings.
type PusherConfig struct {
	Remote ports.RemoteQuoteSource

	// Concurrency bounds simultaneous pushes within a batch.
	Concurrency int

	// Timeout bounds a single push. Zero means no per-push deadline.
	Timeout time.Duration

	Recorder SyncRecorder
	Logger   *slog.Logger
}

// NewPusher creates a pusher whose batches run until Close.
func NewPusher(cfg PusherConfig) *Pusher {
	if cfg.Remote == nil {
		panic("app: Pusher requires a remote source")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pusher{
		remote:   cfg.Remote,
		limit:    max(cfg.Concurrency, 1),
		timeout:  cfg.Timeout,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "pusher")),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Go starts pushing quotes in the background and returns immediately.
func (p *Pusher) Go(quotes []domain.Quote) {
	if len(quotes) == 0 {
		return
	}

	p.wg.Go(func() {
		results := Each(p.ctx, p.limit, quotes, p.push)

		failed := 0

		for _, r := range results {
			p.recorder.PushFinished(r.Err)

			if r.Err != nil {
				failed++

				p.logger.WarnContext(p.ctx, "push failed",
					slog.Int("quote_id", r.Value.ID),
					slog.Any("error", r.Err),
				)
			}
		}

		p.logger.DebugContext(p.ctx, "push batch finished",
			slog.Int("sent", len(quotes)-failed),
			slog.Int("failed", failed),
		)
	})
}

// Wait blocks until every started batch has finished.
func (p *Pusher) Wait() {
	p.wg.Wait()
}

// Close cancels in-flight pushes and waits for their goroutines.
func (p *Pusher) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pusher) push(ctx context.Context, q domain.Quote) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	return p.remote.PushQuote(ctx, q)
}
