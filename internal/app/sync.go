package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// ErrSyncSuperseded is returned by a run that was still fetching when the
// engine was stopped. Its result is discarded and the store is untouched.
var ErrSyncSuperseded = domain.ErrSyncSuperseded

// DefaultFetchLimit is the number of remote records requested per run.
const DefaultFetchLimit = 5

// SyncEngine reconciles the local store with the remote endpoint using a
// server-wins merge. Runs are serialized; the periodic timer and manual
// triggers both call SyncOnce.
type SyncEngine struct {
	store    *QuoteStore
	remote   ports.RemoteQuoteSource
	pusher   *Pusher
	flags    ports.FeatureFlags
	recorder SyncRecorder
	exec     *Executor
	limit    int
	logger   *slog.Logger

	runMu      sync.Mutex
	runs       atomic.Uint64
	generation atomic.Uint64

	resultMu sync.RWMutex
	last     *domain.SyncResult
}

// SyncEngineConfig contains the engine dependencies.
type SyncEngineConfig struct {
	Store    *QuoteStore
	Remote   ports.RemoteQuoteSource
	Pusher   *Pusher
	Flags    ports.FeatureFlags
	Recorder SyncRecorder
	Executor *Executor

	// FetchLimit caps the remote snapshot size. Defaults to DefaultFetchLimit.
	FetchLimit int

	Logger *slog.Logger
}

// NewSyncEngine creates a sync engine.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	if cfg.Store == nil || cfg.Remote == nil || cfg.Pusher == nil {
		panic("app: SyncEngine requires a store, a remote source and a pusher")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	flags := cfg.Flags
	if flags == nil {
		flags = ports.StaticFlags(nil)
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	exec := cfg.Executor
	if exec == nil {
		exec = NewExecutor(logger)
	}

	limit := cfg.FetchLimit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	return &SyncEngine{
		store:    cfg.Store,
		remote:   cfg.Remote,
		pusher:   cfg.Pusher,
		flags:    flags,
		recorder: recorder,
		exec:     exec,
		limit:    limit,
		logger:   logger.With(slog.String("component", "sync")),
	}
}

// syncRun carries one run's state between stages.
type syncRun struct {
	generation uint64
	summary    domain.SyncSummary
	toPush     []domain.Quote
}

// SyncOnce fetches the remote snapshot, merges it into the store with
// server-wins semantics, and starts pushing local-only quotes in the
// background. A fetch failure returns a domain.NetworkError and leaves the
// store untouched.
func (e *SyncEngine) SyncOnce(ctx context.Context) (domain.SyncSummary, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	ctx = logging.WithContext(ctx, logging.FromContextOr(ctx, e.logger))
	ctx = logging.WithSyncRun(ctx, e.runs.Add(1))

	run := &syncRun{
		generation: e.generation.Load(),
		summary:    domain.SyncSummary{StartedAt: time.Now()},
	}

	op := Operation[*syncRun, []domain.Quote, []domain.Quote, domain.SyncSummary]{
		Name:    "sync",
		Perform: e.fetch,
		Verify:  e.sanitize,
		Archive: e.commit,
		Respond: e.respond,
	}

	summary, err := Execute(ctx, e.exec, op, run)
	if err != nil {
		run.summary.Duration = time.Since(run.summary.StartedAt)
		summary = run.summary
	}

	e.record(summary, err)

	if err != nil {
		return summary, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "sync completed",
		slog.Int("new_from_server", summary.NewFromServer),
		slog.Int("conflicts_resolved", summary.ConflictsResolved),
		slog.Int("pushed_to_server", summary.PushedToServer),
		slog.Duration("duration", summary.Duration),
	)

	return summary, nil
}

// LastResult returns the outcome of the most recent run, if any.
func (e *SyncEngine) LastResult() (domain.SyncResult, bool) {
	e.resultMu.RLock()
	defer e.resultMu.RUnlock()

	if e.last == nil {
		return domain.SyncResult{}, false
	}

	return *e.last, true
}

// Invalidate makes any run currently in flight discard its result.
func (e *SyncEngine) Invalidate() {
	e.generation.Add(1)
}

func (e *SyncEngine) fetch(ctx context.Context, _ *syncRun) ([]domain.Quote, error) {
	return e.remote.FetchSnapshot(ctx, e.limit)
}

// sanitize drops remote records that cannot become valid quotes.
func (e *SyncEngine) sanitize(ctx context.Context, _ *syncRun, fetched []domain.Quote) ([]domain.Quote, error) {
	valid := make([]domain.Quote, 0, len(fetched))

	for _, q := range fetched {
		if q.ID <= 0 || strings.TrimSpace(q.Text) == "" {
			e.logger.DebugContext(ctx, "dropping unusable remote record", slog.Int("remote_id", q.ID))
			continue
		}

		valid = append(valid, q)
	}

	return valid, nil
}

func (e *SyncEngine) commit(ctx context.Context, run *syncRun, remote []domain.Quote) error {
	return e.store.Update(ctx, func(current []domain.Quote, _ IDAllocator) ([]domain.Quote, error) {
		if e.generation.Load() != run.generation {
			return nil, ErrSyncSuperseded
		}

		merged, toPush, counts := MergeServerWins(current, remote)

		run.toPush = toPush
		run.summary.NewFromServer = counts.NewFromServer
		run.summary.ConflictsResolved = counts.ConflictsResolved
		run.summary.PushedToServer = counts.PushedToServer

		return merged, nil
	})
}

func (e *SyncEngine) respond(ctx context.Context, run *syncRun, _ []domain.Quote) (domain.SyncSummary, error) {
	if e.flags.IsEnabled(ctx, ports.FlagRemotePush, true) {
		e.pusher.Go(run.toPush)
	} else if len(run.toPush) > 0 {
		e.logger.DebugContext(ctx, "remote push disabled", slog.Int("skipped", len(run.toPush)))
	}

	run.summary.Duration = time.Since(run.summary.StartedAt)

	return run.summary, nil
}

func (e *SyncEngine) record(summary domain.SyncSummary, err error) {
	e.recorder.RunFinished(summary, err)

	e.resultMu.Lock()
	e.last = &domain.SyncResult{Summary: summary, Err: err}
	e.resultMu.Unlock()
}

// MergeServerWins applies remote records over local ones by id.
//
// A remote record whose id matches a local quote with different content
// overwrites it in place. An unmatched remote record is appended. Every
// local quote whose id the remote snapshot lacks is returned in toPush.
// local is not modified.
func MergeServerWins(local, remote []domain.Quote) (merged, toPush []domain.Quote, summary domain.SyncSummary) {
	merged = make([]domain.Quote, len(local), len(local)+len(remote))
	copy(merged, local)

	position := make(map[int]int, len(merged))
	for i, q := range merged {
		position[q.ID] = i
	}

	remoteIDs := make(map[int]struct{}, len(remote))

	for _, r := range remote {
		remoteIDs[r.ID] = struct{}{}

		if i, ok := position[r.ID]; ok {
			if !merged[i].SameContent(r) {
				merged[i] = r
				summary.ConflictsResolved++
			}

			continue
		}

		position[r.ID] = len(merged)
		merged = append(merged, r)
		summary.NewFromServer++
	}

	for _, q := range local {
		if _, ok := remoteIDs[q.ID]; !ok {
			toPush = append(toPush, q)
		}
	}

	summary.PushedToServer = len(toPush)

	return merged, toPush, summary
}
