package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func serverQuote(id int, text string) domain.Quote {
	return domain.Quote{ID: id, Text: text, Category: domain.ServerCategory}
}

func TestMergeServerWins(t *testing.T) {
	local := []domain.Quote{
		{ID: 1, Text: "T1", Category: "Wisdom"},
		{ID: 2, Text: "old", Category: "Wisdom"},
	}

	tests := []struct {
		name        string
		local       []domain.Quote
		remote      []domain.Quote
		wantMerged  []domain.Quote
		wantPushIDs []int
		wantSummary domain.SyncSummary
	}{
		{
			name:   "overwrite, append and push",
			local:  local,
			remote: []domain.Quote{serverQuote(2, "T2"), serverQuote(3, "T3")},
			wantMerged: []domain.Quote{
				{ID: 1, Text: "T1", Category: "Wisdom"},
				serverQuote(2, "T2"),
				serverQuote(3, "T3"),
			},
			wantPushIDs: []int{1},
			wantSummary: domain.SyncSummary{NewFromServer: 1, ConflictsResolved: 1, PushedToServer: 1},
		},
		{
			name:        "identical content is not a conflict",
			local:       []domain.Quote{serverQuote(2, "T2")},
			remote:      []domain.Quote{serverQuote(2, "T2")},
			wantMerged:  []domain.Quote{serverQuote(2, "T2")},
			wantSummary: domain.SyncSummary{},
		},
		{
			name:        "empty remote pushes everything",
			local:       local,
			remote:      nil,
			wantMerged:  local,
			wantPushIDs: []int{1, 2},
			wantSummary: domain.SyncSummary{PushedToServer: 2},
		},
		{
			name:        "empty local takes everything",
			local:       nil,
			remote:      []domain.Quote{serverQuote(7, "a"), serverQuote(8, "b")},
			wantMerged:  []domain.Quote{serverQuote(7, "a"), serverQuote(8, "b")},
			wantSummary: domain.SyncSummary{NewFromServer: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]domain.Quote(nil), tt.local...)

			merged, toPush, summary := MergeServerWins(tt.local, tt.remote)

			if diff := cmp.Diff(tt.wantMerged, merged); diff != "" {
				t.Errorf("merged mismatch (-want +got):\n%s", diff)
			}

			assert.Equal(t, len(tt.wantPushIDs), len(toPush))
			if len(tt.wantPushIDs) > 0 {
				assert.Equal(t, tt.wantPushIDs, ids(toPush))
			}

			assert.Equal(t, tt.wantSummary, summary)
			assert.Equal(t, original, tt.local, "local input must not be modified")
		})
	}
}

type syncFixture struct {
	kv     *flakyKV
	store  *QuoteStore
	index  *CategoryIndex
	remote *mocks.MockRemoteQuoteSource
	pusher *Pusher
	engine *SyncEngine
}

func newSyncFixture(t *testing.T, flags ports.FeatureFlags, local ...domain.Quote) *syncFixture {
	t.Helper()

	kv := newFlakyKV()
	store, index := newLoadedStore(t, kv, local...)
	remote := mocks.NewMockRemoteQuoteSource(t)
	pusher := NewPusher(PusherConfig{Remote: remote, Concurrency: 2, Logger: discardLogger()})
	t.Cleanup(pusher.Close)

	engine := NewSyncEngine(SyncEngineConfig{
		Store:      store,
		Remote:     remote,
		Pusher:     pusher,
		Flags:      flags,
		FetchLimit: 5,
		Logger:     discardLogger(),
	})

	return &syncFixture{kv: kv, store: store, index: index, remote: remote, pusher: pusher, engine: engine}
}

func TestSyncEngine_SyncOnce(t *testing.T) {
	f := newSyncFixture(t, nil,
		domain.Quote{ID: 1, Text: "T1", Category: "Wisdom"},
		domain.Quote{ID: 2, Text: "old", Category: "Wisdom"},
	)

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).
		Return([]domain.Quote{serverQuote(2, "T2"), serverQuote(3, "T3")}, nil)

	var pushed []domain.Quote

	var mu sync.Mutex

	f.remote.EXPECT().PushQuote(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, q domain.Quote) error {
			mu.Lock()
			pushed = append(pushed, q)
			mu.Unlock()

			return nil
		})

	summary, err := f.engine.SyncOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewFromServer)
	assert.Equal(t, 1, summary.ConflictsResolved)
	assert.Equal(t, 1, summary.PushedToServer)
	assert.False(t, summary.StartedAt.IsZero())

	all := f.store.All()
	assert.Equal(t, []int{1, 2, 3}, ids(all))
	assert.Equal(t, serverQuote(2, "T2"), all[1])

	assert.Contains(t, f.index.CategoryList(), domain.ServerCategory)

	f.pusher.Wait()

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, pushed, 1)
	assert.Equal(t, 1, pushed[0].ID)

	last, ok := f.engine.LastResult()
	require.True(t, ok)
	assert.NoError(t, last.Err)
	assert.Equal(t, summary, last.Summary)
}

func TestSyncEngine_FetchFailureLeavesStoreUntouched(t *testing.T) {
	f := newSyncFixture(t, nil)
	ctx := context.Background()
	before := f.store.All()

	slotBefore, ok, err := f.kv.Get(ctx, ports.KeyQuotes)
	require.NoError(t, err)
	require.True(t, ok)

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).
		Return(nil, domain.NewNetworkStatusError("posts", 503))

	summary, err := f.engine.SyncOnce(ctx)

	require.ErrorIs(t, err, domain.ErrNetwork)

	step, ok := FailedStep(err)
	require.True(t, ok)
	assert.Equal(t, StepPerform, step)

	assert.Equal(t, before, f.store.All())

	slotAfter, ok, err := f.kv.Get(ctx, ports.KeyQuotes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, slotBefore, slotAfter, "durable slot must be byte-for-byte unchanged")
	assert.Zero(t, summary.NewFromServer)
	assert.Zero(t, summary.ConflictsResolved)
	assert.Zero(t, summary.PushedToServer)

	last, ok := f.engine.LastResult()
	require.True(t, ok)
	assert.ErrorIs(t, last.Err, domain.ErrNetwork)
}

func TestSyncEngine_DropsUnusableRemoteRecords(t *testing.T) {
	f := newSyncFixture(t, ports.StaticFlags{ports.FlagRemotePush: false},
		domain.Quote{ID: 1, Text: "T1", Category: "Wisdom"},
	)

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).Return([]domain.Quote{
		serverQuote(0, "no id"),
		serverQuote(4, "   "),
		serverQuote(5, "kept"),
	}, nil)

	summary, err := f.engine.SyncOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewFromServer)
	assert.Equal(t, []int{1, 5}, ids(f.store.All()))
}

func TestSyncEngine_PushDisabledStillCounts(t *testing.T) {
	f := newSyncFixture(t, ports.StaticFlags{ports.FlagRemotePush: false},
		domain.Quote{ID: 1, Text: "T1", Category: "Wisdom"},
	)

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).Return(nil, nil)

	summary, err := f.engine.SyncOnce(context.Background())
	require.NoError(t, err)

	f.pusher.Wait()

	assert.Equal(t, 1, summary.PushedToServer)
	f.remote.AssertNotCalled(t, "PushQuote", mock.Anything, mock.Anything)
}

func TestSyncEngine_PushFailureDoesNotFailRun(t *testing.T) {
	f := newSyncFixture(t, nil, domain.Quote{ID: 1, Text: "T1", Category: "Wisdom"})

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).Return(nil, nil)
	f.remote.EXPECT().PushQuote(mock.Anything, mock.Anything).
		Return(domain.NewNetworkStatusError("posts", 500))

	summary, err := f.engine.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PushedToServer)

	f.pusher.Wait()
}

func TestSyncEngine_InvalidateDiscardsRunInFlight(t *testing.T) {
	f := newSyncFixture(t, nil, domain.Quote{ID: 1, Text: "T1", Category: "Wisdom"})
	before := f.store.All()

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).
		RunAndReturn(func(context.Context, int) ([]domain.Quote, error) {
			f.engine.Invalidate()
			return []domain.Quote{serverQuote(9, "late")}, nil
		})

	_, err := f.engine.SyncOnce(context.Background())

	require.ErrorIs(t, err, ErrSyncSuperseded)
	assert.Equal(t, before, f.store.All())
}

func TestSyncEngine_RunsAreSerialized(t *testing.T) {
	f := newSyncFixture(t, ports.StaticFlags{ports.FlagRemotePush: false})

	var (
		inFlight atomic.Int32
		maxSeen  atomic.Int32
	)

	f.remote.EXPECT().FetchSnapshot(mock.Anything, 5).
		RunAndReturn(func(context.Context, int) ([]domain.Quote, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)

			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}

			time.Sleep(10 * time.Millisecond)

			return nil, nil
		})

	var wg sync.WaitGroup

	for range 4 {
		wg.Go(func() {
			_, err := f.engine.SyncOnce(context.Background())
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

type recordingRecorder struct {
	mu     sync.Mutex
	runs   []error
	pushes []error
}

func (r *recordingRecorder) RunFinished(_ domain.SyncSummary, err error) {
	r.mu.Lock()
	r.runs = append(r.runs, err)
	r.mu.Unlock()
}

func (r *recordingRecorder) PushFinished(err error) {
	r.mu.Lock()
	r.pushes = append(r.pushes, err)
	r.mu.Unlock()
}

func TestSyncEngine_ReportsToRecorder(t *testing.T) {
	store, _ := newLoadedStore(t, newFlakyKV(), domain.Quote{ID: 1, Text: "a", Category: "X"})
	remote := mocks.NewMockRemoteQuoteSource(t)
	recorder := &recordingRecorder{}
	pusher := NewPusher(PusherConfig{Remote: remote, Recorder: recorder, Logger: discardLogger()})
	t.Cleanup(pusher.Close)

	engine := NewSyncEngine(SyncEngineConfig{
		Store: store, Remote: remote, Pusher: pusher, Recorder: recorder, Logger: discardLogger(),
	})

	boom := errors.New("boom")

	remote.EXPECT().FetchSnapshot(mock.Anything, DefaultFetchLimit).Return(nil, boom).Once()
	remote.EXPECT().FetchSnapshot(mock.Anything, DefaultFetchLimit).Return(nil, nil).Once()
	remote.EXPECT().PushQuote(mock.Anything, mock.Anything).Return(boom)

	_, err := engine.SyncOnce(context.Background())
	require.Error(t, err)

	_, err = engine.SyncOnce(context.Background())
	require.NoError(t, err)

	pusher.Wait()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	require.Len(t, recorder.runs, 2)
	require.ErrorIs(t, recorder.runs[0], boom)
	require.NoError(t, recorder.runs[1])
	require.Len(t, recorder.pushes, 1)
	assert.ErrorIs(t, recorder.pushes[0], boom)
}
