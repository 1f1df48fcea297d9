package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyKV wraps a memory store and fails writes while failSet is true.
type flakyKV struct {
	*memory.Store

	mu      sync.Mutex
	failSet bool
}

func newFlakyKV() *flakyKV {
	return &flakyKV{Store: memory.New()}
}

func (f *flakyKV) setFailing(v bool) {
	f.mu.Lock()
	f.failSet = v
	f.mu.Unlock()
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	failing := f.failSet
	f.mu.Unlock()

	if failing {
		return domain.NewStorageError("set", key, errors.New("disk full"))
	}

	return f.Store.Set(ctx, key, value)
}

// newLoadedStore returns a store seeded with quotes and an index subscribed to it.
func newLoadedStore(t *testing.T, kv *flakyKV, quotes ...domain.Quote) (*QuoteStore, *CategoryIndex) {
	t.Helper()

	ctx := context.Background()
	store := NewQuoteStore(QuoteStoreConfig{KV: kv, Logger: discardLogger()})
	index := NewCategoryIndex(CategoryIndexConfig{Store: store, KV: kv, Logger: discardLogger()})

	require.NoError(t, store.Load(ctx))

	if quotes != nil {
		require.NoError(t, store.ReplaceAll(ctx, quotes))
	}

	require.NoError(t, index.Load(ctx))

	return store, index
}

func ids(quotes []domain.Quote) []int {
	out := make([]int, len(quotes))
	for i, q := range quotes {
		out[i] = q.ID
	}

	return out
}
