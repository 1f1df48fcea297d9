package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// ChangeFunc is notified after every committed change to the quote sequence,
// in commit order. quotes is a private copy the subscriber may keep. A
// subscriber must not mutate the store.
type ChangeFunc func(ctx context.Context, quotes []domain.Quote) error

// IDAllocator hands out fresh quote ids inside a store update.
type IDAllocator func() int

// QuoteStore owns the canonical quote sequence and the next-id counter.
// Every change is written to the durable slot before it becomes visible,
// so memory and storage never disagree.
type QuoteStore struct {
	kv     ports.KeyValueStore
	logger *slog.Logger

	mu     sync.RWMutex
	quotes []domain.Quote
	nextID int

	subMu       sync.RWMutex
	subscribers []ChangeFunc

	// committed numbers each commit under mu; published is the last number
	// delivered to subscribers. Together they keep notifications in commit
	// order without holding mu while subscribers run.
	committed uint64
	pubMu     sync.Mutex
	pubTurn   *sync.Cond
	published uint64
}

// QuoteStoreConfig contains the store dependencies.
type QuoteStoreConfig struct {
	KV     ports.KeyValueStore
	Logger *slog.Logger
}

// NewQuoteStore creates an empty store. Call Load before use.
func NewQuoteStore(cfg QuoteStoreConfig) *QuoteStore {
	if cfg.KV == nil {
		panic("app: QuoteStore requires a key-value store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &QuoteStore{
		kv:     cfg.KV,
		logger: logger.With(slog.String("component", "quote_store")),
		nextID: 1,
	}
	s.pubTurn = sync.NewCond(&s.pubMu)

	return s
}

// Subscribe registers fn to run after every committed change.
func (s *QuoteStore) Subscribe(fn ChangeFunc) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// Load reads the durable slot, falling back to the default quotes when the
// slot is absent or unreadable, back-fills missing ids, and persists the result.
func (s *QuoteStore) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, ports.KeyQuotes)
	if err != nil {
		return err
	}

	var loaded []domain.Quote

	switch {
	case !ok:
		s.logger.InfoContext(ctx, "no stored quotes, seeding defaults")
		loaded = domain.DefaultQuotes()
	default:
		if jsonErr := json.Unmarshal(raw, &loaded); jsonErr != nil {
			s.logger.WarnContext(ctx, "stored quotes unreadable, seeding defaults",
				slog.Any("error", jsonErr),
			)
			loaded = domain.DefaultQuotes()
		}
	}

	return s.Update(ctx, func(_ []domain.Quote, _ IDAllocator) ([]domain.Quote, error) {
		return loaded, nil
	})
}

// Add validates and appends a new quote with a fresh id.
func (s *QuoteStore) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	quote, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	err = s.Update(ctx, func(current []domain.Quote, alloc IDAllocator) ([]domain.Quote, error) {
		quote.ID = alloc()

		return append(current, quote), nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.logger.DebugContext(ctx, "quote added",
		slog.Int("quote_id", quote.ID),
		slog.String("category", quote.Category),
	)

	return quote, nil
}

// All returns a copy of the current sequence in insertion order.
func (s *QuoteStore) All() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.quotes)
}

// Len returns the number of stored quotes.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.quotes)
}

// NextID reports the id the next added quote will receive.
func (s *QuoteStore) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextID
}

// ReplaceAll swaps the whole sequence and persists it.
func (s *QuoteStore) ReplaceAll(ctx context.Context, quotes []domain.Quote) error {
	return s.Update(ctx, func(_ []domain.Quote, _ IDAllocator) ([]domain.Quote, error) {
		return quotes, nil
	})
}

// Persist writes the current sequence to the durable slot.
func (s *QuoteStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(ctx, s.quotes)
}

// Update runs fn against a copy of the current sequence while holding the
// store lock, then persists and publishes whatever fn returns. Entries
// without an id receive one, and the counter moves past every id present.
// If fn or the write fails, nothing changes. Once the write succeeds the
// change is committed: subscriber failures are logged, not returned.
func (s *QuoteStore) Update(
	ctx context.Context,
	fn func(current []domain.Quote, alloc IDAllocator) ([]domain.Quote, error),
) error {
	s.mu.Lock()

	next := s.nextID
	alloc := func() int {
		id := next
		next++

		return id
	}

	updated, err := fn(slices.Clone(s.quotes), alloc)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	updated = slices.Clone(updated)
	next = max(next, maxID(updated)+1)

	for i := range updated {
		if updated[i].ID <= 0 {
			updated[i].ID = alloc()
		}
	}

	if err := s.write(ctx, updated); err != nil {
		s.mu.Unlock()
		return err
	}

	s.quotes = updated
	s.nextID = next
	snapshot := slices.Clone(updated)
	s.committed++
	seq := s.committed
	s.mu.Unlock()

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	for s.published != seq-1 {
		s.pubTurn.Wait()
	}

	if err := s.publish(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "change subscriber failed after commit",
			slog.Int("quote_count", len(snapshot)),
			slog.Any("error", err),
		)
	}

	s.published = seq
	s.pubTurn.Broadcast()

	return nil
}

func (s *QuoteStore) write(ctx context.Context, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	data, err := json.Marshal(quotes)
	if err != nil {
		return domain.NewStorageError("encode", ports.KeyQuotes, err)
	}

	return s.kv.Set(ctx, ports.KeyQuotes, data)
}

func (s *QuoteStore) publish(ctx context.Context, snapshot []domain.Quote) error {
	s.subMu.RLock()
	subs := slices.Clone(s.subscribers)
	s.subMu.RUnlock()

	var errs []error

	for _, fn := range subs {
		if err := fn(ctx, slices.Clone(snapshot)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func maxID(quotes []domain.Quote) int {
	highest := 0
	for _, q := range quotes {
		highest = max(highest, q.ID)
	}

	return highest
}
