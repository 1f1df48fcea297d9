// Package app holds the quote core: the store, the category index, the
// sync engine and scheduler, the import/export codec, and the QuoteService
// facade the presentation layers call.
package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// QuoteService is the single entry point for the HTTP API and the CLI.
type QuoteService struct {
	store   *QuoteStore
	index   *CategoryIndex
	codec   *Codec
	syncer  Syncer
	status  func() (domain.SyncResult, bool)
	session ports.KeyValueStore
	flags   ports.FeatureFlags
	pick    func(n int) int
	logger  *slog.Logger
}

// QuoteServiceConfig contains the service dependencies.
type QuoteServiceConfig struct {
	Store   *QuoteStore
	Index   *CategoryIndex
	Codec   *Codec
	Sync    *SyncEngine
	Session ports.KeyValueStore
	Flags   ports.FeatureFlags

	// Pick returns a uniform index in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int

	Logger *slog.Logger
}

// NewQuoteService wires the facade. It panics when a core component is missing.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Store == nil || cfg.Index == nil || cfg.Codec == nil || cfg.Sync == nil || cfg.Session == nil {
		panic("app: QuoteService requires store, index, codec, sync engine and session store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	flags := cfg.Flags
	if flags == nil {
		flags = ports.StaticFlags(nil)
	}

	pick := cfg.Pick
	if pick == nil {
		pick = rand.IntN
	}

	return &QuoteService{
		store:   cfg.Store,
		index:   cfg.Index,
		codec:   cfg.Codec,
		syncer:  cfg.Sync,
		status:  cfg.Sync.LastResult,
		session: cfg.Session,
		flags:   flags,
		pick:    pick,
		logger:  logger,
	}
}

// List returns every quote, or only those in category when it is not empty.
func (s *QuoteService) List(_ context.Context, category string) []domain.Quote {
	all := s.store.All()
	if category == "" {
		return all
	}

	out := make([]domain.Quote, 0, len(all))

	for _, q := range all {
		if q.InFilter(category) {
			out = append(out, q)
		}
	}

	return out
}

// Add creates a quote.
func (s *QuoteService) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := s.store.Add(ctx, text, category)
	if err != nil {
		s.logger.InfoContext(ctx, "quote rejected", slog.Any("error", err))
		return domain.Quote{}, err
	}

	return q, nil
}

// Categories returns the distinct categories in ascending order.
func (s *QuoteService) Categories() []string {
	return s.index.CategoryList()
}

// Filter returns the current category filter.
func (s *QuoteService) Filter() string {
	return s.index.CurrentFilter()
}

// SetFilter stores value and returns the filter that is actually in effect,
// which is domain.FilterAll when value names no existing category.
func (s *QuoteService) SetFilter(ctx context.Context, value string) (string, error) {
	if err := s.index.SetFilter(ctx, value); err != nil {
		return "", err
	}

	return s.index.ResolveFilter(ctx)
}

// RandomQuote picks uniformly from the quotes visible under the current
// filter and remembers it as the last viewed quote.
func (s *QuoteService) RandomQuote(ctx context.Context) (domain.Quote, error) {
	visible := s.index.Filtered()
	if len(visible) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quote in category "+s.index.CurrentFilter(), "")
	}

	q := visible[s.pick(len(visible))]

	if s.flags.IsEnabled(ctx, ports.FlagLastViewed, true) {
		data, err := json.Marshal(q)
		if err != nil {
			return domain.Quote{}, domain.NewStorageError("encode", ports.KeyLastViewed, err)
		}

		if err := s.session.Set(ctx, ports.KeyLastViewed, data); err != nil {
			return domain.Quote{}, err
		}
	}

	return q, nil
}

// LastViewed returns the quote most recently returned by RandomQuote.
func (s *QuoteService) LastViewed(ctx context.Context) (domain.Quote, error) {
	raw, ok, err := s.session.Get(ctx, ports.KeyLastViewed)
	if err != nil {
		return domain.Quote{}, err
	}

	if !ok {
		return domain.Quote{}, domain.NewNotFoundError("last viewed quote", "")
	}

	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Quote{}, domain.NewStorageError("decode", ports.KeyLastViewed, err)
	}

	return q, nil
}

// Sync runs one reconciliation pass on demand.
func (s *QuoteService) Sync(ctx context.Context) (domain.SyncSummary, error) {
	return s.syncer.SyncOnce(ctx)
}

// SyncStatus returns the outcome of the most recent sync run.
func (s *QuoteService) SyncStatus() (domain.SyncResult, bool) {
	return s.status()
}

// Export renders the store as a JSON document.
func (s *QuoteService) Export(ctx context.Context) ([]byte, error) {
	return s.codec.Export(ctx)
}

// Import appends the quotes in the JSON document read from r.
func (s *QuoteService) Import(ctx context.Context, r io.Reader) (int, error) {
	return s.codec.ImportReader(ctx, r)
}
