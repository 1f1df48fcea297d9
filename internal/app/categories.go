package app

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// CategoryIndex derives the sorted distinct categories from the store and
// owns the persisted category filter. It recomputes on every store change.
type CategoryIndex struct {
	store  *QuoteStore
	kv     ports.KeyValueStore
	logger *slog.Logger

	mu         sync.RWMutex
	categories []string
	filter     string
}

// CategoryIndexConfig contains the index dependencies.
type CategoryIndexConfig struct {
	Store  *QuoteStore
	KV     ports.KeyValueStore
	Logger *slog.Logger
}

// NewCategoryIndex creates the index and subscribes it to store changes.
func NewCategoryIndex(cfg CategoryIndexConfig) *CategoryIndex {
	if cfg.Store == nil || cfg.KV == nil {
		panic("app: CategoryIndex requires a store and a key-value store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idx := &CategoryIndex{
		store:  cfg.Store,
		kv:     cfg.KV,
		logger: logger.With(slog.String("component", "category_index")),
		filter: domain.FilterAll,
	}

	cfg.Store.Subscribe(idx.onChange)

	return idx
}

// Load restores the persisted filter, rebuilds the category list, and
// re-validates the filter against it.
func (c *CategoryIndex) Load(ctx context.Context) error {
	raw, ok, err := c.kv.Get(ctx, ports.KeyCategoryFilter)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if ok && len(raw) > 0 {
		c.filter = string(raw)
	} else {
		c.filter = domain.FilterAll
	}
	c.mu.Unlock()

	return c.onChange(ctx, c.store.All())
}

// Categories yields the distinct categories in ascending order.
// The sequence is a snapshot and may be ranged over repeatedly.
func (c *CategoryIndex) Categories() iter.Seq[string] {
	snapshot := c.CategoryList()

	return slices.Values(snapshot)
}

// CategoryList returns the distinct categories in ascending order.
func (c *CategoryIndex) CategoryList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.categories)
}

// CurrentFilter returns the selected filter, domain.FilterAll by default.
func (c *CategoryIndex) CurrentFilter() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.filter
}

// SetFilter stores a new filter value and persists it immediately.
// Category names are trimmed; an empty name is rejected.
func (c *CategoryIndex) SetFilter(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.NewValidationErrorWithValue("filter", "must not be empty", value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(ctx, ports.KeyCategoryFilter, []byte(value)); err != nil {
		return err
	}

	c.filter = value

	return nil
}

// ResolveFilter keeps the filter if it is domain.FilterAll or a known
// category, otherwise resets and persists domain.FilterAll.
func (c *CategoryIndex) ResolveFilter(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolveLocked(ctx)
}

// Filtered returns the quotes visible under the current filter, in store order.
func (c *CategoryIndex) Filtered() []domain.Quote {
	filter := c.CurrentFilter()

	var out []domain.Quote

	for _, q := range c.store.All() {
		if q.InFilter(filter) {
			out = append(out, q)
		}
	}

	return out
}

func (c *CategoryIndex) onChange(ctx context.Context, quotes []domain.Quote) error {
	cats := make([]string, 0, len(quotes))
	for _, q := range quotes {
		cats = append(cats, q.Category)
	}

	slices.Sort(cats)
	cats = slices.Compact(cats)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = cats

	_, err := c.resolveLocked(ctx)

	return err
}

func (c *CategoryIndex) resolveLocked(ctx context.Context) (string, error) {
	if c.filter == domain.FilterAll {
		return c.filter, nil
	}

	if _, found := slices.BinarySearch(c.categories, c.filter); found {
		return c.filter, nil
	}

	c.logger.InfoContext(ctx, "filter no longer matches a category, resetting",
		slog.String("filter", c.filter),
	)

	if err := c.kv.Set(ctx, ports.KeyCategoryFilter, []byte(domain.FilterAll)); err != nil {
		return c.filter, err
	}

	c.filter = domain.FilterAll

	return c.filter, nil
}
