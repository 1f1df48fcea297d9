// Package ports defines the contracts between the quote core and its infrastructure.
// The application layer depends only on these interfaces; adapters under
// internal/adapters implement them.
//
// Every blocking method takes a context first and reports failures as
// domain errors (domain.StorageError, domain.NetworkError).
package ports

import (
	"context"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Well-known key-value slot names.
const (
	// KeyQuotes holds the JSON-encoded quote sequence.
	KeyQuotes = "quotes"

	// KeyCategoryFilter holds the last selected category filter.
	KeyCategoryFilter = "lastCategoryFilter"

	// KeyLastViewed holds the last displayed quote in the session store.
	KeyLastViewed = "lastQuote"
)

// KeyValueStore is a string-keyed slot store holding opaque byte values.
// The durable store and the session store both implement it.
//
// Example usage in application layer:
//
//	raw, ok, err := kv.Get(ctx, ports.KeyQuotes)
//	if err != nil {
//	    return err // already a *domain.StorageError
//	}
type KeyValueStore interface {
	// Get returns the value for key. ok is false when the key was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// RemoteQuoteSource is the mock remote endpoint the sync engine reconciles against.
type RemoteQuoteSource interface {
	// FetchSnapshot returns up to limit remote records already translated to quotes.
	// Returns a domain.NetworkError on transport failure or a non-2xx status.
	FetchSnapshot(ctx context.Context, limit int) ([]domain.Quote, error)

	// PushQuote sends one local quote to the remote endpoint.
	// The response body is ignored; only failure is reported.
	PushQuote(ctx context.Context, quote domain.Quote) error
}
