package domain

import (
	"strings"
	"time"
)

const (
	// FilterAll is the filter value that selects every quote.
	FilterAll = "all"

	// ServerCategory is assigned to every quote that arrives from the remote endpoint.
	ServerCategory = "Server Data"
)

// Quote is a single quotation record.
// ID zero means "not yet assigned"; assigned ids are positive and unique.
type Quote struct {
	ID       int    `json:"id,omitempty"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// SameContent reports whether two quotes carry the same text and category.
func (q Quote) SameContent(other Quote) bool {
	return q.Text == other.Text && q.Category == other.Category
}

// NewQuote trims the inputs and rejects empty text or category.
func NewQuote(text, category string) (Quote, error) {
	text = strings.TrimSpace(text)
	category = strings.TrimSpace(category)

	if text == "" {
		return Quote{}, NewValidationError("text", "must not be empty")
	}

	if category == "" {
		return Quote{}, NewValidationError("category", "must not be empty")
	}

	return Quote{Text: text, Category: category}, nil
}

// InFilter reports whether q is visible under the given filter value.
func (q Quote) InFilter(filter string) bool {
	return filter == FilterAll || q.Category == filter
}

// SyncSummary counts what one reconciliation run did.
type SyncSummary struct {
	NewFromServer     int           `json:"newFromServer"`
	ConflictsResolved int           `json:"conflictsResolved"`
	PushedToServer    int           `json:"pushedToServer"`
	StartedAt         time.Time     `json:"startedAt"`
	Duration          time.Duration `json:"duration"`
}

// SyncResult is the outcome of the most recent run, successful or not.
type SyncResult struct {
	Summary SyncSummary
	Err     error
}

// DefaultQuotes returns the seed set used when no stored quotes exist.
// Ids are left unassigned so the store numbers them.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The only way to do great work is to love what you do.", Category: "Inspiration"},
		{Text: "Strive not to be a success, but rather to be of value.", Category: "Inspiration"},
		{Text: "The mind is everything. What you think you become.", Category: "Wisdom"},
		{Text: "An unexamined life is not worth living.", Category: "Wisdom"},
		{Text: "I have not failed. I've just found 10,000 ways that won't work.", Category: "Perseverance"},
	}
}
