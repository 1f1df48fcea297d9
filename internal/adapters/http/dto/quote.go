package dto

import (
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// QuoteResponse is a quote as returned by the API.
type QuoteResponse struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{ID: q.ID, Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a quote sequence, preserving order.
func NewQuoteResponses(qs []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(qs))
	for i, q := range qs {
		out[i] = NewQuoteResponse(q)
	}

	return out
}

// ListQuotesRequest is the query of GET /quotes.
type ListQuotesRequest struct {
	PaginationRequest

	Category string `form:"category" validate:"omitempty,max=100"`
}

// CreateQuoteRequest is the body of POST /quotes.
type CreateQuoteRequest struct {
	Text     string `json:"text"     validate:"required,notblank,max=1000"`
	Category string `json:"category" validate:"required,notblank,max=100"`
}

// FilterRequest is the body of PUT /filter.
type FilterRequest struct {
	Filter string `json:"filter" validate:"required,notblank,max=100"`
}

// FilterResponse reports the filter in effect.
type FilterResponse struct {
	Filter string `json:"filter"`
}

// CategoriesResponse lists the distinct categories and the current filter.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Filter     string   `json:"filter"`
}

// SyncSummaryResponse is the outcome of one sync run.
type SyncSummaryResponse struct {
	NewFromServer     int       `json:"newFromServer"`
	ConflictsResolved int       `json:"conflictsResolved"`
	PushedToServer    int       `json:"pushedToServer"`
	StartedAt         time.Time `json:"startedAt"`
	DurationMS        int64     `json:"durationMs"`
}

// NewSyncSummaryResponse converts a domain summary.
func NewSyncSummaryResponse(s domain.SyncSummary) SyncSummaryResponse {
	return SyncSummaryResponse{
		NewFromServer:     s.NewFromServer,
		ConflictsResolved: s.ConflictsResolved,
		PushedToServer:    s.PushedToServer,
		StartedAt:         s.StartedAt,
		DurationMS:        s.Duration.Milliseconds(),
	}
}

// SyncStatusResponse describes the most recent sync run. LastRun is nil
// before the first run; Error is set when that run failed.
type SyncStatusResponse struct {
	LastRun *SyncSummaryResponse `json:"lastRun"`
	Error   string               `json:"error,omitempty"`
}

// NewSyncStatusResponse converts the engine's last result.
func NewSyncStatusResponse(r domain.SyncResult, ok bool) SyncStatusResponse {
	if !ok {
		return SyncStatusResponse{}
	}

	summary := NewSyncSummaryResponse(r.Summary)
	resp := SyncStatusResponse{LastRun: &summary}

	if r.Err != nil {
		resp.Error = r.Err.Error()
	}

	return resp
}

// ImportResponse reports how many quotes an import appended.
type ImportResponse struct {
	Imported int `json:"imported"`
}
