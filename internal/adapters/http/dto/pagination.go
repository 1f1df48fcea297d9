package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

const (
	// DefaultLimit applies when a list request names no limit.
	DefaultLimit = 50

	// MaxLimit caps the page size.
	MaxLimit = 500
)

// ErrInvalidCursor is returned when a cursor cannot be decoded or no longer
// points at a quote in the sequence.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest represents pagination query parameters.
type PaginationRequest struct {
	// Cursor is the opaque NextCursor of a previous page.
	Cursor string `form:"cursor"`

	Limit int `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// PaginatedResponse is one page of a sequence.
type PaginatedResponse[T any] struct {
	Items []T `json:"items"`

	// NextCursor is empty on the last page.
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// CursorData is the position encoded in a cursor: the id of the last item
// on the previous page. Positions are by id rather than offset so a page
// stays stable when quotes are appended.
type CursorData struct {
	AfterID int `json:"after"`
}

// EncodeCursor encodes cursor data to a URL-safe string.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes a cursor string.
func DecodeCursor(encoded string) (*CursorData, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.AfterID <= 0 {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}

// Paginate returns the page of items that follows the request's cursor.
// id reports an item's stable position key. A cursor naming an id that is
// no longer present returns ErrInvalidCursor.
func Paginate[T any](items []T, req *PaginationRequest, id func(T) int) (*PaginatedResponse[T], error) {
	start := 0

	if req.Cursor != "" {
		cursor, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}

		start = -1

		for i, item := range items {
			if id(item) == cursor.AfterID {
				start = i + 1
				break
			}
		}

		if start < 0 {
			return nil, ErrInvalidCursor
		}
	}

	limit := req.GetLimit()
	end := min(start+limit, len(items))

	page := &PaginatedResponse[T]{
		Items:   append([]T{}, items[start:end]...),
		HasMore: end < len(items),
	}

	if page.HasMore && end > start {
		page.NextCursor = EncodeCursor(&CursorData{AfterID: id(items[end-1])})
	}

	return page, nil
}
