package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// ExportFilename is the suggested name for exported documents.
const ExportFilename = "quotes.json"

// DefaultMaxImportBytes caps ImportReader when no limit is configured.
const DefaultMaxImportBytes = 1 << 20

// Codec converts the quote store to and from a JSON document.
type Codec struct {
	store    *QuoteStore
	exec     *Executor
	maxBytes int64
	logger   *slog.Logger
}

// CodecConfig contains the codec dependencies.
type CodecConfig struct {
	Store    *QuoteStore
	Executor *Executor

	// MaxImportBytes caps documents read by ImportReader.
	MaxImportBytes int64

	Logger *slog.Logger
}

// NewCodec creates an import/export codec.
func NewCodec(cfg CodecConfig) *Codec {
	if cfg.Store == nil {
		panic("app: Codec requires a store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exec := cfg.Executor
	if exec == nil {
		exec = NewExecutor(logger)
	}

	maxBytes := cfg.MaxImportBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImportBytes
	}

	return &Codec{
		store:    cfg.Store,
		exec:     exec,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "codec")),
	}
}

// Export renders the whole store as a two-space indented JSON array.
func (c *Codec) Export(_ context.Context) ([]byte, error) {
	quotes := c.store.All()
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	data, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	return data, nil
}

// Import appends every quote in raw to the store and returns how many were added.
// The document must be a JSON array whose elements carry non-empty text and
// category strings; id is optional. Nothing is stored if any element is invalid.
// Ids are not checked against existing quotes.
func (c *Codec) Import(ctx context.Context, raw []byte) (int, error) {
	op := Operation[[]byte, []domain.Quote, []domain.Quote, int]{
		Name: "import",
		Perform: func(_ context.Context, raw []byte) ([]domain.Quote, error) {
			return decodeImport(raw)
		},
		Verify: func(_ context.Context, _ []byte, decoded []domain.Quote) ([]domain.Quote, error) {
			return decoded, nil
		},
		Archive: func(ctx context.Context, _ []byte, quotes []domain.Quote) error {
			return c.store.Update(ctx, func(current []domain.Quote, _ IDAllocator) ([]domain.Quote, error) {
				return append(current, quotes...), nil
			})
		},
		Respond: func(ctx context.Context, _ []byte, quotes []domain.Quote) (int, error) {
			c.logger.InfoContext(ctx, "quotes imported", slog.Int("count", len(quotes)))
			return len(quotes), nil
		},
	}

	return Execute(ctx, c.exec, op, raw)
}

// ImportReader reads a document of at most the configured size and imports it.
func (c *Codec) ImportReader(ctx context.Context, r io.Reader) (int, error) {
	raw, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return 0, domain.NewFormatError("reading document: " + err.Error())
	}

	if int64(len(raw)) > c.maxBytes {
		return 0, domain.NewFormatError(fmt.Sprintf("document exceeds %d bytes", c.maxBytes))
	}

	return c.Import(ctx, raw)
}

func decodeImport(raw []byte) ([]domain.Quote, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, domain.NewFormatError("document must be a JSON array")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, domain.NewFormatError("document is not valid JSON: " + err.Error())
	}

	quotes := make([]domain.Quote, 0, len(elements))

	for i, el := range elements {
		q, err := decodeElement(i, el)
		if err != nil {
			return nil, err
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

func decodeElement(index int, el json.RawMessage) (domain.Quote, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(el, &fields); err != nil || fields == nil {
		return domain.Quote{}, domain.NewElementFormatError(index, "element must be an object")
	}

	text, err := requiredString(fields, "text")
	if err != nil {
		return domain.Quote{}, domain.NewElementFormatError(index, err.Error())
	}

	category, err := requiredString(fields, "category")
	if err != nil {
		return domain.Quote{}, domain.NewElementFormatError(index, err.Error())
	}

	id, err := optionalID(fields)
	if err != nil {
		return domain.Quote{}, domain.NewElementFormatError(index, err.Error())
	}

	return domain.Quote{ID: id, Text: text, Category: category}, nil
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("missing %s", name)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s must be a string", name)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}

	return s, nil
}

func optionalID(fields map[string]json.RawMessage) (int, error) {
	raw, ok := fields["id"]
	if !ok || string(raw) == "null" {
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("id must be a number")
	}

	if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
		return 0, errors.New("id must be a non-negative integer")
	}

	return int(n), nil
}
