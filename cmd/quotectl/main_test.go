package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
)

// harness runs quotectl invocations against one shared durable store, the
// way repeated runs share the SQLite file.
type harness struct {
	t       *testing.T
	durable *memory.Store
	remote  *mocks.MockRemoteQuoteSource
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	return &harness{t: t, durable: memory.New(), remote: mocks.NewMockRemoteQuoteSource(t)}
}

func (h *harness) open(ctx context.Context, _ *globalOptions) (*session, error) {
	core, err := app.NewCore(ctx, app.CoreConfig{
		Durable: h.durable,
		Session: memory.New(),
		Remote:  h.remote,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, err
	}

	return &session{
		service: core.Service,
		close: func(ctx context.Context) error {
			core.Close(ctx)
			return nil
		},
	}, nil
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	c := newCLI(h.open)

	var out bytes.Buffer
	c.root.SetOut(&out)
	c.root.SetErr(io.Discard)

	err := c.Execute(context.Background(), args)

	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()

	out, err := h.run(args...)
	require.NoError(h.t, err)

	return out
}

func TestList(t *testing.T) {
	h := newHarness(t)

	lines := strings.Split(strings.TrimSpace(h.mustRun("list")), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "[Inspiration]")

	out := h.mustRun("list", "--category", "Wisdom")
	assert.Equal(t, 2, strings.Count(out, "[Wisdom]"))
	assert.NotContains(t, out, "Inspiration")
}

func TestAdd(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "added #6\n", h.mustRun("add", "Humor", "I", "am", "on", "a", "seafood", "diet"))
	assert.Contains(t, h.mustRun("list", "-c", "Humor"), "I am on a seafood diet")

	_, err := h.run("add", "Humor")
	require.Error(t, err)

	_, err = h.run("add", "  ", "text")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestFilter(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "all\n", h.mustRun("filter"))

	out := h.mustRun("filter", "Perseverance")
	assert.Contains(t, out, "filter: Perseverance")
	assert.Contains(t, out, "10,000 ways")

	assert.Equal(t, "Perseverance\n", h.mustRun("filter"), "filter survives restarts")
	assert.Contains(t, h.mustRun("categories"), "* Perseverance")

	assert.Contains(t, h.mustRun("filter", "Astrology"), "filter: all")
}

func TestRandom_FollowsFilter(t *testing.T) {
	h := newHarness(t)

	h.mustRun("add", "Solo", "Only one")
	h.mustRun("filter", "Solo")

	assert.Contains(t, h.mustRun("random"), "Only one")
}

func TestCategories(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "* all\n  Inspiration\n  Perseverance\n  Wisdom\n", h.mustRun("categories"))
}

func TestSync(t *testing.T) {
	h := newHarness(t)
	h.remote.EXPECT().FetchSnapshot(mock.Anything, app.DefaultFetchLimit).Return([]domain.Quote{
		{ID: 1, Text: "sunt aut facere", Category: domain.ServerCategory},
		{ID: 2, Text: "qui est esse", Category: domain.ServerCategory},
		{ID: 3, Text: "ea molestias", Category: domain.ServerCategory},
		{ID: 4, Text: "eum et est", Category: domain.ServerCategory},
		{ID: 5, Text: "nesciunt quas", Category: domain.ServerCategory},
		{ID: 6, Text: "dolorem eum", Category: domain.ServerCategory},
	}, nil).Once()

	out := h.mustRun("sync")

	assert.Equal(t, "new from server: 1\nconflicts resolved: 5\npushed to server: 0\n", out)
	assert.Equal(t, 6, strings.Count(h.mustRun("list"), "[Server Data]"))
}

func TestSync_Failure(t *testing.T) {
	h := newHarness(t)
	h.remote.EXPECT().FetchSnapshot(mock.Anything, mock.Anything).
		Return(nil, domain.NewNetworkStatusError("posts", 500)).Once()

	_, err := h.run("sync")

	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorContains(t, err, "sync failed")
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "quotes.json")

	h.mustRun("export", file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category": "Wisdom"`)

	assert.Equal(t, "imported 5 quotes\n", h.mustRun("import", file))
	assert.Len(t, strings.Split(strings.TrimSpace(h.mustRun("list")), "\n"), 10)

	assert.True(t, strings.HasPrefix(h.mustRun("export"), "[\n"))
}

func TestImport_Rejected(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"text":"ok","category":"a"},{"text":1}]`), 0o600))

	_, err := h.run("import", file)
	require.ErrorIs(t, err, domain.ErrFormat)

	_, err = h.run("import", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "opening")

	assert.Len(t, strings.Split(strings.TrimSpace(h.mustRun("list")), "\n"), 5)
}
