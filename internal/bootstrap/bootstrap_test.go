package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg, err := config.LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	cfg.Storage.Path = filepath.Join(t.TempDir(), "data", "quotes.db")
	cfg.Remote.BaseURL = baseURL
	cfg.Client.Retry.MaxAttempts = 1

	return cfg
}

func TestNew_WiresCoreAndHealth(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"title":"sunt aut facere","body":"x","userId":1}]`)
	}))
	defer remote.Close()

	ctx := context.Background()
	cfg := testConfig(t, remote.URL)

	rt, err := New(ctx, cfg, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	assert.Equal(t, []string{"sqlite", "remote:posts"}, rt.Health.Names())
	assert.Len(t, rt.Core.Service.List(ctx, ""), 5)

	result := rt.Health.CheckAll(ctx)
	assert.Len(t, result.Checks, 2)

	summary, err := rt.Core.Service.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ConflictsResolved)

	require.NoError(t, rt.Close(ctx))
}

func TestNew_PersistsAcrossRuntimes(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "http://127.0.0.1:1")
	opts := Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rt, err := New(ctx, cfg, opts)
	require.NoError(t, err)

	_, err = rt.Core.Service.Add(ctx, "Stay hungry.", "Drive")
	require.NoError(t, err)
	require.NoError(t, rt.Close(ctx))

	rt, err = New(ctx, cfg, opts)
	require.NoError(t, err)

	defer func() { _ = rt.Close(ctx) }()

	assert.Len(t, rt.Core.Service.List(ctx, "Drive"), 1)
}

func TestNew_InvalidRemote(t *testing.T) {
	cfg := testConfig(t, "http://example.invalid")
	cfg.Remote.Name = ""

	_, err := New(context.Background(), cfg, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	require.ErrorContains(t, err, "creating HTTP client")
}
