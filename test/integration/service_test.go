//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	quotehttp "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/bootstrap"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// service is an in-process quotesync server over a SQLite file.
type service struct {
	*httptest.Server

	runtime  *bootstrap.Runtime
	registry *prometheus.Registry
}

// serviceConfig returns the default configuration pointed at remoteURL with
// the database under dir. Retries are off so failures surface at once.
func serviceConfig(dir, remoteURL string) (*config.Config, error) {
	cfg, err := config.LoadFrom(dir, "")
	if err != nil {
		return nil, err
	}

	cfg.App.Environment = "test"
	cfg.Storage.Path = filepath.Join(dir, "quotesync.db")
	cfg.Remote.BaseURL = remoteURL
	cfg.Client.Timeout = 2 * time.Second
	cfg.Client.Retry.MaxAttempts = 1
	cfg.Sync.Enabled = false

	return cfg, cfg.Validate()
}

func startService(ctx context.Context, cfg *config.Config) (*service, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	recorder, err := metrics.NewSyncRecorder(registry)
	if err != nil {
		return nil, err
	}

	rt, err := bootstrap.New(ctx, cfg, bootstrap.Options{Recorder: recorder, Logger: logger})
	if err != nil {
		return nil, err
	}

	if cfg.Sync.Enabled {
		if err := rt.Core.Scheduler.Start(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
	}

	engine := gin.New()
	quotehttp.SetupRouter(engine, quotehttp.NewDefaultRouterConfig(
		logger,
		&cfg.App,
		handlers.NewHealthHandler(rt.Health, handlers.NewBuildInfo("integration", "none", "now"), registry),
		handlers.NewQuoteHandler(rt.Core.Service),
	))

	return &service{Server: httptest.NewServer(engine), runtime: rt, registry: registry}, nil
}

// stop closes the listener first so no request races the store shutdown.
func (s *service) stop() error {
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.runtime.Close(ctx)
}
