// Package http serves the quotesync API and operational endpoints with Gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// ImportPath is the route whose body is a whole import document.
const ImportPath = "/api/v1/import"

// ShutdownHook releases a resource once the listener has drained.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// Option configures a Server.
type Option func(*Server)

// WithImportLimit lets POST ImportPath carry a document of up to n bytes even
// when n exceeds the general request limit. The codec enforces n itself, so
// the transport allows one byte more and leaves the rejection to it.
func WithImportLimit(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.importLimit = max(s.config.MaxRequestSize, n+1)
		}
	}
}

// WithShutdownHook is OnShutdown as a construction option.
func WithShutdownHook(name string, fn ShutdownHook) Option {
	return func(s *Server) {
		s.OnShutdown(name, fn)
	}
}

// Server owns the Gin engine, the listener, and the resources that must be
// released after in-flight requests finish.
type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	config      *config.ServerConfig
	importLimit int64
	logger      *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	hooks    []namedHook
}

// New creates a server for cfg. Routes are registered on Engine afterwards.
func New(cfg *config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:      gin.New(),
		config:      cfg,
		importLimit: cfg.MaxRequestSize,
		logger:      logger.With(slog.String("component", "http_server")),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(bodyLimit(cfg.MaxRequestSize, map[string]int64{ImportPath: s.importLimit}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Engine returns the underlying Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.config
}

// ImportLimit returns the body limit applied to ImportPath.
func (s *Server) ImportLimit() int64 {
	return s.importLimit
}

// OnShutdown registers fn to run after the listener drains. Hooks run in
// reverse registration order.
func (s *Server) OnShutdown(name string, fn ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, namedHook{name: name, fn: fn})
}

// Start binds the listener and serves in the background. A bind failure is
// delivered on the returned channel, which is closed once serving stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		errCh <- fmt.Errorf("binding %s: %w", s.httpServer.Addr, err)
		close(errCh)

		return errCh
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("serving quotesync API",
		slog.String("addr", ln.Addr().String()),
		slog.Int64("max_request_bytes", s.config.MaxRequestSize),
		slog.Int64("import_limit_bytes", s.importLimit),
		slog.Duration("write_timeout", s.config.WriteTimeout),
	)

	go func() {
		defer close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return errCh
}

// Shutdown stops accepting requests, waits for active ones within ctx, and
// then runs the shutdown hooks. Every hook runs even if an earlier step failed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("draining HTTP server")

	var errs []error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}

	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.hooks = nil
	s.mu.Unlock()

	for _, h := range slices.Backward(hooks) {
		if err := h.fn(ctx); err != nil {
			s.logger.Error("shutdown hook failed", slog.String("hook", h.name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))

			continue
		}

		s.logger.Debug("shutdown hook done", slog.String("hook", h.name))
	}

	return errors.Join(errs...)
}

// Addr returns the bound address once Start succeeded, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.httpServer.Addr
}

// bodyLimit caps request bodies at defaultMax, or at the override for the
// request path.
func bodyLimit(defaultMax int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultMax
		if n, ok := overrides[c.Request.URL.Path]; ok {
			limit = n
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
