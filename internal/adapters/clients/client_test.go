package clients

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		ServiceName: "posts",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
	}
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Errorf("closing response body: %v", err)
	}
}

// countingServer answers with the statuses in order, repeating the last one.
func countingServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1)) - 1
		w.WriteHeader(statuses[min(n, len(statuses)-1)])
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "config is required")

	cfg := testConfig("http://example.invalid")
	cfg.ServiceName = ""

	_, err = New(cfg)
	require.ErrorContains(t, err, "service name is required")
}

func TestNew_Defaults(t *testing.T) {
	cfg := &Config{ServiceName: "posts", BaseURL: "https://jsonplaceholder.typicode.com/"}

	c, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, "https://jsonplaceholder.typicode.com", c.baseURL)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
	assert.Equal(t, 1, c.cfg.Retry.MaxAttempts)
	assert.Equal(t, "posts", c.ServiceName())

	tr, ok := c.http.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
	assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, defaultIdleConnTimeout, tr.IdleConnTimeout)
}

func TestNew_TransportFromConfig(t *testing.T) {
	cfg := testConfig("http://example.invalid")
	cfg.Transport = config.TransportConfig{
		MaxIdleConns:        7,
		MaxIdleConnsPerHost: 3,
		IdleConnTimeout:     time.Second,
	}

	c, err := New(cfg)
	require.NoError(t, err)

	tr := c.http.Transport.(*http.Transport) //nolint:forcetypeassert // built by New
	assert.Equal(t, 7, tr.MaxIdleConns)
	assert.Equal(t, 3, tr.MaxIdleConnsPerHost)
	assert.Equal(t, time.Second, tr.IdleConnTimeout)
}

func TestClient_PropagatesIDs(t *testing.T) {
	var gotRequestID, gotCorrelationID, gotAccept string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(middleware.HeaderRequestID)
		gotCorrelationID = r.Header.Get(middleware.HeaderCorrelationID)
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	ctx := middleware.ContextWithRequestID(context.Background(), "req-1")
	ctx = middleware.ContextWithCorrelationID(ctx, "corr-1")

	resp, err := c.Get(ctx, "/posts?_limit=5")
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, "corr-1", gotCorrelationID)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	srv, calls := countingServer(t, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusOK)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), "/posts")
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GetReturnsClientErrorsWithoutRetry(t *testing.T) {
	srv, calls := countingServer(t, http.StatusNotFound)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), "/posts")
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GetExhaustsAttempts(t *testing.T) {
	srv, calls := countingServer(t, http.StatusServiceUnavailable)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/posts")
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_PostIsNotRetried(t *testing.T) {
	var gotBody, gotContentType string

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "/posts", strings.NewReader(`{"title":"x"}`))
	require.Error(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.JSONEq(t, `{"title":"x"}`, gotBody)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_PostReturnsCreated(t *testing.T) {
	srv, _ := countingServer(t, http.StatusCreated)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), "posts", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClient_CircuitOpensAndShortCircuits(t *testing.T) {
	srv, calls := countingServer(t, http.StatusServiceUnavailable)

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Circuit.MaxFailures = 2

	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/posts")
	require.Error(t, err)
	assert.Equal(t, StateClosed, c.CircuitState())

	_, err = c.Get(context.Background(), "/posts")
	require.Error(t, err)
	assert.Equal(t, StateOpen, c.CircuitState())

	before := calls.Load()

	_, err = c.Get(context.Background(), "/posts")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, calls.Load())
}

func TestClient_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.Retry.MaxAttempts = 1

	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/posts")
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	srv, calls := countingServer(t, http.StatusServiceUnavailable)

	cfg := testConfig(srv.URL)
	cfg.Retry.InitialInterval = time.Hour
	cfg.Retry.MaxInterval = time.Hour

	c, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Get(ctx, "/posts")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_AuthFuncRunsOnEveryAttempt(t *testing.T) {
	srv, _ := countingServer(t, http.StatusServiceUnavailable, http.StatusOK)

	var authCalls atomic.Int32

	cfg := testConfig(srv.URL)
	cfg.AuthFunc = func(r *http.Request) {
		authCalls.Add(1)
		r.Header.Set("Authorization", "Bearer t")
	}

	c, err := New(cfg)
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), "/posts")
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, int32(2), authCalls.Load())
}

func TestClient_BuildURL(t *testing.T) {
	c, err := New(testConfig("https://jsonplaceholder.typicode.com/"))
	require.NoError(t, err)

	assert.Equal(t, "https://jsonplaceholder.typicode.com/posts", c.buildURL("/posts"))
	assert.Equal(t, "https://jsonplaceholder.typicode.com/posts?_limit=5", c.buildURL("posts?_limit=5"))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := testConfig("http://example.invalid")
	cfg.Retry.InitialInterval = 100 * time.Millisecond
	cfg.Retry.MaxInterval = time.Second
	cfg.Retry.JitterFactor = 0

	c, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, c.calculateBackoff(0))
	assert.Equal(t, 200*time.Millisecond, c.calculateBackoff(1))
	assert.Equal(t, 400*time.Millisecond, c.calculateBackoff(2))
	assert.Equal(t, time.Second, c.calculateBackoff(10))
}

func TestCalculateBackoff_Jitter(t *testing.T) {
	cfg := testConfig("http://example.invalid")
	cfg.Retry.InitialInterval = 100 * time.Millisecond
	cfg.Retry.MaxInterval = time.Second
	cfg.Retry.JitterFactor = 0.5

	c, err := New(cfg)
	require.NoError(t, err)

	for range 20 {
		b := c.calculateBackoff(0)
		assert.GreaterOrEqual(t, b, 50*time.Millisecond)
		assert.LessOrEqual(t, b, 150*time.Millisecond)
	}
}

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"net timeout", timeoutErr{timeout: true}, true},
		{"net no timeout", timeoutErr{}, false},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
