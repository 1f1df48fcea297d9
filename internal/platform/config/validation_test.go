package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "quotesync", Version: "1.0.0", Environment: "test"},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Client: ClientConfig{
			Timeout: 10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     2 * time.Second,
				Multiplier:      2.0,
				JitterFactor:    0.25,
			},
			CircuitBreaker: CircuitBreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenLimit: 3},
			Transport: TransportConfig{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Remote: RemoteConfig{BaseURL: DefaultRemoteBaseURL, Name: "posts", FetchLimit: 5},
		Sync: SyncConfig{
			Enabled:         true,
			Interval:        30 * time.Second,
			PushConcurrency: 4,
			PushTimeout:     10 * time.Second,
		},
		Storage: StorageConfig{Path: ":memory:", BusyTimeout: 5 * time.Second, MaxImportBytes: 1 << 20},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_FieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing app name", func(c *Config) { c.App.Name = "" }, "app.name is required"},
		{"invalid environment", func(c *Config) { c.App.Environment = "staging" }, "app.environment must be one of"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port must be at most 65535"},
		{"read timeout too short", func(c *Config) { c.Server.ReadTimeout = time.Millisecond }, "server.read_timeout must be at least"},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level must be one of"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format must be one of"},
		{
			"log file without path",
			func(c *Config) { c.Log.File = LogFileConfig{Enabled: true} },
			"log.file.path is required when Enabled true",
		},
		{
			"telemetry without endpoint",
			func(c *Config) { c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "quotesync"} },
			"telemetry.endpoint is required when Enabled true",
		},
		{"sampling rate above one", func(c *Config) { c.Telemetry.SamplingRate = 1.5 }, "telemetry.sampling_rate must be at most 1"},
		{"retry attempts zero", func(c *Config) { c.Client.Retry.MaxAttempts = 0 }, "client.retry.max_attempts is required"},
		{"retry multiplier too small", func(c *Config) { c.Client.Retry.Multiplier = 1.0 }, "client.retry.multiplier must be at least 1.1"},
		{"circuit failures zero", func(c *Config) { c.Client.CircuitBreaker.MaxFailures = 0 }, "client.circuit_breaker.max_failures is required"},
		{"remote url invalid", func(c *Config) { c.Remote.BaseURL = "not a url" }, "remote.base_url must be a valid URL"},
		{"fetch limit too large", func(c *Config) { c.Remote.FetchLimit = 500 }, "remote.fetch_limit must be at most 100"},
		{"sync interval below one second", func(c *Config) { c.Sync.Interval = 500 * time.Millisecond }, "sync.interval must be at least 1s"},
		{"push concurrency zero", func(c *Config) { c.Sync.PushConcurrency = 0 }, "sync.push_concurrency is required"},
		{"storage path missing", func(c *Config) { c.Storage.Path = "" }, "storage.path is required"},
		{
			"client timeout exceeds interval",
			func(c *Config) {
				c.Sync.Interval = 5 * time.Second
				c.Client.Timeout = 10 * time.Second
			},
			"client.timeout (10s) must not exceed sync.interval (5s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_Validate_DisabledSectionsSkipConditionalRules(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry = TelemetryConfig{Enabled: false}
	cfg.Log.File = LogFileConfig{Enabled: false}
	cfg.Sync.Enabled = false
	cfg.Sync.Interval = time.Second

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_ValidEnvironments(t *testing.T) {
	for _, env := range []string{"local", "dev", "qa", "prod", "test"} {
		t.Run(env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = env

			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.App.Name = ""
	cfg.Server.Port = 0
	cfg.Remote.Name = ""

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "app.name")
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "remote.name")
}

func TestFormatFieldPath(t *testing.T) {
	assert.Equal(t, "server.port", formatFieldPath("Config.server.port"))
	assert.Equal(t, "client.circuit_breaker.max_failures", formatFieldPath("Config.client.circuit_breaker.max_failures"))
	assert.Equal(t, "Config", formatFieldPath("Config"))
}
