package types

import "time"

// HTTPConfig holds shared HTTP settings for calls to the backend API.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "idp/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries of HTTP 429/503 responses to writes
	// (default 3). Reads are retried by the resilience executor instead.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// APIConfig locates the backend and shapes how the client talks to it.
type APIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the API root, e.g. "http://localhost:8000/api/v1".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Resilience configures retry and circuit breaking for idempotent reads.
	Resilience ResilienceConfig `json:"resilience" yaml:"resilience" mapstructure:"resilience"`
}

// ResilienceConfig mirrors the retry/breaker knobs of the resilience executor.
type ResilienceConfig struct {
	RetryMaxAttempts    int           `json:"retry_max_attempts" yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `json:"retry_initial_backoff" yaml:"retry_initial_backoff" mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `json:"retry_max_backoff" yaml:"retry_max_backoff" mapstructure:"retry_max_backoff"`
	BreakerEnabled      bool          `json:"breaker_enabled" yaml:"breaker_enabled" mapstructure:"breaker_enabled"`
	BreakerMinRequests  uint32        `json:"breaker_min_requests" yaml:"breaker_min_requests" mapstructure:"breaker_min_requests"`
	BreakerFailureRatio float64       `json:"breaker_failure_ratio" yaml:"breaker_failure_ratio" mapstructure:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `json:"breaker_open_timeout" yaml:"breaker_open_timeout" mapstructure:"breaker_open_timeout"`
}

// SessionBackend selects where the session token and user are persisted.
type SessionBackend string

const (
	SessionFile   SessionBackend = "file"
	SessionSQLite SessionBackend = "sqlite"
)

// SessionConfig holds settings for session persistence.
type SessionConfig struct {
	// Backend selects the store: file (YAML) or sqlite.
	Backend SessionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Dir is the directory holding session.yaml or session.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// LogoutTimeout bounds the best-effort server logout notification.
	LogoutTimeout time.Duration `json:"logout_timeout" yaml:"logout_timeout" mapstructure:"logout_timeout"`
}

// PollConfig controls document status polling.
type PollConfig struct {
	// Interval is the fixed delay between status fetches (default 3s).
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`

	// BackoffAfter is the number of consecutive failures after which the
	// delay starts doubling (default 2).
	BackoffAfter int `json:"backoff_after" yaml:"backoff_after" mapstructure:"backoff_after"`

	// MaxBackoff caps the delay between polls while failing (default 30s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`

	// MaxFailures is the number of consecutive failures after which the
	// poller gives up (default 5).
	MaxFailures int `json:"max_failures" yaml:"max_failures" mapstructure:"max_failures"`
}

// UploadConfig holds client-side upload throttling.
type UploadConfig struct {
	// RateLimit is the number of uploads allowed per RateWindow. Zero
	// disables the limiter.
	RateLimit int `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateWindow is the window RateLimit applies to.
	RateWindow time.Duration `json:"rate_window" yaml:"rate_window" mapstructure:"rate_window"`
}

// SearchConfig holds defaults for semantic search.
type SearchConfig struct {
	// Limit is the default result count (one of 5, 10, 20, 50).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every setting the CLI reads from file, environment, and flags.
type Config struct {
	API     APIConfig     `json:"api" yaml:"api" mapstructure:"api"`
	Session SessionConfig `json:"session" yaml:"session" mapstructure:"session"`
	Poll    PollConfig    `json:"poll" yaml:"poll" mapstructure:"poll"`
	Upload  UploadConfig  `json:"upload" yaml:"upload" mapstructure:"upload"`
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`

	// MetricsAddr, when set, serves Prometheus metrics for long-running commands.
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" mapstructure:"metrics_addr"`
}
