// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles types.Config from defaults, an optional idp.yaml,
// a .env file, and IDP_* environment variables, in increasing precedence.
// Command-line flags are bound on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/idp-client/pkg/types"
)

// EnvPrefix is prepended to every environment variable, e.g. IDP_API_BASE_URL.
const EnvPrefix = "IDP"

const configName = "idp"

// Keys of settings the CLI also exposes as flags.
const (
	KeyBaseURL     = "api.base_url"
	KeyLogLevel    = "log.level"
	KeyLogFormat   = "log.format"
	KeyMetricsAddr = "metrics_addr"
	KeySearchLimit = "search.limit"
)

// Dir returns ~/.config/idp, or .idp when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".idp"
	}
	return filepath.Join(home, ".config", configName)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every key so that environment overrides apply to
// Unmarshal as well as Get.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "idp/0.1")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.resilience.retry_max_attempts", 3)
	v.SetDefault("api.resilience.retry_initial_backoff", 200*time.Millisecond)
	v.SetDefault("api.resilience.retry_max_backoff", 2*time.Second)
	v.SetDefault("api.resilience.breaker_enabled", true)
	v.SetDefault("api.resilience.breaker_min_requests", 5)
	v.SetDefault("api.resilience.breaker_failure_ratio", 0.6)
	v.SetDefault("api.resilience.breaker_open_timeout", 30*time.Second)

	v.SetDefault("session.backend", string(types.SessionFile))
	v.SetDefault("session.dir", Dir())
	v.SetDefault("session.logout_timeout", 5*time.Second)

	v.SetDefault("poll.interval", 3*time.Second)
	v.SetDefault("poll.backoff_after", 2)
	v.SetDefault("poll.max_backoff", 30*time.Second)
	v.SetDefault("poll.max_failures", 5)

	v.SetDefault("upload.rate_limit", 10)
	v.SetDefault("upload.rate_window", time.Minute)

	v.SetDefault(KeySearchLimit, 10)

	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsAddr, "")
}

// Load reads .env (if present), then the config file, and decodes the
// result. cfgFile overrides the search path (./idp.yaml, ~/.config/idp/idp.yaml).
// It returns the config file used, or "" when none was found.
func Load(v *viper.Viper, cfgFile string) (types.Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.Config{}, "", fmt.Errorf("loading .env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return types.Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
		slog.Debug("using config file", "path", used)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, "", err
	}
	return cfg, used, nil
}

// Validate rejects settings that would fail later in a less obvious way.
func Validate(cfg types.Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return errors.New("api.base_url must be set")
	}
	switch cfg.Session.Backend {
	case types.SessionFile, types.SessionSQLite:
	default:
		return fmt.Errorf("session.backend %q: use file or sqlite", cfg.Session.Backend)
	}
	if cfg.Poll.Interval < 0 || cfg.Poll.MaxBackoff < 0 {
		return errors.New("poll durations must not be negative")
	}
	if cfg.Upload.RateLimit < 0 {
		return errors.New("upload.rate_limit must not be negative")
	}
	return nil
}
