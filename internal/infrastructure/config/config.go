package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all client configuration
type Config struct {
	App       AppConfig
	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Realtime  RealtimeConfig
	Checkout  CheckoutConfig
	Sandbox   SandboxConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// APIConfig describes how to reach the storefront backend.
type APIConfig struct {
	BaseURL            string
	TryOnURL           string
	Timeout            time.Duration
	TryOnTimeout       time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	OverloadRetryDelay time.Duration
	RateLimit          float64 // requests per second, 0 disables the limiter
	DebounceWindow     time.Duration
}

// SessionConfig selects where the session token is persisted.
type SessionConfig struct {
	Store string // file, redis, memory
	Path  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// RealtimeConfig holds WebSocket channel settings
type RealtimeConfig struct {
	AuthDelay      time.Duration
	MaxReconnects  int
	ReconnectBase  time.Duration
	ReconnectLimit time.Duration
}

// CheckoutConfig holds checkout settings
type CheckoutConfig struct {
	DuplicateTTL time.Duration
}

// SandboxConfig configures the local reference backend.
type SandboxConfig struct {
	Port         string
	JWTSecret    string
	DSN          string
	SeedProducts int
	FailFirst    int
}

// Load reads configuration from config.toml, STOREFRONT_ environment
// variables and defaults.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with command line flags taking the highest priority.
// Flag names use dashes in place of the dots and underscores of config keys,
// e.g. --api-base-url binds api.base_url.
//
// Priority (highest to lowest):
// 1. Flags explicitly set on the command line
// 2. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_API_BASE_URL)
// 3. config.toml
// 4. Built-in defaults
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".storefront"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful value for these, so they cannot go through applyDefaults.
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("realtime.max_reconnects", 5)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		API: APIConfig{
			BaseURL:            v.GetString("api.base_url"),
			TryOnURL:           v.GetString("api.try_on_url"),
			Timeout:            v.GetDuration("api.timeout"),
			TryOnTimeout:       v.GetDuration("api.try_on_timeout"),
			MaxRetries:         v.GetInt("api.max_retries"),
			RetryDelay:         v.GetDuration("api.retry_delay"),
			OverloadRetryDelay: v.GetDuration("api.overload_retry_delay"),
			RateLimit:          v.GetFloat64("api.rate_limit"),
			DebounceWindow:     v.GetDuration("api.debounce_window"),
		},
		Session: SessionConfig{
			Store: v.GetString("session.store"),
			Path:  v.GetString("session.path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Realtime: RealtimeConfig{
			AuthDelay:      v.GetDuration("realtime.auth_delay"),
			MaxReconnects:  v.GetInt("realtime.max_reconnects"),
			ReconnectBase:  v.GetDuration("realtime.reconnect_base"),
			ReconnectLimit: v.GetDuration("realtime.reconnect_limit"),
		},
		Checkout: CheckoutConfig{
			DuplicateTTL: v.GetDuration("checkout.duplicate_ttl"),
		},
		Sandbox: SandboxConfig{
			Port:         v.GetString("sandbox.port"),
			JWTSecret:    v.GetString("sandbox.jwt_secret"),
			DSN:          v.GetString("sandbox.dsn"),
			SeedProducts: v.GetInt("sandbox.seed_products"),
			FailFirst:    v.GetInt("sandbox.fail_first"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindFlags binds every defined flag whose dashed name matches a config key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	return bindErr
}

var flagKeys = map[string]string{
	"api-base-url":    "api.base_url",
	"api-timeout":     "api.timeout",
	"api-max-retries": "api.max_retries",
	"api-rate-limit":  "api.rate_limit",
	"session-store":   "session.store",
	"session-path":    "session.path",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"sandbox-port":    "sandbox.port",
	"fail-first":      "sandbox.fail_first",
	"seed-products":   "sandbox.seed_products",
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.TryOnURL == "" {
		cfg.API.TryOnURL = cfg.API.BaseURL + "/api/virtual-try-on/"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	if cfg.API.TryOnTimeout == 0 {
		cfg.API.TryOnTimeout = 30 * time.Second
	}
	if cfg.API.RetryDelay == 0 {
		cfg.API.RetryDelay = time.Second
	}
	if cfg.API.OverloadRetryDelay == 0 {
		cfg.API.OverloadRetryDelay = 2 * time.Second
	}
	if cfg.API.DebounceWindow == 0 {
		cfg.API.DebounceWindow = 100 * time.Millisecond
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "file"
	}
	if cfg.Session.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Session.Path = filepath.Join(home, ".storefront", "session.json")
		} else {
			cfg.Session.Path = ".storefront-session.json"
		}
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Realtime.AuthDelay == 0 {
		cfg.Realtime.AuthDelay = 500 * time.Millisecond
	}
	if cfg.Realtime.ReconnectBase == 0 {
		cfg.Realtime.ReconnectBase = time.Second
	}
	if cfg.Realtime.ReconnectLimit == 0 {
		cfg.Realtime.ReconnectLimit = 30 * time.Second
	}
	if cfg.Checkout.DuplicateTTL == 0 {
		cfg.Checkout.DuplicateTTL = 2 * time.Minute
	}
	if cfg.Sandbox.Port == "" {
		cfg.Sandbox.Port = "8000"
	}
	if cfg.Sandbox.JWTSecret == "" {
		cfg.Sandbox.JWTSecret = "sandbox-secret-change-me"
	}
	if cfg.Sandbox.DSN == "" {
		cfg.Sandbox.DSN = "file::memory:?cache=shared"
	}
	if cfg.Sandbox.SeedProducts == 0 {
		cfg.Sandbox.SeedProducts = 24
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries cannot be negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit cannot be negative")
	}
	switch c.Session.Store {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("session.store must be one of file, redis, memory; got %q", c.Session.Store)
	}
	if c.Realtime.MaxReconnects < 0 {
		return fmt.Errorf("realtime.max_reconnects cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}
