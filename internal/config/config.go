// Package config loads giftify-proxy settings from a YAML file, a .env file
// and the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Replay store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all giftify-proxy configuration.
type Config struct {
	// Server
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Upstream
	BackendURL  string `yaml:"backend_url"`
	DemoMode    bool   `yaml:"demo_mode"`
	ProxyPrefix string `yaml:"proxy_prefix"`
	StreamPath  string `yaml:"stream_path"`
	TokenCookie string `yaml:"token_cookie"`

	Log         LogConfig         `yaml:"log"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

// LogConfig configures the zap logger built by the binary.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dev   bool   `yaml:"dev"`
}

// IdempotencyConfig configures replay protection for mutating requests.
type IdempotencyConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Store     string        `yaml:"store"` // memory, redis
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:      ":3000",
		ShutdownTimeout: 10 * time.Second,
		BackendURL:      "http://localhost:8080",
		ProxyPrefix:     "/api/proxy/",
		StreamPath:      "/api/sse/notifications",
		TokenCookie:     "access_token",
		Log: LogConfig{
			Level: "info",
		},
		Idempotency: IdempotencyConfig{
			Store:     StoreMemory,
			RedisAddr: "localhost:6379",
			TTL:       24 * time.Hour,
		},
	}
}

// Load reads path (if non-empty and present), then .env, then the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	_ = godotenv.Load() // optional; never overrides variables already set

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.BackendURL = getEnv("NEXT_PUBLIC_API_URL", c.BackendURL)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	if v, ok := os.LookupEnv("DEMO_MODE"); ok {
		c.DemoMode = v == "true"
	}
	c.ProxyPrefix = getEnv("PROXY_PREFIX", c.ProxyPrefix)
	c.TokenCookie = getEnv("TOKEN_COOKIE", c.TokenCookie)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Idempotency.Enabled = getBoolEnv("IDEMPOTENCY_ENABLED", c.Idempotency.Enabled)
	c.Idempotency.Store = getEnv("IDEMPOTENCY_STORE", c.Idempotency.Store)
	c.Idempotency.RedisAddr = getEnv("REDIS_ADDR", c.Idempotency.RedisAddr)
	c.Idempotency.TTL = getDurationEnv("IDEMPOTENCY_TTL", c.Idempotency.TTL)
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("backend_url must be an absolute URL, got %q", c.BackendURL)
	}

	for name, p := range map[string]string{"proxy_prefix": c.ProxyPrefix, "stream_path": c.StreamPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with /, got %q", name, p)
		}
	}
	if !strings.HasSuffix(c.ProxyPrefix, "/") || c.ProxyPrefix == "/" {
		return fmt.Errorf("proxy_prefix must be a path ending in /, got %q", c.ProxyPrefix)
	}

	switch c.Idempotency.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Idempotency.Enabled && c.Idempotency.RedisAddr == "" {
			return fmt.Errorf("idempotency.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown idempotency store %q (want %s or %s)", c.Idempotency.Store, StoreMemory, StoreRedis)
	}
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		return fmt.Errorf("idempotency.ttl must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
