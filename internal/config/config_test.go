package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "SHUTDOWN_TIMEOUT", "NEXT_PUBLIC_API_URL", "BACKEND_URL",
		"DEMO_MODE", "PROXY_PREFIX", "TOKEN_COOKIE", "LOG_LEVEL",
		"IDEMPOTENCY_ENABLED", "IDEMPOTENCY_STORE", "REDIS_ADDR", "IDEMPOTENCY_TTL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "giftify-proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.DemoMode)
	assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileIsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
listen_addr: ":4000"
backend_url: http://api.giftify.internal
demo_mode: true
shutdown_timeout: 3s
log:
  level: debug
  dev: true
idempotency:
  enabled: true
  store: redis
  redis_addr: redis:6379
  ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.ListenAddr)
	assert.Equal(t, "http://api.giftify.internal", cfg.BackendURL)
	assert.True(t, cfg.DemoMode)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, LogConfig{Level: "debug", Dev: true}, cfg.Log)
	assert.Equal(t, IdempotencyConfig{Enabled: true, Store: StoreRedis, RedisAddr: "redis:6379", TTL: time.Hour}, cfg.Idempotency)

	// Unset keys keep their defaults
	assert.Equal(t, "/api/proxy/", cfg.ProxyPrefix)
	assert.Equal(t, "access_token", cfg.TokenCookie)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeFile(t, "listen_addr: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "backend_url: http://from-file:8080\ndemo_mode: true\n")

	t.Setenv("NEXT_PUBLIC_API_URL", "http://from-env:8080")
	t.Setenv("DEMO_MODE", "TRUE")
	t.Setenv("IDEMPOTENCY_TTL", "90s")
	t.Setenv("IDEMPOTENCY_ENABLED", "not-a-bool")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8080", cfg.BackendURL)
	assert.False(t, cfg.DemoMode, "only the exact string true enables demo mode")
	assert.Equal(t, 90*time.Second, cfg.Idempotency.TTL)
	assert.False(t, cfg.Idempotency.Enabled, "unparseable values keep the previous setting")
}

func TestLoad_BackendURLPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_API_URL", "http://public:8080")
	t.Setenv("BACKEND_URL", "http://private:8080")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://private:8080", cfg.BackendURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"relative backend", func(c *Config) { c.BackendURL = "localhost:8080" }, "backend_url"},
		{"empty backend", func(c *Config) { c.BackendURL = "" }, "backend_url"},
		{"prefix without leading slash", func(c *Config) { c.ProxyPrefix = "api/proxy/" }, "proxy_prefix"},
		{"prefix without trailing slash", func(c *Config) { c.ProxyPrefix = "/api/proxy" }, "proxy_prefix"},
		{"root prefix", func(c *Config) { c.ProxyPrefix = "/" }, "proxy_prefix"},
		{"stream path", func(c *Config) { c.StreamPath = "sse" }, "stream_path"},
		{"unknown store", func(c *Config) { c.Idempotency.Store = "etcd" }, "unknown idempotency store"},
		{"redis without addr", func(c *Config) {
			c.Idempotency.Enabled = true
			c.Idempotency.Store = StoreRedis
			c.Idempotency.RedisAddr = ""
		}, "redis_addr"},
		{"zero ttl", func(c *Config) {
			c.Idempotency.Enabled = true
			c.Idempotency.TTL = 0
		}, "ttl"},
		{"zero ttl while disabled", func(c *Config) { c.Idempotency.TTL = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
