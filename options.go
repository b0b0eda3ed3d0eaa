package demoproxy

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Config holds forwarder configuration
type Config struct {
	Client   *http.Client
	Tokens   TokenSource
	Mocks    MockSource
	DemoMode bool
	Prefix   string
	Logger   *zap.Logger
	// MaxBodyBytes caps the inbound body; larger requests get 413
	MaxBodyBytes int64
}

// Option is a functional option for configuring the proxy and stream handlers
type Option func(*Config)

func newConfig(opts []Option) *Config {
	config := &Config{
		Client:       &http.Client{},
		Prefix:       DefaultPrefix,
		Logger:       zap.NewNop(),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// WithHTTPClient sets the client used for upstream calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		if client != nil {
			c.Client = client
		}
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Config) {
		c.Tokens = tokens
	}
}

// WithMocks sets the table consulted in demo mode
func WithMocks(mocks MockSource) Option {
	return func(c *Config) {
		c.Mocks = mocks
	}
}

// WithDemoMode enables mock fallback for failed upstream calls
func WithDemoMode(enabled bool) Option {
	return func(c *Config) {
		c.DemoMode = enabled
	}
}

// WithPrefix sets the inbound path prefix stripped before forwarding.
// The prefix is normalised to start and end with a slash.
func WithPrefix(prefix string) Option {
	return func(c *Config) {
		c.Prefix = "/" + strings.Trim(prefix, "/") + "/"
		if c.Prefix == "//" {
			c.Prefix = "/"
		}
	}
}

// WithMaxBodyBytes sets the inbound body limit. Non-positive values are ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxBodyBytes = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
