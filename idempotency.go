package demoproxy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultReplayTTL is the default time-to-live for stored responses
	DefaultReplayTTL = 24 * time.Hour
	// HeaderReplayed marks a response served from the idempotency store
	HeaderReplayed = "X-Idempotency-Replayed"
)

// ReplayConfig holds idempotency middleware configuration
type ReplayConfig struct {
	HeaderName string
	TTL        time.Duration
	KeyFunc    KeyFunc
	Tokens     TokenSource
	Logger     *zap.Logger
	// MaxBodyBytes caps the body read while fingerprinting the request
	MaxBodyBytes int64
}

// KeyFunc generates a unique store key from the request and idempotency key
type KeyFunc func(r *http.Request, idempotencyKey string) (string, error)

// ReplayOption is a functional option for configuring the idempotency middleware
type ReplayOption func(*ReplayConfig)

// WithHeaderName sets the HTTP header name for idempotency keys
func WithHeaderName(name string) ReplayOption {
	return func(c *ReplayConfig) {
		c.HeaderName = name
	}
}

// WithTTL sets the time-to-live for stored responses
func WithTTL(ttl time.Duration) ReplayOption {
	return func(c *ReplayConfig) {
		c.TTL = ttl
	}
}

// WithKeyFunc sets a custom key generation function
func WithKeyFunc(fn KeyFunc) ReplayOption {
	return func(c *ReplayConfig) {
		c.KeyFunc = fn
	}
}

// WithReplayTokenSource identifies callers by the bearer token the proxy
// forwards for them. Without it, callers are told apart by their raw
// Authorization and Cookie headers.
func WithReplayTokenSource(tokens TokenSource) ReplayOption {
	return func(c *ReplayConfig) {
		c.Tokens = tokens
	}
}

// WithReplayMaxBodyBytes sets the body limit applied before fingerprinting.
// Non-positive values are ignored.
func WithReplayMaxBodyBytes(n int64) ReplayOption {
	return func(c *ReplayConfig) {
		if n > 0 {
			c.MaxBodyBytes = n
		}
	}
}

// WithReplayLogger sets the logger used for store failures
func WithReplayLogger(logger *zap.Logger) ReplayOption {
	return func(c *ReplayConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// Idempotency returns middleware that replays the first response to a
// mutating request carrying an idempotency key, so a double submitted
// order or payment reaches the backend once.
//
// Stored responses are scoped to the caller, so the same key sent by two
// users never replays one user's response to the other.
// A duplicate arriving while the first request is still in flight gets 409.
// Server errors and demo fallback responses are not stored, so a retry after
// the backend recovers is forwarded again. Store failures other than lock
// contention are logged and the request is forwarded unprotected.
func Idempotency(store Store, opts ...ReplayOption) func(http.Handler) http.Handler {
	config := &ReplayConfig{
		HeaderName:   HeaderIdempotencyKey,
		TTL:          DefaultReplayTTL,
		KeyFunc:      defaultKeyFunc,
		Logger:       zap.NewNop(),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutatingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(config.HeaderName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
			requestKey, err := config.KeyFunc(r, key)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					jsonResponse(http.StatusRequestEntityTooLarge, messageBody{Message: "Request Entity Too Large"}).Send(w)
					return
				}
				jsonResponse(http.StatusBadRequest, messageBody{Message: "Invalid idempotency key"}).Send(w)
				return
			}
			fullKey := config.callerScope(r) + ":" + requestKey

			ctx := r.Context()
			unlock, err := store.Lock(ctx, fullKey)
			if err != nil {
				if errors.Is(err, ErrRequestInProgress) {
					jsonResponse(http.StatusConflict, messageBody{Message: "Request already in progress"}).Send(w)
					return
				}
				config.Logger.Warn("idempotency lock failed, forwarding unprotected", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			defer unlock()

			stored, err := store.Get(ctx, fullKey)
			if err == nil && stored != nil {
				writeStoredResponse(w, stored)
				return
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				config.Logger.Warn("idempotency lookup failed", zap.Error(err))
			}

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r)
			recorder.flushHeader()

			if !replayable(recorder) {
				return
			}

			stored = &StoredResponse{
				StatusCode: recorder.status,
				Headers:    recorder.header.Clone(),
				Body:       recorder.body.Bytes(),
				StoredAt:   time.Now(),
			}
			if err := store.Set(ctx, fullKey, stored, config.TTL); err != nil {
				// The response has already been sent.
				config.Logger.Warn("storing idempotent response failed", zap.Error(err))
			}
		})
	}
}

// isMutatingMethod returns true for HTTP methods that get replay protection
func isMutatingMethod(method string) bool {
	return method == http.MethodPost || method == http.MethodPatch || method == http.MethodPut
}

func replayable(rec *responseRecorder) bool {
	return rec.status < http.StatusInternalServerError && rec.header.Get(HeaderDemoFallback) == ""
}

// callerScope fingerprints who sent r. Anonymous callers share one scope
// that no signed-in caller can land in.
func (c *ReplayConfig) callerScope(r *http.Request) string {
	h := sha256.New()
	if c.Tokens != nil {
		if token, err := c.Tokens.Token(r); err == nil && token != "" {
			h.Write([]byte("token\x00"))
			h.Write([]byte(token))
		}
	} else {
		h.Write([]byte("headers\x00"))
		h.Write([]byte(r.Header.Get("Authorization")))
		for _, cookie := range r.Header.Values("Cookie") {
			h.Write([]byte{0})
			h.Write([]byte(cookie))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// defaultKeyFunc combines the idempotency key with a fingerprint of the request
func defaultKeyFunc(r *http.Request, idempotencyKey string) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	// Fingerprint: method + path + query + body
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte(r.URL.Path))
	h.Write([]byte(r.URL.RawQuery))
	h.Write(body)

	return fmt.Sprintf("%s:%s", idempotencyKey, hex.EncodeToString(h.Sum(nil))), nil
}

// writeStoredResponse writes a stored response to the response writer
func writeStoredResponse(w http.ResponseWriter, stored *StoredResponse) {
	dst := w.Header()
	for key, values := range stored.Headers {
		dst[key] = append([]string(nil), values...)
	}
	dst.Set(HeaderReplayed, "true")

	w.WriteHeader(stored.StatusCode)
	w.Write(stored.Body)
}

// responseRecorder captures the response written by the wrapped handler
// while passing it through. It keeps its own header map so that headers set
// by outer middleware are not stored.
type responseRecorder struct {
	w           http.ResponseWriter
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{w: w, header: http.Header{}, status: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = statusCode

	dst := r.w.Header()
	for key, values := range r.header {
		dst[key] = values
	}
	r.w.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.w.Write(b)
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.w
}

// flushHeader sends the status line if the handler never wrote anything.
func (r *responseRecorder) flushHeader() {
	if !r.wroteHeader {
		r.WriteHeader(r.status)
	}
}
