package demoproxy

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// SubscribePath is the backend endpoint serving the notification stream.
const SubscribePath = "/api/v1/notifications/subscribe"

const streamChunkSize = 32 * 1024

// StreamHandler relays the backend notification event stream to the
// browser. It requires a bearer token and never falls back to mocks.
type StreamHandler struct {
	backend string
	config  *Config
}

// NewStreamHandler returns a relay for the stream served by backendURL.
// The configured HTTP client must not set a Timeout, or long-lived
// streams are cut off.
func NewStreamHandler(backendURL string, opts ...Option) *StreamHandler {
	return &StreamHandler{
		backend: strings.TrimRight(backendURL, "/"),
		config:  newConfig(opts),
	}
}

// ServeHTTP implements http.Handler.
func (s *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var token string
	if s.config.Tokens != nil {
		t, err := s.config.Tokens.Token(r)
		if err == nil {
			token = t
		}
	}
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.backend+SubscribePath, nil)
	if err != nil {
		s.config.Logger.Error("building stream request failed", zap.Error(err))
		http.Error(w, "Failed to connect to notification stream", http.StatusBadGateway)
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	upstream, err := s.config.Client.Do(req)
	if err != nil {
		s.config.Logger.Error("connecting to notification stream failed", zap.Error(err))
		http.Error(w, "Failed to connect to notification stream", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()

	if upstream.StatusCode < 200 || upstream.StatusCode >= 300 {
		s.config.Logger.Warn("notification stream rejected", zap.Int("status", upstream.StatusCode))
		http.Error(w, "Failed to connect to notification stream", upstream.StatusCode)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return
	}

	buf := make([]byte, streamChunkSize)
	for {
		n, readErr := upstream.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return
			}
		}
		if readErr != nil {
			s.config.Logger.Debug("notification stream closed", zap.Error(readErr))
			return
		}
	}
}
