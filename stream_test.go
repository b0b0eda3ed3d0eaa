package demoproxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_RequiresToken(t *testing.T) {
	called := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer backend.Close()

	h := NewStreamHandler(backend.URL, WithTokenSource(SessionTokens{Cookie: "access_token"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sse/notifications", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", strings.TrimSpace(rec.Body.String()))
	assert.False(t, called)
}

func TestStream_RelaysEvents(t *testing.T) {
	const events = "event: notification\ndata: {\"id\":1}\n\nevent: notification\ndata: {\"id\":2}\n\n"

	var gotAuth, gotAccept, gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(events))
	}))
	defer backend.Close()

	h := NewStreamHandler(backend.URL, WithTokenSource(SessionTokens{Cookie: "access_token"}))
	req := httptest.NewRequest(http.MethodGet, "/api/sse/notifications", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "tok-1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, SubscribePath, gotPath)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")
	assert.Equal(t, events, rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestStream_UpstreamRejection(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	h := NewStreamHandler(backend.URL, WithTokenSource(staticToken("tok-1")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sse/notifications", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to connect to notification stream")
}

func TestStream_UpstreamUnreachable(t *testing.T) {
	h := NewStreamHandler(deadBackend(), WithTokenSource(staticToken("tok-1")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sse/notifications", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to connect to notification stream")
}

func TestStream_RejectsPost(t *testing.T) {
	h := NewStreamHandler(deadBackend(), WithTokenSource(staticToken("tok-1")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sse/notifications", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
