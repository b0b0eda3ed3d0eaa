package demoproxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnandSundar/go-demoproxy/mock"
)

func respond(status int, body string) FetchFunc {
	return func() (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func refuse() FetchFunc {
	return func() (*http.Response, error) {
		return nil, errors.New("dial tcp 127.0.0.1:8080: connect: ECONNREFUSED")
	}
}

func decode(t *testing.T, resp *Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	return body
}

func newTestEngine() *Engine {
	return NewEngine(mock.Default(), nil)
}

func TestEngine_PassesThroughSuccess(t *testing.T) {
	calls := 0
	fetch := func() (*http.Response, error) {
		calls++
		return respond(http.StatusOK, `{"result":"SUCCESS","data":{"id":1}}`)()
	}

	resp := newTestEngine().Do(fetch, http.MethodGet, "api/v2/members/me")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"result":"SUCCESS","data":{"id":1}}`, string(resp.Body))
	assert.Empty(t, resp.Header.Get(HeaderDemoFallback))
}

func TestEngine_PassesThroughRedirectsAndSuccessRange(t *testing.T) {
	for _, status := range []int{200, 201, 204, 302, 399} {
		resp := newTestEngine().Do(respond(status, `{}`), http.MethodGet, "api/v2/carts")
		assert.Equal(t, status, resp.StatusCode)
		assert.Empty(t, resp.Header.Get(HeaderDemoFallback), "status %d", status)
	}
}

func TestEngine_StripsUpstreamMarker(t *testing.T) {
	fetch := func() (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{HeaderDemoFallback: {"true"}},
			Body:       io.NopCloser(strings.NewReader(`{}`)),
		}, nil
	}

	resp := newTestEngine().Do(fetch, http.MethodGet, "api/v2/carts")
	assert.Empty(t, resp.Header.Get(HeaderDemoFallback))
}

func TestEngine_ClientErrorIsAuthoritative(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 409, 422, 499} {
		resp := newTestEngine().Do(respond(status, `{"message":"not found"}`), http.MethodGet, "api/v2/members/me")

		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, `{"message":"not found"}`, string(resp.Body))
		assert.Empty(t, resp.Header.Get(HeaderDemoFallback))
	}
}

func TestEngine_ServerErrorFallsBackToMock(t *testing.T) {
	resp := newTestEngine().Do(respond(http.StatusInternalServerError, "Internal Server Error"), http.MethodGet, "api/v2/members/me")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(HeaderDemoFallback))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	data := decode(t, resp)["data"].(map[string]any)
	assert.Contains(t, data, "nickname")
	assert.Contains(t, data, "email")
}

func TestEngine_FallbackBodyMatchesTable(t *testing.T) {
	res, ok := mock.Default().Lookup(http.MethodGet, "api/v2/carts")
	require.True(t, ok)
	want, err := json.Marshal(res.Body)
	require.NoError(t, err)

	resp := newTestEngine().Do(respond(http.StatusBadGateway, ""), http.MethodGet, "api/v2/carts")

	assert.Equal(t, res.Status, resp.StatusCode)
	assert.JSONEq(t, string(want), string(resp.Body))
}

func TestEngine_UnreachableFallsBackToMock(t *testing.T) {
	resp := newTestEngine().Do(refuse(), http.MethodGet, "api/v2/wallet/balance")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(HeaderDemoFallback))

	data := decode(t, resp)["data"].(map[string]any)
	assert.IsType(t, float64(0), data["balance"])
}

func TestEngine_NoMockReturns503(t *testing.T) {
	resp := newTestEngine().Do(refuse(), http.MethodGet, "api/v99/nonexistent")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(HeaderDemoFallback))
	assert.Equal(t, "Service unavailable: BE unreachable", decode(t, resp)["message"])
}

func TestEngine_NoMockAfterServerErrorReportsStatus(t *testing.T) {
	resp := newTestEngine().Do(respond(http.StatusInternalServerError, ""), http.MethodGet, "api/v99/nonexistent")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	msg := decode(t, resp)["message"].(string)
	assert.Contains(t, msg, "unavailable")
	assert.Contains(t, msg, "BE returned 500")
}

func TestEngine_NilMocksAlways503(t *testing.T) {
	resp := NewEngine(nil, nil).Do(refuse(), http.MethodGet, "api/v2/carts")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEngine_BrokenBodyTreatedAsUnreachable(t *testing.T) {
	fetch := func() (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(&failingReader{}),
		}, nil
	}

	resp := newTestEngine().Do(fetch, http.MethodGet, "api/v2/carts")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(HeaderDemoFallback))
}

func TestEngine_MethodSelectsMock(t *testing.T) {
	get := newTestEngine().Do(refuse(), http.MethodGet, "api/v2/carts")
	post := newTestEngine().Do(refuse(), http.MethodPost, "api/v2/carts")

	assert.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, http.StatusOK, post.StatusCode)
	assert.NotEqual(t, string(get.Body), string(post.Body))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

// countingReader serves n bytes of filler and records how many were read.
type countingReader struct {
	remaining int
	read      int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.remaining == 0 {
		return 0, io.EOF
	}
	n := min(len(p), c.remaining)
	for i := range p[:n] {
		p[i] = 'x'
	}
	c.remaining -= n
	c.read += n
	return n, nil
}

func TestEngine_ServerErrorDrainIsBounded(t *testing.T) {
	body := &countingReader{remaining: 4 << 20}
	fetch := func() (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Header:     http.Header{},
			Body:       io.NopCloser(body),
		}, nil
	}

	resp := newTestEngine().Do(fetch, http.MethodGet, "api/v2/members/me")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(HeaderDemoFallback))
	assert.LessOrEqual(t, body.read, maxDrainBytes)
}

func TestEngine_ServerErrorDrainFailureStillFallsBack(t *testing.T) {
	fetch := func() (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Header:     http.Header{},
			Body:       io.NopCloser(&failingReader{}),
		}, nil
	}

	resp := newTestEngine().Do(fetch, http.MethodGet, "api/v2/members/me")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(HeaderDemoFallback))
}

func TestEngine_DropsUpstreamRequestID(t *testing.T) {
	fetch := func() (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"X-Request-Id":  {"upstream-id"},
				"Cache-Control": {"no-store"},
			},
			Body: io.NopCloser(strings.NewReader(`{}`)),
		}, nil
	}

	resp := newTestEngine().Do(fetch, http.MethodGet, "api/v2/carts")

	assert.Empty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}
