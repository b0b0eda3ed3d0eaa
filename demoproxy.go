// Package demoproxy forwards storefront API calls to the Giftify backend.
//
// In demo mode a failed upstream call (a transport error or a 5xx status)
// is answered from a table of canned responses instead, so a demo keeps
// working while the backend is down. Client errors from a live backend are
// always passed through.
package demoproxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultPrefix is the inbound path prefix stripped before forwarding
	DefaultPrefix = "/api/proxy/"
	// HeaderDemoFallback marks responses synthesized from a mock
	HeaderDemoFallback = "X-Demo-Fallback"
	// HeaderIdempotencyKey is forwarded verbatim to the backend
	HeaderIdempotencyKey = "Idempotency-Key"

	// DefaultMaxBodyBytes caps inbound request bodies
	DefaultMaxBodyBytes = 10 << 20

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

// allowedMethods are the methods the proxy forwards.
var allowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Proxy is the catch-all request forwarder. A request for
// <prefix><path>?<query> is sent to <backend>/<path>?<query>.
type Proxy struct {
	backend string
	config  *Config
	engine  *Engine
}

// New returns a proxy forwarding to backendURL.
func New(backendURL string, opts ...Option) *Proxy {
	config := newConfig(opts)
	return &Proxy{
		backend: strings.TrimRight(backendURL, "/"),
		config:  config,
		engine:  NewEngine(config.Mocks, config.Logger),
	}
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !slices.Contains(allowedMethods, r.Method) {
		w.Header().Set("Allow", strings.Join(allowedMethods, ", "))
		jsonResponse(http.StatusMethodNotAllowed, messageBody{Message: "Method Not Allowed"}).Send(w)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, p.config.Prefix), "/")
	target := p.backend + "/" + strings.Trim(strings.TrimPrefix(r.URL.EscapedPath(), p.config.Prefix), "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	p.config.Logger.Info("forwarding request", zap.String("method", r.Method), zap.String("url", target))

	header := http.Header{}
	if hasBody(r.Method) {
		header.Set("Content-Type", contentTypeJSON)
	}
	if token := p.token(r); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if key := r.Header.Get(HeaderIdempotencyKey); key != "" {
		header.Set(HeaderIdempotencyKey, key)
	}

	var body []byte
	if hasBody(r.Method) {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, p.config.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				jsonResponse(http.StatusRequestEntityTooLarge, messageBody{Message: "Request Entity Too Large"}).Send(w)
				return
			}
			jsonResponse(http.StatusBadRequest, messageBody{Message: "Bad Request", Error: err.Error()}).Send(w)
			return
		}
	}

	fetch := func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(r.Context(), r.Method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header = header.Clone()
		return p.config.Client.Do(req)
	}

	if p.config.DemoMode {
		p.engine.Do(fetch, r.Method, path).Send(w)
		return
	}
	p.forward(fetch, target).Send(w)
}

// forward performs the upstream call without any fallback.
func (p *Proxy) forward(fetch FetchFunc, target string) *Response {
	resp, err := fetch()
	if err != nil {
		p.config.Logger.Error("proxy error", zap.String("url", target), zap.Error(err))
		return internalError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.config.Logger.Error("reading upstream body failed", zap.String("url", target), zap.Error(err))
		return internalError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.config.Logger.Error("error from upstream",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))
	}

	if resp.StatusCode == http.StatusNoContent {
		return &Response{StatusCode: http.StatusNoContent}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err == nil {
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     http.Header{"Content-Type": {contentTypeJSON}},
			Body:       compact.Bytes(),
		}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     http.Header{"Content-Type": {contentTypeText}},
		Body:       data,
	}
}

// token returns the caller's bearer token, or "" for anonymous requests.
func (p *Proxy) token(r *http.Request) string {
	if p.config.Tokens == nil {
		return ""
	}
	token, err := p.config.Tokens.Token(r)
	if err != nil {
		p.config.Logger.Debug("proceeding without token", zap.Error(err))
		return ""
	}
	return token
}

func internalError(err error) *Response {
	return jsonResponse(http.StatusInternalServerError, messageBody{
		Message: "Internal Server Error",
		Error:   err.Error(),
	})
}

func hasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}
