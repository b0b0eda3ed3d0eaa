package demoproxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/AnandSundar/go-demoproxy/mock"
)

// maxDrainBytes bounds how much of a discarded 5xx body is read.
const maxDrainBytes = 64 << 10

// FetchFunc performs exactly one upstream attempt.
type FetchFunc func() (*http.Response, error)

// MockSource returns canned responses for a method and path.
// *mock.Table implements it.
type MockSource interface {
	Lookup(method, path string) (mock.Result, bool)
}

// Engine decides, for one forwarded call, whether the caller sees the real
// backend response or a substituted mock.
//
// Responses below 500 are authoritative and pass through untouched, client
// errors included. Only a 5xx status or a transport failure triggers a mock
// lookup, and a lookup miss is reported as 503.
type Engine struct {
	mocks  MockSource
	logger *zap.Logger
}

// NewEngine returns an engine that substitutes responses from mocks.
// A nil logger disables logging.
func NewEngine(mocks MockSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{mocks: mocks, logger: logger}
}

// Do invokes fetch once and returns the response the caller should see.
// path is the logical backend path used for mock lookup.
func (e *Engine) Do(fetch FetchFunc, method, path string) *Response {
	resp, err := fetch()
	if err != nil {
		e.logger.Debug("upstream request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return e.fallback(method, path, "BE unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		// Drain a bounded amount so small error bodies keep the connection
		// reusable; a larger body just costs the connection.
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)); err != nil {
			e.logger.Debug("draining upstream body failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
		return e.fallback(method, path, fmt.Sprintf("BE returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Debug("reading upstream body failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return e.fallback(method, path, "BE unreachable")
	}

	header := relayHeader(resp.Header)
	header.Del(HeaderDemoFallback)
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
	}
}

func (e *Engine) fallback(method, path, reason string) *Response {
	if e.mocks != nil {
		if res, ok := e.mocks.Lookup(method, path); ok {
			body, err := json.Marshal(res.Body)
			if err == nil {
				e.logger.Info("serving demo fallback",
					zap.String("method", method),
					zap.String("path", path),
					zap.String("reason", reason))
				return &Response{
					StatusCode: res.Status,
					Header: http.Header{
						"Content-Type":     {contentTypeJSON},
						HeaderDemoFallback: {"true"},
					},
					Body: body,
				}
			}
			e.logger.Error("encoding mock body failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
	}

	e.logger.Warn("no demo fallback available",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("reason", reason))
	return jsonResponse(http.StatusServiceUnavailable, messageBody{
		Message: "Service unavailable: " + reason,
	})
}
