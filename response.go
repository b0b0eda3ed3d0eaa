package demoproxy

import (
	"encoding/json"
	"net/http"
)

// Response is a fully buffered HTTP response ready to be sent to the caller.
// A Response is built fresh for every request and never shared.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Send writes the response to w.
func (r *Response) Send(w http.ResponseWriter) {
	dst := w.Header()
	for key, values := range r.Header {
		dst[key] = append([]string(nil), values...)
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) > 0 {
		w.Write(r.Body)
	}
}

// messageBody is the error shape shared with the backend.
type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// jsonResponse encodes v as the body of a new JSON response.
func jsonResponse(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"message":"Internal Server Error"}`)
	}
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {contentTypeJSON}},
		Body:       body,
	}
}

// hopHeaders are dropped when relaying an upstream response; the server
// recomputes them for the downstream connection.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
}

// ownedHeaders are set by this server's middleware and must not be
// overwritten by an upstream value.
var ownedHeaders = []string{
	"X-Request-ID",
}

func relayHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, key := range hopHeaders {
		out.Del(key)
	}
	for _, key := range ownedHeaders {
		out.Del(key)
	}
	return out
}
