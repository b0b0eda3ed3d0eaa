// Package mock holds the canned responses served in demo mode when the
// real backend cannot answer a request.
//
// A Table is an ordered, read-only list of entries. Lookups walk the list in
// definition order and the first entry whose method and pattern match wins.
// Nothing in this package mutates a Table after it is built, so a single
// Table can be shared by any number of concurrent requests.
package mock

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// ResultSuccess is the envelope marker carried by every mock body.
const ResultSuccess = "SUCCESS"

// Params holds the values captured from a matched path.
type Params map[string]string

// Int returns the named parameter as an integer, or 0 when it is missing or
// does not fit in an int64.
func (p Params) Int(name string) int64 {
	n, err := strconv.ParseInt(p[name], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Envelope is the success wrapper the backend puts around every payload.
type Envelope struct {
	Result string `json:"result"`
	Data   any    `json:"data"`
}

// Result is a canned response produced by an entry handler.
type Result struct {
	Status int
	Body   Envelope
}

// OK wraps data in a 200 success envelope.
func OK(data any) Result {
	return Result{
		Status: http.StatusOK,
		Body:   Envelope{Result: ResultSuccess, Data: data},
	}
}

// Handler builds the response for a matched entry. Handlers must be pure:
// the same params always yield the same payload.
type Handler func(Params) Result

type patternKind int

const (
	kindExact patternKind = iota
	kindPrefix
	kindID
)

const idSegment = "{id}"

// Pattern matches a slash separated request path.
type Pattern struct {
	kind     patternKind
	segments []string
	idIndex  int
}

// Exact matches only the given path.
func Exact(path string) Pattern {
	return Pattern{kind: kindExact, segments: splitPath(path), idIndex: -1}
}

// Prefix matches the given path and anything below it, e.g. Prefix("a/b")
// matches "a/b" and "a/b/c" but not "a/bc".
func Prefix(path string) Pattern {
	return Pattern{kind: kindPrefix, segments: splitPath(path), idIndex: -1}
}

// WithID matches a template holding exactly one "{id}" segment. The segment
// only matches a run of ASCII digits, which is captured as param "id".
// It panics if the template does not hold exactly one "{id}" segment.
func WithID(template string) Pattern {
	segments := splitPath(template)
	idIndex := -1
	for i, s := range segments {
		if s != idSegment {
			continue
		}
		if idIndex >= 0 {
			panic("mock: pattern " + template + " holds more than one {id} segment")
		}
		idIndex = i
	}
	if idIndex < 0 {
		panic("mock: pattern " + template + " has no {id} segment")
	}
	return Pattern{kind: kindID, segments: segments, idIndex: idIndex}
}

// Match reports whether path matches p and returns any captured params.
// The path must already be stripped of its query string.
func (p Pattern) Match(path string) (Params, bool) {
	got := splitPath(path)

	switch p.kind {
	case kindExact:
		return nil, slices.Equal(got, p.segments)
	case kindPrefix:
		if len(got) < len(p.segments) {
			return nil, false
		}
		return nil, slices.Equal(got[:len(p.segments)], p.segments)
	case kindID:
		if len(got) != len(p.segments) {
			return nil, false
		}
		for i, want := range p.segments {
			if i == p.idIndex {
				if !isDigits(got[i]) {
					return nil, false
				}
				continue
			}
			if got[i] != want {
				return nil, false
			}
		}
		return Params{"id": got[p.idIndex]}, true
	}
	return nil, false
}

// String renders the pattern for listings, e.g. "api/v2/products/*".
func (p Pattern) String() string {
	s := strings.Join(p.segments, "/")
	if p.kind == kindPrefix {
		return s + "/*"
	}
	return s
}

// Entry associates a method and pattern with the handler that answers it.
type Entry struct {
	Method  string
	Pattern Pattern
	Handler Handler
}

// Table is an ordered set of mock entries.
type Table struct {
	entries []Entry
}

// NewTable builds a table from entries, in the order given.
func NewTable(entries ...Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Lookup finds the first entry matching method and path and runs its
// handler. Any query string on path is ignored. A miss returns false.
func (t *Table) Lookup(method, path string) (Result, bool) {
	clean, _, _ := strings.Cut(path, "?")

	for _, e := range t.entries {
		if e.Method != method {
			continue
		}
		params, ok := e.Pattern.Match(clean)
		if !ok {
			continue
		}
		if params == nil {
			params = Params{}
		}
		return e.Handler(params), true
	}
	return Result{}, false
}

// Entries returns a copy of the table's entries in lookup order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
