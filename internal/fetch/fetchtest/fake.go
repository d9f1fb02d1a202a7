// Package fetchtest provides an in-memory fetch.Fetcher for adapter tests.
package fetchtest

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/williampepple1/salvage-yard-monitor/internal/fetch"
)

// Request is one recorded call
type Request struct {
	Method string
	URL    string
	Values url.Values
}

// Fake answers requests from a route table. Routes match on the URL without its query
// unless the exact URL (with query) is registered. Unknown URLs return nil.
type Fake struct {
	Routes map[string]string
	// Handler, when set, is consulted before Routes
	Handler func(method, rawURL string, values url.Values) (string, bool)

	mu       sync.Mutex
	requests []Request
}

// New creates a Fake from url → body pairs
func New(routes map[string]string) *Fake {
	return &Fake{Routes: routes}
}

func (f *Fake) Get(ctx context.Context, rawURL string, query url.Values) *fetch.Response {
	return f.answer(http.MethodGet, rawURL, query)
}

func (f *Fake) PostForm(ctx context.Context, rawURL string, form url.Values) *fetch.Response {
	return f.answer(http.MethodPost, rawURL, form)
}

// Requests returns a copy of every request seen
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *Fake) answer(method, rawURL string, values url.Values) *fetch.Response {
	f.mu.Lock()
	f.requests = append(f.requests, Request{Method: method, URL: rawURL, Values: values})
	f.mu.Unlock()

	if f.Handler != nil {
		if body, ok := f.Handler(method, rawURL, values); ok {
			return &fetch.Response{StatusCode: http.StatusOK, Body: body, URL: rawURL}
		}
	}
	if body, ok := f.Routes[rawURL]; ok {
		return &fetch.Response{StatusCode: http.StatusOK, Body: body, URL: rawURL}
	}
	base, _, _ := strings.Cut(rawURL, "?")
	if body, ok := f.Routes[base]; ok {
		return &fetch.Response{StatusCode: http.StatusOK, Body: body, URL: rawURL}
	}
	return nil
}
