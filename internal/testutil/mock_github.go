// Package testutil provides a mock GitHub API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request as seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MockGitHub is a configurable mock GitHub API server. Collections set with
// SetCollection are paginated with Link headers and carry ETags, so
// revalidations are answered with 304.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest

	conditionalCount int
	notModifiedCount int
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		setRateLimitHeaders(w)

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears the request log and counters. Handlers are kept.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditionalCount = 0
	m.notModifiedCount = 0
}

// SetHandler sets a custom handler for a path. The pattern is either a path
// ("/user/repos") or a method and a path ("POST /repos/o/r/labels").
func (m *MockGitHub) SetHandler(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// SetResponse configures a fixed response for a pattern.
func (m *MockGitHub) SetResponse(pattern string, resp MockResponse) {
	m.SetHandler(pattern, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures pattern to answer with v encoded as JSON.
func (m *MockGitHub) SetJSON(pattern string, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode response: %v", err))
	}
	m.SetResponse(pattern, MockResponse{StatusCode: status, Body: string(body)})
}

// SetCollection serves items at path, paginated by the page and per_page
// query parameters (GitHub's default page size is 30). Every page carries
// next/last/prev/first links that preserve the other query parameters.
func (m *MockGitHub) SetCollection(path string, items []any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		page := positive(query.Get("page"), 1)
		perPage := positive(query.Get("per_page"), 30)

		lastPage := (len(items) + perPage - 1) / perPage
		if lastPage == 0 {
			lastPage = 1
		}

		etag := fmt.Sprintf(`"%d-%d-%d"`, page, perPage, len(items))
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			m.mu.Lock()
			m.notModifiedCount++
			m.mu.Unlock()
			w.WriteHeader(http.StatusNotModified)
			return
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		if link := m.linkHeader(r, page, perPage, lastPage); link != "" {
			w.Header().Set("Link", link)
		}

		body, err := json.Marshal(append([]any{}, items[start:end]...))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

func (m *MockGitHub) linkHeader(r *http.Request, page, perPage, lastPage int) string {
	link := func(target int, rel string) string {
		query := r.URL.Query()
		query.Set("page", strconv.Itoa(target))
		query.Set("per_page", strconv.Itoa(perPage))
		return fmt.Sprintf(`<%s%s?%s>; rel="%s"`, m.server.URL, r.URL.EscapedPath(), query.Encode(), rel)
	}

	var links []string
	if page < lastPage {
		links = append(links, link(page+1, "next"), link(lastPage, "last"))
	}
	if page > 1 {
		links = append(links, link(1, "first"), link(page-1, "prev"))
	}
	return strings.Join(links, ", ")
}

// Requests returns a copy of the request log.
func (m *MockGitHub) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *MockGitHub) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockGitHub) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// GetNotModifiedCount returns the number of 304 answers from collections.
func (m *MockGitHub) GetNotModifiedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notModifiedCount
}

// Items builds n collection items {"id": 1..n}.
func Items(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{"id": i + 1}
	}
	return items
}

func setRateLimitHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.Header().Set("X-RateLimit-Used", "1")
	w.Header().Set("X-RateLimit-Resource", "core")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

func positive(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
