// Package testutil provides testing utilities for the SpaceX explorer.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSpaceX is a configurable mock SpaceX API server for testing.
// Paths are registered without the /v4 prefix's host, e.g. "/v4/launches/query".
type MockSpaceX struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	queues   map[string][]MockResponse

	// Tracking
	RequestCount int
	PathCounts   map[string]int
	LastBody     []byte
	LastHeader   http.Header
}

// NewMockSpaceX creates a new mock SpaceX API server.
func NewMockSpaceX() *MockSpaceX {
	mock := &MockSpaceX{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		queues:     make(map[string][]MockResponse),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastBody = body
		mock.LastHeader = r.Header.Clone()

		// Queued responses are served first, one per request
		if queue := mock.queues[r.URL.Path]; len(queue) > 0 {
			next := queue[0]
			mock.queues[r.URL.Path] = queue[1:]
			mock.mu.Unlock()
			writeResponse(w, next)
			return
		}

		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			r.Body = io.NopCloser(strings.NewReader(string(body)))
			handler(w, r)
			return
		}

		http.Error(w, `{"error":"Not Found"}`, http.StatusNotFound)
	}))

	return mock
}

// URL returns the mock API root (equivalent to https://api.spacexdata.com/v4).
func (m *MockSpaceX) URL() string {
	return m.server.URL + "/v4"
}

// Close shuts down the mock server.
func (m *MockSpaceX) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSpaceX) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastBody = nil
	m.LastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSpaceX) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockSpaceX) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// Enqueue queues responses served in order before falling back to the
// path's handler.
func (m *MockSpaceX) Enqueue(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[path] = append(m.queues[path], responses...)
}

// SetJSON configures a 200 response with v encoded as JSON.
func (m *MockSpaceX) SetJSON(path string, v any) {
	m.SetResponse(path, NewJSONResponse(v))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSpaceX) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockSpaceX) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// GetLastBody returns the body of the most recent request.
func (m *MockSpaceX) GetLastBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.LastBody...)
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockSpaceX) GetLastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastHeader.Clone()
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewJSONResponse creates a 200 OK response with v encoded as JSON.
func NewJSONResponse(v any) MockResponse {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock body: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too Many Requests"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal Server Error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `Not Found`,
	}
}
