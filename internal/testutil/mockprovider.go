package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// RecordedRequest is a request seen by a MockProvider.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the request body as a JSON object.
func (r RecordedRequest) JSON(t *testing.T) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(r.Body, &doc); err != nil {
		t.Fatalf("request body is not a JSON object: %v (%s)", err, r.Body)
	}
	return doc
}

// MockProvider is an httptest server with chi routing that records every
// request it receives. Unrouted requests get 404.
type MockProvider struct {
	server *httptest.Server
	router chi.Router

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewMockProvider starts a mock provider that is closed when t finishes.
func NewMockProvider(t *testing.T) *MockProvider {
	t.Helper()
	m := &MockProvider{router: chi.NewRouter()}
	m.router.Use(m.record)
	m.server = httptest.NewServer(m.router)
	t.Cleanup(m.server.Close)
	return m
}

func (m *MockProvider) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		m.mu.Lock()
		m.requests = append(m.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		m.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// URL returns the server base URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Client returns an HTTP client for the server.
func (m *MockProvider) Client() *http.Client {
	return m.server.Client()
}

// HandleFunc routes method and pattern to h.
func (m *MockProvider) HandleFunc(method, pattern string, h http.HandlerFunc) {
	m.router.MethodFunc(method, pattern, h)
}

// Respond routes method and pattern to a fixed JSON response.
func (m *MockProvider) Respond(method, pattern string, status int, body string) {
	m.HandleFunc(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// RespondSSE routes method and pattern to a server-sent event stream that
// writes each frame as a data line, then "[DONE]".
func (m *MockProvider) RespondSSE(method, pattern string, frames ...string) {
	m.HandleFunc(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockProvider) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, failing t when there is none.
func (m *MockProvider) LastRequest(t *testing.T) RecordedRequest {
	t.Helper()
	reqs := m.Requests()
	if len(reqs) == 0 {
		t.Fatal("mock provider received no requests")
	}
	return reqs[len(reqs)-1]
}
