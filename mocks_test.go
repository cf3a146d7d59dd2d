package portal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	portal "github.com/goliatone/go-clinic-portal"
)

// fakeAPI scripts responses per "METHOD /path" and records every call so
// tests can assert the exact fallback order.
type fakeAPI struct {
	t interface {
		Fatalf(format string, args ...any)
	}

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []string

	server *httptest.Server
}

func newFakeAPI(t interface {
	Fatalf(format string, args ...any)
	Cleanup(func())
}) *fakeAPI {
	api := &fakeAPI{
		t:        t,
		handlers: map[string]http.HandlerFunc{},
	}

	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		api.mu.Lock()
		api.calls = append(api.calls, key)
		handler, ok := api.handlers[key]
		api.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		handler(w, r)
	}))

	t.Cleanup(api.server.Close)

	return api
}

func (f *fakeAPI) URL() string {
	return f.server.URL
}

func (f *fakeAPI) handle(key string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = handler
}

// respond registers a handler returning the given status and JSON body.
func (f *fakeAPI) respond(key string, status int, body any) {
	f.handle(key, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			if err := json.NewEncoder(w).Encode(body); err != nil {
				f.t.Fatalf("failed to encode response for %s: %s", key, err)
			}
		}
	})
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeAPI) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// newTestSession wires a session to the fake API and a memory store.
func newTestSession(api *fakeAPI) (*portal.Session, *portal.MemoryStore) {
	store := portal.NewMemoryStore()
	client := portal.NewClient(api.URL())
	session := portal.NewSession(client, store).WithLogger(quietLogger{})
	return session, store
}

// quietLogger keeps test output readable.
type quietLogger struct{}

func (quietLogger) Debug(format string, args ...any) {}
func (quietLogger) Info(format string, args ...any)  {}
func (quietLogger) Warn(format string, args ...any)  {}
func (quietLogger) Error(format string, args ...any) {}
