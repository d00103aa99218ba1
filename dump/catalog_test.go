package dump

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/skyportal/dump/blob/memory"
	"github.com/skyportal/dump/config"
	"github.com/skyportal/dump/log"
	"github.com/skyportal/dump/telemetry"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeCatalog serves canned JSON for the catalog endpoints a test
// registers and records every request it sees.
type fakeCatalog struct {
	*httptest.Server
	mux *http.ServeMux

	mu       sync.Mutex
	requests []*http.Request
	bodies   map[string][]byte
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{mux: http.NewServeMux(), bodies: make(map[string][]byte)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

// data answers pattern with {"status": "success", "data": v}.
func (f *fakeCatalog) data(pattern string, v any) {
	f.status(pattern, http.StatusOK, v)
}

func (f *fakeCatalog) status(pattern string, code int, v any) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": v})
	})
}

// queries returns the query of every request made to path, in order.
func (f *fakeCatalog) queries(path string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []url.Values
	for _, r := range f.requests {
		if r.URL.Path == path {
			out = append(out, r.URL.Query())
		}
	}
	return out
}

func testConfig(url string) *config.Config {
	return &config.Config{
		SkyPortal: config.SkyPortal{
			URL:         url,
			Token:       "test-token-1234",
			Whitelisted: true,
			Timeout:     5 * time.Second,
		},
		Pacing:     config.Pacing{Every: 10, Pause: time.Second},
		Blob:       config.Blob{Driver: "memory"},
		NumPerPage: 10,
	}
}

func newTestExporter(cfg *config.Config) (*Exporter, *memory.Store) {
	store := memory.New()
	e := NewExporter(cfg, store, telemetry.New(), log.Discard())
	e.pacer.Sleep = func(context.Context, time.Duration) error { return nil }
	return e, store
}

// readBundle decodes the data.yaml saved in store.
func readBundle(t *testing.T, store *memory.Store) map[string][]map[string]any {
	t.Helper()
	b, err := store.Get("data.yaml")
	require.NoError(t, err)

	var out map[string][]map[string]any
	require.NoError(t, yaml.Unmarshal(b, &out))
	return out
}

func ptr[T any](v T) *T { return &v }
