package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/peergraph/pkg/cache"
	"github.com/matzehuels/peergraph/pkg/observability"
	"github.com/matzehuels/peergraph/pkg/pipeline"
	"github.com/matzehuels/peergraph/pkg/registry"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

func newTestServer(t *testing.T, c cache.Cache, metrics prometheus.Gatherer) *httptest.Server {
	t.Helper()
	m := registry.NewMemory()
	m.Publish("plugin", "1.0.0").Peer("react", "^18")
	m.Publish("react", "18.2.0")
	m.Publish("left-pad", "1.3.0")

	reg, err := registry.NewClient(m, registry.Options{})
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(c, nil, reg, "memory", nil)
	ts := httptest.NewServer(New(runner, nil, metrics).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] == "" {
		t.Errorf("body = %v", body)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("%s = %q, want a UUID", RequestIDHeader, resp.Header.Get(RequestIDHeader))
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	id := uuid.NewString()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, id)
	}
}

func TestResolve(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, c, nil)

	resp := post(t, ts.URL+"/v1/resolve", `{"requirements": ["plugin@1", "left-pad"]}`)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get(CacheHeader); got != "miss" {
		t.Errorf("%s = %q, want miss", CacheHeader, got)
	}
	var snap resolution.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if got := snap.Roots["plugin@1"]; got != "plugin@1.0.0_react@18.2.0" {
		t.Errorf("Roots[plugin@1] = %q", got)
	}
	if got := snap.Roots["left-pad"]; got != "left-pad@1.3.0" {
		t.Errorf("Roots[left-pad] = %q", got)
	}

	again := post(t, ts.URL+"/v1/resolve", `{"requirements": ["left-pad", "plugin@1"]}`)
	if got := again.Header.Get(CacheHeader); got != "hit" {
		t.Errorf("%s = %q, want hit", CacheHeader, got)
	}
	if again.Header.Get(HashHeader) != resp.Header.Get(HashHeader) {
		t.Errorf("%s differs between miss and hit", HashHeader)
	}
}

func TestResolveWithSeed(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	body := `{
  "requirements": ["react@18"],
  "snapshot": {
    "roots": {"left-pad@1": "left-pad@1.3.0"},
    "packages": {"left-pad@1.3.0": {"dependencies": {}, "copy_index": 0}}
  }
}`
	resp := post(t, ts.URL+"/v1/resolve", body)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, b)
	}
	var snap resolution.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Roots) != 2 {
		t.Errorf("Roots = %v, want seed root and new root", snap.Roots)
	}
}

func TestResolveErrors(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"requirements": [`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", `{"requirement": ["a"]}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty", `{"requirements": []}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad requirement", `{"requirements": ["Bad Name"]}`, http.StatusBadRequest, "INVALID_REQUIREMENT"},
		{"unknown package", `{"requirements": ["missing@1"]}`, http.StatusNotFound, "PACKAGE_NOT_FOUND"},
		{"no version", `{"requirements": ["react@^99"]}`, http.StatusNotFound, "VERSION_NOT_FOUND"},
		{"bad seed", `{"requirements": ["react"], "snapshot": {"roots": {"react": "nope"}}}`, http.StatusBadRequest, "INVALID_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/resolve", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if e := decodeError(t, resp); string(e.Code) != tt.code || e.Message == "" {
				t.Errorf("error = %+v, want code %s", e, tt.code)
			}
		})
	}
}

func TestGraph(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	snap := `{
  "roots": {"plugin@1": "plugin@1.0.0_react@18.2.0"},
  "packages": {
    "plugin@1.0.0_react@18.2.0": {"dependencies": {"react": "react@18.2.0"}},
    "react@18.2.0": {"dependencies": {}}
  }
}`

	resp := post(t, ts.URL+"/v1/graph", snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"plugin@1.0.0_react@18.2.0" -> "react@18.2.0" [style=dashed];`) {
		t.Errorf("DOT missing peer edge:\n%s", body)
	}

	bad := post(t, ts.URL+"/v1/graph?format=png", snap)
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("format=png status = %d, want 400", bad.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	t.Cleanup(observability.Reset)
	reg := prometheus.NewRegistry()
	observability.NewPrometheus(reg).Install()
	ts := newTestServer(t, nil, reg)

	post(t, ts.URL+"/v1/resolve", `{"requirements": ["left-pad"]}`)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `peergraph_resolve_total{outcome="ok"} 1`) {
		t.Errorf("metrics missing resolve counter:\n%s", body)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	reg, err := registry.NewClient(registry.NewMemory(), registry.Options{})
	if err != nil {
		t.Fatal(err)
	}
	s := New(pipeline.NewRunner(nil, nil, reg, "memory", nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	if err := <-done; err != nil {
		t.Errorf("ListenAndServe() = %v, want nil after cancel", err)
	}
}
