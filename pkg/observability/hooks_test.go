package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	r := NoopResolveHooks{}
	r.OnResolveStart(ctx, 3)
	r.OnResolveComplete(ctx, 42, time.Second, nil)
	r.OnPackageFetched(ctx, "react", true, time.Millisecond, nil)
	r.OnPeerResolved(ctx, "ancestor")

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "http")
	c.OnCacheMiss(ctx, "resolution")
	c.OnCacheSet(ctx, "http", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "registry.npmjs.org", "/react")
	h.OnResponse(ctx, "GET", "registry.npmjs.org", "/react", 200, time.Second)
	h.OnError(ctx, "GET", "registry.npmjs.org", "/react", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Resolve().(NoopResolveHooks); !ok {
		t.Error("Resolve() should return NoopResolveHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customResolve := &testResolveHooks{}
	SetResolveHooks(customResolve)
	if Resolve() != customResolve {
		t.Error("SetResolveHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Resolve().(NoopResolveHooks); !ok {
		t.Error("Reset() should restore NoopResolveHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testResolveHooks{}
	SetResolveHooks(custom)
	SetResolveHooks(nil)

	if Resolve() != custom {
		t.Error("SetResolveHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusCounters(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus(prometheus.NewRegistry())

	p.OnResolveComplete(ctx, 10, time.Second, nil)
	p.OnResolveComplete(ctx, 0, time.Second, errors.New("boom"))
	p.OnPeerResolved(ctx, "root")
	p.OnPeerResolved(ctx, "root")
	p.OnCacheHit(ctx, "http")
	p.OnResponse(ctx, "GET", "registry.npmjs.org", "/react", 503, time.Millisecond)

	if got := testutil.ToFloat64(p.resolveTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("resolve ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.resolveTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("resolve error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.packagesTotal); got != 10 {
		t.Errorf("packages = %v, want 10", got)
	}
	if got := testutil.ToFloat64(p.peersTotal.WithLabelValues("root")); got != 2 {
		t.Errorf("peers root = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.cacheTotal.WithLabelValues("http", "hit")); got != 1 {
		t.Errorf("cache hit = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.httpTotal.WithLabelValues("registry.npmjs.org", "5xx")); got != 1 {
		t.Errorf("http 5xx = %v, want 1", got)
	}
}

func TestPrometheusInstall(t *testing.T) {
	t.Cleanup(Reset)
	p := NewPrometheus(prometheus.NewRegistry())
	p.Install()

	if Resolve() != ResolveHooks(p) {
		t.Error("Resolve() is not the installed Prometheus hooks")
	}
	if Cache() != CacheHooks(p) {
		t.Error("Cache() is not the installed Prometheus hooks")
	}
	if HTTP() != HTTPHooks(p) {
		t.Error("HTTP() is not the installed Prometheus hooks")
	}
}

// Test implementations
type testResolveHooks struct{ NoopResolveHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
