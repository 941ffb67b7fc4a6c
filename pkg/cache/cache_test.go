package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/peergraph/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "http:npm:react"); hit {
		t.Error("empty cache should miss")
	}
	if err := c.Set(ctx, "http:npm:react", []byte(`{"name":"react"}`), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "http:npm:react")
	if err != nil || !hit {
		t.Fatalf("Get() hit = %v, err = %v, want hit", hit, err)
	}
	if string(data) != `{"name":"react"}` {
		t.Errorf("Get() = %s", data)
	}

	if err := c.Delete(ctx, "http:npm:react"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "http:npm:react"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "http:npm:react"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit = %v, err = %v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("cleared key should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.HTTPKey("npm:", "express"); got != "http:npm::express" {
		t.Errorf("HTTPKey() = %s", got)
	}

	opts := ResolutionKeyOpts{Registry: "https://registry.npmjs.org"}
	a := k.ResolutionKey([]string{"react@18", "react-dom@18"}, opts)
	b := k.ResolutionKey([]string{"react-dom@18", " react@18", "react@18"}, opts)
	if a != b {
		t.Error("ResolutionKey should ignore order, whitespace and duplicates")
	}
	c := k.ResolutionKey([]string{"react@18", "react-dom@18"}, ResolutionKeyOpts{Registry: "http://localhost:4873"})
	if a == c {
		t.Error("different registries should produce different keys")
	}
	if keyType(a) != "resolution" {
		t.Errorf("keyType(%s) = %s, want resolution", a, keyType(a))
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "r1:")
	if got := scoped.HTTPKey("npm", "react"); got != "r1:http:npm:react" {
		t.Errorf("HTTPKey() = %s, want r1:http:npm:react", got)
	}
	key := scoped.ResolutionKey([]string{"react@^18"}, ResolutionKeyOpts{})
	if !strings.HasPrefix(key, "r1:resolution:") {
		t.Errorf("ResolutionKey() = %s, want r1:resolution: prefix", key)
	}

	if got := NewScopedKeyer(nil, "prefix:").HTTPKey("test:", "key"); got != "prefix:http:test::key" {
		t.Errorf("nil inner: %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("message not preserved: %s", err)
	}
	if IsRetryable(ErrNotFound) {
		t.Error("unwrapped errors are not retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	old := RetryDelay
	RetryDelay = time.Millisecond
	defer func() { RetryDelay = old }()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNotFound
	})
	if err != ErrNotFound || calls != 1 {
		t.Errorf("non-retryable: err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry once: err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("exhausted: err = %v, calls = %d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type recordingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets map[string]int
}

func (r *recordingHooks) OnCacheHit(_ context.Context, kt string)       { r.hits[kt]++ }
func (r *recordingHooks) OnCacheMiss(_ context.Context, kt string)      { r.misses[kt]++ }
func (r *recordingHooks) OnCacheSet(_ context.Context, kt string, _ int) { r.sets[kt]++ }

func TestInstrument(t *testing.T) {
	hooks := &recordingHooks{hits: map[string]int{}, misses: map[string]int{}, sets: map[string]int{}}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrument(fc)
	if Instrument(c) != c {
		t.Error("Instrument should not wrap twice")
	}

	c.Get(ctx, "http:npm:a")
	c.Set(ctx, "http:npm:a", []byte("x"), 0)
	c.Get(ctx, "http:npm:a")

	if hooks.misses["http"] != 1 || hooks.sets["http"] != 1 || hooks.hits["http"] != 1 {
		t.Errorf("hooks = %+v", hooks)
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("PEERGRAPH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PEERGRAPH_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, url, "peergraph-test:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted key should miss")
	}
}
