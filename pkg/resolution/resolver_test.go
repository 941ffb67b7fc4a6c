package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/registry"
)

func newClient(t *testing.T, m *registry.Memory) *registry.Client {
	t.Helper()
	c, err := registry.NewClient(m, registry.Options{})
	require.NoError(t, err)
	return c
}

func parseReqs(t *testing.T, reqs []string) []pkgid.Req {
	t.Helper()
	out := make([]pkgid.Req, len(reqs))
	for i, s := range reqs {
		r, err := pkgid.ParseReq(s)
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

// resolveInto resolves reqs on g and flattens the result.
func resolveInto(t *testing.T, g *Graph, m *registry.Memory, reqs ...string) *Snapshot {
	t.Helper()
	ctx := context.Background()
	c := newClient(t, m)
	r := NewResolver(g, c, Options{})
	require.NoError(t, r.Resolve(ctx, parseReqs(t, reqs)))
	snap, err := g.IntoSnapshot(ctx, c)
	require.NoError(t, err)
	return snap
}

func resolve(t *testing.T, m *registry.Memory, reqs ...string) *Snapshot {
	t.Helper()
	return resolveInto(t, NewGraph(), m, reqs...)
}

func TestResolveDependencies(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("b", "^1")
	m.Publish("b", "1.0.0")
	m.Publish("b", "1.1.0")

	snap := resolve(t, m, "a@1")

	assert.Equal(t, map[string]string{"a@1": "a@1.0.0"}, snap.Roots)
	require.Len(t, snap.Packages, 2)
	assert.Equal(t, map[string]string{"b": "b@1.1.0"}, snap.Packages["a@1.0.0"].Dependencies)
	assert.Empty(t, snap.Packages["b@1.1.0"].Dependencies)
	assert.Equal(t, "https://registry.invalid/b/-/b-1.1.0.tgz", snap.Packages["b@1.1.0"].Dist.Tarball)
	assert.Equal(t, map[string][]string{"a": {"a@1.0.0"}, "b": {"b@1.1.0"}}, snap.PackagesByName)
}

func TestResolveReusesExistingVersions(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("shared", "^1.0.0")
	m.Publish("shared", "1.0.0")
	m.Publish("shared", "1.5.0")

	// shared@1.0.0 is already in the graph, so a's ^1.0.0 reuses it even
	// though 1.5.0 is latest.
	snap := resolve(t, m, "shared@1.0.0", "a@1")
	assert.Equal(t, "shared@1.0.0", snap.Packages["a@1.0.0"].Dependencies["shared"])
	assert.Equal(t, []string{"shared@1.0.0"}, snap.PackagesByName["shared"])
}

func TestResolveDuplicateRequirement(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0")

	snap := resolve(t, m, "a@1", "a@^1.0.0", "a@1")
	assert.Equal(t, map[string]string{"a@1": "a@1.0.0", "a@^1.0.0": "a@1.0.0"}, snap.Roots)
	assert.Len(t, snap.Packages, 1)
}

func TestResolveDistTag(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0")
	m.Publish("a", "2.0.0-beta.1")
	m.Tag("a", "next", "2.0.0-beta.1")

	snap := resolve(t, m, "a@next")
	assert.Equal(t, "a@2.0.0-beta.1", snap.Roots["a@next"])
}

func TestResolveDependencyCycle(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("b", "^1")
	m.Publish("b", "1.0.0").Dep("a", "^1")

	snap := resolve(t, m, "a@1")
	require.Len(t, snap.Packages, 2)
	assert.Equal(t, "b@1.0.0", snap.Packages["a@1.0.0"].Dependencies["b"])
	assert.Equal(t, "a@1.0.0", snap.Packages["b@1.0.0"].Dependencies["a"])
}

func TestResolveSelfDependency(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("a", "^1")
	m.Publish("a", "2.0.0").Dep("a", "^1")

	t.Run("same version", func(t *testing.T) {
		snap := resolve(t, m, "a@1")
		require.Len(t, snap.Packages, 1)
		assert.Empty(t, snap.Packages["a@1.0.0"].Dependencies)
	})

	t.Run("other version", func(t *testing.T) {
		snap := resolve(t, m, "a@2")
		require.Len(t, snap.Packages, 2)
		assert.Equal(t, "a@1.0.0", snap.Packages["a@2.0.0"].Dependencies["a"])
		assert.Empty(t, snap.Packages["a@1.0.0"].Dependencies)
		assert.Equal(t, []string{"a@1.0.0", "a@2.0.0"}, snap.PackagesByName["a"])
	})
}

func TestResolvePeerFromRegistry(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("x", "1.0.0").Peer("react", "^18")
	m.Publish("react", "17.0.0")
	m.Publish("react", "18.2.0")

	snap := resolve(t, m, "x@1")
	assert.Equal(t, "x@1.0.0_react@18.2.0", snap.Roots["x@1"])
	assert.Equal(t, map[string]string{"react": "react@18.2.0"},
		snap.Packages["x@1.0.0_react@18.2.0"].Dependencies)
	assert.Contains(t, snap.Packages, "react@18.2.0")
}

func TestResolvePeerPrefersRoots(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("b", "^1").Dep("c", "^1")
	m.Publish("b", "1.0.0").Peer("peer", "^4")
	m.Publish("c", "1.0.0").Peer("peer", "*")
	m.Publish("peer", "4.0.0")
	m.Publish("peer", "5.0.0")

	snap := resolve(t, m, "a@1", "peer@4.0.0")

	assert.Equal(t, "a@1.0.0_peer@4.0.0", snap.Roots["a@1"])
	assert.Equal(t, "peer@4.0.0", snap.Roots["peer@4.0.0"])
	a := snap.Packages["a@1.0.0_peer@4.0.0"]
	require.NotNil(t, a)
	assert.Equal(t, map[string]string{
		"b": "b@1.0.0_peer@4.0.0",
		"c": "c@1.0.0_peer@4.0.0",
	}, a.Dependencies)
	assert.Equal(t, "peer@4.0.0", snap.Packages["c@1.0.0_peer@4.0.0"].Dependencies["peer"])
	assert.Equal(t, []string{"peer@4.0.0"}, snap.PackagesByName["peer"])
}

func TestResolvePeerFromAncestorChildren(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("x", "1.0.0").Dep("plugin", "^1").Dep("react", "17")
	m.Publish("y", "1.0.0").Dep("plugin", "^1").Dep("react", "18")
	m.Publish("plugin", "1.0.0").Peer("react", "*")
	m.Publish("react", "17.0.0")
	m.Publish("react", "18.0.0")

	snap := resolve(t, m, "x@1", "y@1")

	assert.Equal(t, "x@1.0.0_react@17.0.0", snap.Roots["x@1"])
	assert.Equal(t, "y@1.0.0_react@18.0.0", snap.Roots["y@1"])
	assert.Equal(t, "plugin@1.0.0_react@17.0.0", snap.Packages["x@1.0.0_react@17.0.0"].Dependencies["plugin"])
	assert.Equal(t, "plugin@1.0.0_react@18.0.0", snap.Packages["y@1.0.0_react@18.0.0"].Dependencies["plugin"])
	assert.Equal(t, []string{"plugin@1.0.0_react@17.0.0", "plugin@1.0.0_react@18.0.0"},
		snap.PackagesByName["plugin"])

	assert.Equal(t, 0, snap.Packages["plugin@1.0.0_react@17.0.0"].CopyIndex)
	assert.Equal(t, 1, snap.Packages["plugin@1.0.0_react@18.0.0"].CopyIndex)
	assert.Equal(t, 0, snap.Packages["react@17.0.0"].CopyIndex)
	assert.Equal(t, 0, snap.Packages["react@18.0.0"].CopyIndex)
}

func TestResolvePeerCycle(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Peer("b", "^1")
	m.Publish("b", "1.0.0").Peer("a", "^1")

	snap := resolve(t, m, "a@1", "b@1")

	assert.Equal(t, map[string]string{
		"a@1": "a@1.0.0_b@1.0.0",
		"b@1": "b@1.0.0_a@1.0.0",
	}, snap.Roots)
	require.Len(t, snap.Packages, 2)
	assert.Equal(t, "b@1.0.0_a@1.0.0", snap.Packages["a@1.0.0_b@1.0.0"].Dependencies["b"])
	assert.Equal(t, "a@1.0.0_b@1.0.0", snap.Packages["b@1.0.0_a@1.0.0"].Dependencies["a"])
}

func TestResolveOptionalPeerMissing(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("y", "1.0.0").OptionalPeer("z", "*")
	m.Publish("z", "1.0.0")

	snap := resolve(t, m, "y@1")
	assert.Equal(t, map[string]string{"y@1": "y@1.0.0"}, snap.Roots)
	assert.Empty(t, snap.Packages["y@1.0.0"].Dependencies)
	assert.NotContains(t, snap.PackagesByName, "z")
}

func TestResolveOptionalPeerCatchUp(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").OptionalPeer("peer", "^1")
	m.Publish("b", "1.0.0").Dep("a", "^1").Dep("peer", "^1")
	m.Publish("peer", "1.0.0")

	snap := resolve(t, m, "a@1", "b@1")

	// a is first seen as a root with nothing to satisfy its optional peer.
	// Once b provides one, the earlier occurrence is bound to it too.
	assert.Equal(t, map[string]string{
		"a@1": "a@1.0.0_peer@1.0.0",
		"b@1": "b@1.0.0_peer@1.0.0",
	}, snap.Roots)
	require.Len(t, snap.Packages, 3)
	assert.Equal(t, map[string]string{"peer": "peer@1.0.0"}, snap.Packages["a@1.0.0_peer@1.0.0"].Dependencies)
	assert.Equal(t, map[string]string{
		"a":    "a@1.0.0_peer@1.0.0",
		"peer": "peer@1.0.0",
	}, snap.Packages["b@1.0.0_peer@1.0.0"].Dependencies)
}

func TestResolveDeterministic(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("x", "1.0.0").Dep("plugin", "^1").Dep("react", "17").Dep("util", "^2")
	m.Publish("y", "1.0.0").Dep("plugin", "^1").Dep("react", "18")
	m.Publish("plugin", "1.0.0").Peer("react", "*").Dep("util", "^2")
	m.Publish("util", "2.0.0").OptionalPeer("react", ">=17")
	m.Publish("react", "17.0.0")
	m.Publish("react", "18.0.0")

	first := resolve(t, m, "x@1", "y@1")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, resolve(t, m, "x@1", "y@1"))
	}
}

func TestResolveErrors(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("missing", "^1")
	m.Publish("b", "1.0.0").Dep("a", "^9")

	tests := []struct {
		name string
		req  string
		code errors.Code
	}{
		{"unknown root", "nope@1", errors.ErrCodePackageNotFound},
		{"no matching root version", "a@^2", errors.ErrCodeVersionNotFound},
		{"unknown dependency", "a@1", errors.ErrCodePackageNotFound},
		{"no matching dependency version", "b@1", errors.ErrCodeVersionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, m)
			r := NewResolver(NewGraph(), c, Options{})
			err := r.Resolve(context.Background(), parseReqs(t, []string{tt.req}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "error = %v, want %s", err, tt.code)
		})
	}
}

func TestResolveMaxNodes(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0").Dep("b", "^1")
	m.Publish("b", "1.0.0").Dep("c", "^1")
	m.Publish("c", "1.0.0")

	r := NewResolver(NewGraph(), newClient(t, m), Options{MaxNodes: 1})
	err := r.Resolve(context.Background(), parseReqs(t, []string{"a@1"}))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "error = %v", err)
}

func TestResolveCanceled(t *testing.T) {
	m := registry.NewMemory()
	m.Publish("a", "1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(NewGraph(), newClient(t, m), Options{})
	c := newClient(t, m)
	info, err := c.PackageInfo(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, r.AddRequirement(ctx, pkgid.Req{Name: "a", Range: "1"}, info))
	assert.ErrorIs(t, r.ResolvePending(ctx), context.Canceled)
}
