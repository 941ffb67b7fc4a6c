package resolution

import (
	"context"
	"slices"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/registry"
)

// Snapshot is the flat, serializable form of a resolved graph. Every
// package appears once under its final id.
type Snapshot struct {
	// Roots maps requirement text to the final id it resolved to.
	Roots map[string]string `json:"roots" yaml:"roots"`
	// Packages maps final ids to their resolved dependencies.
	Packages map[string]*Package `json:"packages" yaml:"packages"`
	// PackagesByName lists the final ids of each package name, sorted.
	PackagesByName map[string][]string `json:"packages_by_name" yaml:"packages_by_name"`
}

// Package is one entry of a [Snapshot].
type Package struct {
	// Dependencies maps specifiers to final ids. Peer dependencies are
	// included.
	Dependencies map[string]string `json:"dependencies" yaml:"dependencies"`
	Dist         registry.Dist     `json:"dist" yaml:"dist"`
	CopyIndex    int               `json:"copy_index" yaml:"copy_index"`
}

// Len returns the number of packages.
func (s *Snapshot) Len() int { return len(s.Packages) }

// IntoSnapshot flattens every node reachable from the roots into a
// snapshot. Dist records come from reg, one lookup per package version.
func (g *Graph) IntoSnapshot(ctx context.Context, reg registry.Registry) (*Snapshot, error) {
	snap := &Snapshot{
		Roots:          make(map[string]string, len(g.reqs)),
		Packages:       make(map[string]*Package),
		PackagesByName: make(map[string][]string),
	}

	f := newFlattener(g)
	copies := NewCopyIndexResolver()
	seedKeys := make([]string, 0, len(g.copyIndex))
	for key := range g.copyIndex {
		seedKeys = append(seedKeys, key)
	}
	slices.Sort(seedKeys)
	for _, key := range seedKeys {
		id, err := pkgid.ParseID(key)
		if err != nil {
			continue
		}
		copies.Seed(id, g.copyIndex[key])
	}

	traversed := make(map[NodeID]bool)
	var queue []NodeID
	for _, nv := range g.sortedRoots() {
		n := g.roots[nv]
		if !traversed[n] {
			traversed[n] = true
			queue = append(queue, n)
		}
	}

	dists := make(map[pkgid.NV]registry.Dist)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		id := f.id(n)
		key := id.String()
		// Nodes flattening to the same id are the same package. Only the
		// first one visited is recorded, and only its children are walked,
		// so every package written is referenced by a root or a record.
		if _, dup := snap.Packages[key]; dup {
			continue
		}
		specs := g.sortedChildren(n)
		for _, spec := range specs {
			child := g.nodes[n].children[spec]
			if !traversed[child] {
				traversed[child] = true
				queue = append(queue, child)
			}
		}

		dist, ok := dists[id.NV]
		if !ok {
			info, err := reg.PackageInfo(ctx, id.NV.Name)
			if err != nil {
				return nil, wrapf(err, "dist for %s", id.NV)
			}
			vi, ok := info.Version(id.NV.Version)
			if !ok {
				return nil, errors.New(errors.ErrCodeVersionNotFound, "%s is not published", id.NV)
			}
			dist = vi.Dist
			dists[id.NV] = dist
		}

		pkg := &Package{
			Dependencies: make(map[string]string, len(specs)),
			Dist:         dist,
			CopyIndex:    copies.Resolve(id),
		}
		for _, spec := range specs {
			pkg.Dependencies[spec] = f.id(g.nodes[n].children[spec]).String()
		}
		snap.Packages[key] = pkg
		snap.PackagesByName[id.NV.Name] = append(snap.PackagesByName[id.NV.Name], key)
	}

	for name, keys := range snap.PackagesByName {
		slices.Sort(keys)
		snap.PackagesByName[name] = slices.Compact(keys)
	}
	for req, nv := range g.reqs {
		snap.Roots[req] = f.id(g.roots[nv]).String()
	}
	return snap, nil
}

// flattener turns nodes into final ids, memoizing per node.
type flattener struct {
	g    *Graph
	memo map[NodeID]pkgid.ID
}

func newFlattener(g *Graph) *flattener {
	return &flattener{g: g, memo: make(map[NodeID]pkgid.ID)}
}

func (f *flattener) id(n NodeID) pkgid.ID {
	if id, ok := f.memo[n]; ok {
		return id
	}
	id := f.flatten(n, nil)
	f.memo[n] = id
	return id
}

// flatten resolves n's peer bindings to nodes and renders them in binding
// order. seen holds the versions on the current branch: a peer already on
// it is left out, which also drops a package's peer on itself.
func (f *flattener) flatten(n NodeID, seen []pkgid.NV) pkgid.ID {
	g := f.g
	ident := g.identity(n)
	out := pkgid.ID{NV: ident.nv}
	seen = append(seen[:len(seen):len(seen)], ident.nv)

	var added []pkgid.NV
	for _, b := range ident.peers {
		peer, ok := g.resolveBinding(b)
		if !ok {
			continue
		}
		nv := g.nv(peer)
		if slices.Contains(seen, nv) || slices.Contains(added, nv) {
			continue
		}
		added = append(added, nv)
		out.Peers = append(out.Peers, f.flatten(peer, seen))
	}
	return out
}

// resolveBinding finds the node a binding currently points at.
func (g *Graph) resolveBinding(b peerBinding) (NodeID, bool) {
	switch b.kind {
	case bindingPath:
		child, ok := g.nodes[b.scope.node].children[b.spec]
		if !ok || g.nv(child) != b.target {
			return 0, false
		}
		return child, true
	case bindingRoot:
		n, ok := g.roots[b.target]
		return n, ok
	default:
		return b.node, true
	}
}

// FromSnapshot rebuilds a graph from snap. The result can be extended with
// new requirements by a [Resolver] and flattened again; copy indexes
// already in snap are kept.
func FromSnapshot(snap *Snapshot) (*Graph, error) {
	g := NewGraph()
	g.copyIndex = make(map[string]int, len(snap.Packages))

	m := &materializer{
		g:     g,
		snap:  snap,
		nodes: make(map[string]NodeID),
		nvs:   make(map[pkgid.NV]bool),
	}
	keys := make([]string, 0, len(snap.Packages))
	for key := range snap.Packages {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		id, err := pkgid.ParseID(key)
		if err != nil {
			return nil, err
		}
		m.nvs[id.NV] = true
	}

	reqs := make([]string, 0, len(snap.Roots))
	for req := range snap.Roots {
		reqs = append(reqs, req)
	}
	slices.Sort(reqs)
	for _, text := range reqs {
		req, err := pkgid.ParseReq(text)
		if err != nil {
			return nil, err
		}
		n, err := m.materializeKey(snap.Roots[text])
		if err != nil {
			return nil, wrapf(err, "root %s", text)
		}
		g.setRoot(req.String(), g.nv(n), n)
	}

	// Packages not reachable from a root are kept too.
	for _, key := range keys {
		if _, err := m.materializeKey(key); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type materializer struct {
	g     *Graph
	snap  *Snapshot
	nodes map[string]NodeID
	nvs   map[pkgid.NV]bool
}

func (m *materializer) materializeKey(key string) (NodeID, error) {
	if n, ok := m.nodes[key]; ok {
		return n, nil
	}
	id, err := pkgid.ParseID(key)
	if err != nil {
		return 0, err
	}
	if _, ok := m.snap.Packages[key]; !ok {
		return 0, errors.New(errors.ErrCodeNotFound, "package %s is referenced but missing from the snapshot", key)
	}
	return m.materialize(id)
}

func (m *materializer) materialize(id pkgid.ID) (NodeID, error) {
	g := m.g
	key := id.String()
	if n, ok := m.nodes[key]; ok {
		return n, nil
	}

	ident := identity{nv: id.NV}
	for _, peer := range id.Peers {
		pn, err := m.materializePeer(peer)
		if err != nil {
			return 0, err
		}
		ident = ident.withPeer(nodeBinding(pn))
	}
	// A dependency cycle through a peer may have built this package
	// already.
	if n, ok := m.nodes[key]; ok {
		return n, nil
	}
	_, n := g.getOrCreateForIdentity(ident)
	m.nodes[key] = n

	pkg, ok := m.snap.Packages[key]
	if !ok {
		return n, nil
	}
	g.copyIndex[key] = pkg.CopyIndex

	specs := make([]string, 0, len(pkg.Dependencies))
	for spec := range pkg.Dependencies {
		specs = append(specs, spec)
	}
	slices.Sort(specs)
	for _, spec := range specs {
		child, err := m.materializeKey(pkg.Dependencies[spec])
		if err != nil {
			return 0, wrapf(err, "%s: dependency %s", key, spec)
		}
		if child == n {
			return 0, errors.New(errors.ErrCodeInvalidFormat, "package %s depends on itself", key)
		}
		g.setChild(spec, child, n)
	}
	return n, nil
}

// materializePeer builds the node for a peer id. Peer cycles are cut when
// ids are flattened, so the nested form of a peer need not be a package of
// its own; it is then kept as an identity without edges as long as its
// version is known.
func (m *materializer) materializePeer(id pkgid.ID) (NodeID, error) {
	key := id.String()
	if _, ok := m.snap.Packages[key]; !ok && !m.nvs[id.NV] {
		return 0, errors.New(errors.ErrCodeNotFound, "peer %s is referenced but missing from the snapshot", key)
	}
	return m.materialize(id)
}
