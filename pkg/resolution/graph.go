package resolution

import (
	"fmt"
	"slices"

	"github.com/matzehuels/peergraph/pkg/pkgid"
)

// NodeID indexes a node in its [Graph].
type NodeID int

type node struct {
	children map[string]NodeID // specifier -> child
	noPeers  bool
}

// Graph is the resolution arena: nodes, their identities, and the root
// requirement tables. Nodes are never removed.
type Graph struct {
	nodes []*node
	ids   identityRegistry

	// reqs maps requirement text to the version it resolved to.
	reqs map[string]pkgid.NV
	// roots maps a root version to the node currently standing for it.
	roots  map[pkgid.NV]NodeID
	byName map[string][]NodeID

	// copyIndex is only set for graphs rebuilt from a snapshot.
	copyIndex map[string]int

	pathSeq uint64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		ids:    newIdentityRegistry(),
		reqs:   make(map[string]pkgid.NV),
		roots:  make(map[pkgid.NV]NodeID),
		byName: make(map[string][]NodeID),
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// createNode allocates a node for nv. The caller assigns its identity.
func (g *Graph) createNode(nv pkgid.NV) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &node{children: make(map[string]NodeID)})
	g.byName[nv.Name] = append(g.byName[nv.Name], id)
	return id
}

// getOrCreateForIdentity returns the node registered for id, creating one
// if none exists. created reports whether a new node was allocated.
func (g *Graph) getOrCreateForIdentity(id identity) (created bool, n NodeID) {
	if existing, ok := g.ids.lookup(id); ok {
		return false, existing
	}
	n = g.createNode(id.nv)
	g.ids.set(n, id)
	return true, n
}

// setChild points parent's edge named specifier at child.
func (g *Graph) setChild(specifier string, child, parent NodeID) {
	if child == parent {
		panic(fmt.Sprintf("resolution: node %d (%s) cannot depend on itself via %q",
			parent, g.nv(parent), specifier))
	}
	g.nodes[parent].children[specifier] = child
}

func (g *Graph) identity(n NodeID) identity {
	id, ok := g.ids.get(n)
	if !ok {
		panic(fmt.Sprintf("resolution: node %d has no identity", n))
	}
	return id
}

func (g *Graph) nv(n NodeID) pkgid.NV {
	return g.identity(n).nv
}

// setRoot records that requirement text req resolved to node.
func (g *Graph) setRoot(req string, nv pkgid.NV, n NodeID) {
	g.reqs[req] = nv
	g.roots[nv] = n
}

// existingVersions lists the versions of name already in the graph.
func (g *Graph) existingVersions(name string) []string {
	var out []string
	for _, n := range g.byName[name] {
		out = append(out, g.nv(n).Version)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// sortedRoots returns the root versions in a stable order.
func (g *Graph) sortedRoots() []pkgid.NV {
	nvs := make([]pkgid.NV, 0, len(g.roots))
	for nv := range g.roots {
		nvs = append(nvs, nv)
	}
	slices.SortFunc(nvs, pkgid.NV.Compare)
	return nvs
}

// sortedChildren returns n's specifiers in a stable order.
func (g *Graph) sortedChildren(n NodeID) []string {
	specs := make([]string, 0, len(g.nodes[n].children))
	for s := range g.nodes[n].children {
		specs = append(specs, s)
	}
	slices.Sort(specs)
	return specs
}

func (g *Graph) nextPathSeq() uint64 {
	g.pathSeq++
	return g.pathSeq
}
