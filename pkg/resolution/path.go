package resolution

import (
	"iter"
	"strings"

	"github.com/matzehuels/peergraph/pkg/pkgid"
)

// GraphPath is one position of a traversal from a root requirement. Paths
// form an immutable parent-linked list shared by every branch below them.
// The node a position denotes is the one mutable field: when a peer
// binding gives the node a new identity, the position is repointed and
// every holder sees the new node.
type GraphPath struct {
	previous  *GraphPath // nil for a root position
	node      NodeID
	specifier string
	nv        pkgid.NV
	seq       uint64
}

// forRoot starts a traversal at a root requirement.
func forRoot(seq uint64, node NodeID, nv pkgid.NV) *GraphPath {
	return &GraphPath{node: node, nv: nv, seq: seq}
}

// withID extends p by one edge. It returns nil when nv already occurs on
// the path, which stops the traversal from descending into a cycle.
func (p *GraphPath) withID(seq uint64, node NodeID, specifier string, nv pkgid.NV) *GraphPath {
	for cur := p; cur != nil; cur = cur.previous {
		if cur.nv == nv {
			return nil
		}
	}
	return &GraphPath{previous: p, node: node, specifier: specifier, nv: nv, seq: seq}
}

// changeID repoints this position at node.
func (p *GraphPath) changeID(node NodeID) { p.node = node }

// Node returns the node this position currently denotes.
func (p *GraphPath) Node() NodeID { return p.node }

// NV returns the package version at this position.
func (p *GraphPath) NV() pkgid.NV { return p.nv }

// top returns the root position of the path.
func (p *GraphPath) top() *GraphPath {
	cur := p
	for cur.previous != nil {
		cur = cur.previous
	}
	return cur
}

// ancestor is a position above a path: a node position or, last, the
// root requirement table.
type ancestor struct {
	path   *GraphPath // nil for the root table
	rootNV pkgid.NV   // set when path is nil
}

// ancestors yields the positions above p, nearest first, ending with the
// root requirement table. The sequence can be ranged over repeatedly.
func (p *GraphPath) ancestors() iter.Seq[ancestor] {
	return func(yield func(ancestor) bool) {
		cur := p.previous
		for cur != nil {
			if !yield(ancestor{path: cur}) {
				return
			}
			cur = cur.previous
		}
		yield(ancestor{rootNV: p.top().nv})
	}
}

// String renders the path root first, e.g. "a@1.0.0 > b@2.0.0".
func (p *GraphPath) String() string {
	var parts []string
	for cur := p; cur != nil; cur = cur.previous {
		parts = append(parts, cur.nv.String())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
