package resolution

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/matzehuels/peergraph/pkg/pkgid"
)

type bindingKind uint8

const (
	// bindingPath is pending: the target is the child of the scope path's
	// current node under the binding's specifier.
	bindingPath bindingKind = iota
	// bindingRoot is pending: the target is the root package with the
	// target NV.
	bindingRoot
	// bindingNode is fixed to a node. Only snapshots produce these.
	bindingNode
)

// peerBinding records where a peer dependency was satisfied.
type peerBinding struct {
	kind   bindingKind
	scope  *GraphPath // bindingPath
	spec   string     // bindingPath: edge of the scope node holding the target
	rootNV pkgid.NV   // bindingRoot: the root whose requirement table matched
	target pkgid.NV   // bindingPath, bindingRoot
	node   NodeID     // bindingNode
}

func pathBinding(scope *GraphPath, spec string, target pkgid.NV) peerBinding {
	return peerBinding{kind: bindingPath, scope: scope, spec: spec, target: target}
}

func rootBinding(rootNV, target pkgid.NV) peerBinding {
	return peerBinding{kind: bindingRoot, rootNV: rootNV, target: target}
}

func nodeBinding(node NodeID) peerBinding {
	return peerBinding{kind: bindingNode, node: node}
}

// hash identifies the binding. Pending bindings hash by the scope path's
// sequence number, never by the node it currently denotes.
func (b peerBinding) hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	d.Write([]byte{byte(b.kind)})
	switch b.kind {
	case bindingPath:
		binary.LittleEndian.PutUint64(buf[:], b.scope.seq)
		d.Write(buf[:])
		d.WriteString(b.spec)
		d.Write([]byte{0})
		writeNV(d, b.target)
	case bindingRoot:
		writeNV(d, b.rootNV)
		writeNV(d, b.target)
	case bindingNode:
		binary.LittleEndian.PutUint64(buf[:], uint64(b.node))
		d.Write(buf[:])
	}
	return d.Sum64()
}

func writeNV(d *xxhash.Digest, nv pkgid.NV) {
	d.WriteString(nv.Name)
	d.Write([]byte{0})
	d.WriteString(nv.Version)
	d.Write([]byte{0})
}

// bindingKey is the comparable form of a binding: exactly the fields its
// hash covers.
type bindingKey struct {
	kind   bindingKind
	seq    uint64
	spec   string
	rootNV pkgid.NV
	target pkgid.NV
	node   NodeID
}

func (b peerBinding) key() bindingKey {
	k := bindingKey{kind: b.kind}
	switch b.kind {
	case bindingPath:
		k.seq, k.spec, k.target = b.scope.seq, b.spec, b.target
	case bindingRoot:
		k.rootNV, k.target = b.rootNV, b.target
	case bindingNode:
		k.node = b.node
	}
	return k
}

// identity is a package version plus the peer bindings it was resolved
// with. Bindings keep insertion order.
type identity struct {
	nv    pkgid.NV
	peers []peerBinding
}

// withPeer returns a copy of id with b appended. Appending a binding
// that is already present returns an equal identity.
func (id identity) withPeer(b peerBinding) identity {
	k := b.key()
	for _, p := range id.peers {
		if p.key() == k {
			return id
		}
	}
	peers := make([]peerBinding, len(id.peers), len(id.peers)+1)
	copy(peers, id.peers)
	return identity{nv: id.nv, peers: append(peers, b)}
}

// hash covers the NV and the sorted binding hashes.
func (id identity) hash() uint64 {
	hs := make([]uint64, len(id.peers))
	for i, p := range id.peers {
		hs[i] = p.hash()
	}
	slices.Sort(hs)

	d := xxhash.New()
	writeNV(d, id.nv)
	var buf [8]byte
	for _, h := range hs {
		binary.LittleEndian.PutUint64(buf[:], h)
		d.Write(buf[:])
	}
	return d.Sum64()
}

// equal reports whether id and other have the same NV and the same set of
// bindings, in any order.
func (id identity) equal(other identity) bool {
	if id.nv != other.nv || len(id.peers) != len(other.peers) {
		return false
	}
	for _, p := range id.peers {
		k := p.key()
		if !slices.ContainsFunc(other.peers, func(o peerBinding) bool { return o.key() == k }) {
			return false
		}
	}
	return true
}

type identityEntry struct {
	id   identity
	hash uint64
}

// identityRegistry maps nodes to their identity and identity hashes back
// to nodes. Each node has exactly one identity. Nodes sharing a hash are
// told apart by comparing identities.
type identityRegistry struct {
	hash   func(identity) uint64
	byNode map[NodeID]identityEntry
	byHash map[uint64][]NodeID
}

func newIdentityRegistry() identityRegistry {
	return identityRegistry{
		hash:   identity.hash,
		byNode: make(map[NodeID]identityEntry),
		byHash: make(map[uint64][]NodeID),
	}
}

func (r *identityRegistry) set(node NodeID, id identity) {
	if old, ok := r.byNode[node]; ok {
		r.unlink(old.hash, node)
	}
	h := r.hash(id)
	r.byNode[node] = identityEntry{id: id, hash: h}
	r.byHash[h] = append(r.byHash[h], node)
}

func (r *identityRegistry) unlink(h uint64, node NodeID) {
	nodes := slices.DeleteFunc(r.byHash[h], func(n NodeID) bool { return n == node })
	if len(nodes) == 0 {
		delete(r.byHash, h)
		return
	}
	r.byHash[h] = nodes
}

func (r *identityRegistry) get(node NodeID) (identity, bool) {
	e, ok := r.byNode[node]
	return e.id, ok
}

func (r *identityRegistry) lookup(id identity) (NodeID, bool) {
	for _, n := range r.byHash[r.hash(id)] {
		if r.byNode[n].id.equal(id) {
			return n, true
		}
	}
	return 0, false
}
