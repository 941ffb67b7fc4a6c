package resolution

import (
	"context"

	"github.com/matzehuels/peergraph/pkg/observability"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/registry"
	"github.com/matzehuels/peergraph/pkg/semver"
)

// resolvePeer finds the package satisfying peer entry e for the package at
// path and binds it. The search order is the package itself and its
// children, then each ancestor nearest first, then the root requirements.
// A required peer nobody provides is resolved fresh from the registry and
// attached below path. ok is false only for an optional peer nobody
// provides.
func (r *Resolver) resolvePeer(ctx context.Context, e registry.DepEntry, path *GraphPath) (target NodeID, ok bool, err error) {
	g := r.graph

	target, b, found, err := r.findPeerInNode(ctx, e, path)
	if err != nil {
		return 0, false, err
	}
	if found {
		if target == path.node {
			r.peerResolved(ctx, path, e, target, "self")
			return target, true, nil
		}
		target = r.setNewPeerDep([]*GraphPath{path}, b, e.Specifier, target)
		r.peerResolved(ctx, path, e, target, "self")
		return target, true, nil
	}

	chain := []*GraphPath{path}
	for anc := range path.ancestors() {
		if anc.path != nil {
			chain = append(chain, anc.path)
			target, b, found, err := r.findPeerInNode(ctx, e, anc.path)
			if err != nil {
				return 0, false, err
			}
			if found {
				target = r.setNewPeerDep(chain, b, e.Specifier, target)
				r.peerResolved(ctx, path, e, target, "ancestor")
				return target, true, nil
			}
			continue
		}

		for _, nv := range g.sortedRoots() {
			if nv.Name != e.Name {
				continue
			}
			match, err := r.matches(ctx, e, nv)
			if err != nil {
				return 0, false, err
			}
			if match {
				target := r.setNewPeerDep(chain, rootBinding(anc.rootNV, nv), e.Specifier, g.roots[nv])
				r.peerResolved(ctx, path, e, target, "root")
				return target, true, nil
			}
		}
	}

	if e.Kind == registry.KindOptionalPeer {
		return 0, false, nil
	}

	nv, err := r.bestVersion(ctx, e.Name, e.FreshRange())
	if err != nil {
		return 0, false, wrapf(err, "%s: peer dependency %s@%s", path.nv, e.Specifier, e.Range)
	}
	_, fresh := g.getOrCreateForIdentity(identity{nv: nv})
	if fresh == path.node {
		r.peerResolved(ctx, path, e, fresh, "self")
		return fresh, true, nil
	}
	target = r.setNewPeerDep([]*GraphPath{path}, pathBinding(path, e.Specifier, nv), e.Specifier, fresh)
	r.peerResolved(ctx, path, e, target, "registry")
	return target, true, nil
}

// findPeerInNode checks whether the package at p, or one of its children,
// satisfies e. The returned binding is scoped to where the match lives.
func (r *Resolver) findPeerInNode(ctx context.Context, e registry.DepEntry, p *GraphPath) (NodeID, peerBinding, bool, error) {
	g := r.graph
	n := p.node

	if p.nv.Name == e.Name {
		match, err := r.matches(ctx, e, p.nv)
		if err != nil {
			return 0, peerBinding{}, false, err
		}
		if match {
			if p.previous == nil {
				return n, rootBinding(p.nv, p.nv), true, nil
			}
			return n, pathBinding(p.previous, p.specifier, p.nv), true, nil
		}
	}

	// The child under the peer's own specifier wins over other aliases.
	specs := g.sortedChildren(n)
	if _, ok := g.nodes[n].children[e.Specifier]; ok {
		specs = append([]string{e.Specifier}, specs...)
	}
	for _, spec := range specs {
		child := g.nodes[n].children[spec]
		nv := g.nv(child)
		if nv.Name != e.Name {
			continue
		}
		match, err := r.matches(ctx, e, nv)
		if err != nil {
			return 0, peerBinding{}, false, err
		}
		if match {
			return child, pathBinding(p, spec, nv), true, nil
		}
	}
	return 0, peerBinding{}, false, nil
}

// matches reports whether nv satisfies the range of e. Package metadata is
// only needed for dist-tag ranges.
func (r *Resolver) matches(ctx context.Context, e registry.DepEntry, nv pkgid.NV) (bool, error) {
	if !semver.IsTag(e.Range) {
		return semver.Satisfies(nv.Version, e.Range), nil
	}
	info, err := r.registry.PackageInfo(ctx, e.Name)
	if err != nil {
		return false, wrapf(err, "fetch %s", e.Name)
	}
	return registry.Matches(info, nv.Version, e.Range), nil
}

// setNewPeerDep gives every position in chain, bottom first, an identity
// that includes binding b, then links target below the bottom position
// under specifier. Positions are repointed and their parents' edges
// updated so the new nodes replace the old ones in the graph. It returns
// the node target ended up as, which differs from the argument when
// target itself was on the chain.
func (r *Resolver) setNewPeerDep(chain []*GraphPath, b peerBinding, specifier string, target NodeID) NodeID {
	g := r.graph
	for _, p := range chain {
		old := p.node
		created, next := g.getOrCreateForIdentity(g.identity(old).withPeer(b))
		if old == target {
			target = next
		}
		if created {
			for spec, child := range g.nodes[old].children {
				g.setChild(spec, child, next)
			}
		}
		p.changeID(next)
		if p.previous == nil {
			g.roots[p.nv] = next
		} else {
			g.setChild(p.specifier, next, p.previous.node)
		}
	}

	bottom := chain[0]
	if target != bottom.node {
		g.setChild(specifier, target, bottom.node)
		r.tryAddPending(bottom, target, specifier)
	}
	return target
}

func (r *Resolver) peerResolved(ctx context.Context, path *GraphPath, e registry.DepEntry, target NodeID, source string) {
	r.opts.Logger.Debug("peer resolved",
		"path", path, "peer", e.Specifier, "target", r.graph.nv(target), "via", source)
	observability.Resolve().OnPeerResolved(ctx, source)
}
