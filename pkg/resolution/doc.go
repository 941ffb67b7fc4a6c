// Package resolution builds npm-style dependency graphs with peer
// dependency semantics and flattens them into snapshots.
//
// # Overview
//
// A [Resolver] walks package manifests breadth-first from a set of root
// requirements. Regular dependencies are resolved to the best matching
// version. Peer dependencies are satisfied by the nearest ancestor (or a
// sibling of an ancestor) that already provides a matching version, and
// only fall back to a fresh registry lookup when nothing in the ancestor
// chain matches. Optional peers that cannot be satisfied are deferred and
// caught up later if another occurrence of the same package resolves them.
//
// Binding a peer changes the identity of every node between the package
// that asked and the ancestor that provided it. The same name@version may
// therefore exist as several nodes, one per distinct set of peer
// bindings. Nodes are deduplicated by a content hash of their identity.
//
// # Snapshots
//
// [Graph.IntoSnapshot] flattens the graph into a [Snapshot]: root
// requirements mapped to final package ids, and a package table keyed by
// final package id. [FromSnapshot] rebuilds a graph from a snapshot so
// that a later run can add requirements on top of an existing lockfile
// while keeping every copy index stable.
//
// # Usage
//
//	g := resolution.NewGraph()
//	r := resolution.NewResolver(g, reg, resolution.Options{Logger: logger})
//	if err := r.Resolve(ctx, reqs); err != nil {
//	    return err
//	}
//	snap, err := g.IntoSnapshot(ctx, reg)
//
// The resolver is single-threaded. Only registry lookups block, and the
// graph is never touched while a lookup is in flight.
package resolution
