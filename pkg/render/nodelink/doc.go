// Package nodelink renders resolved snapshots as node-link diagrams.
//
// # Overview
//
// Every package of a [resolution.Snapshot] becomes a box labelled with its
// final id, and every dependency becomes an arrow. Peer dependencies are
// drawn dashed, and root packages get a double border so the entry points
// of the lockfile stand out.
//
// # Usage
//
// Convert a snapshot to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(snap, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: labels also show the copy index and tarball integrity.
//   - Roots: when false, the root requirement nodes are omitted.
//
// # DOT Format
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded box
// nodes. Nodes and edges are emitted in sorted order, so the same snapshot
// always produces the same DOT text.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
//
// [resolution.Snapshot]: github.com/matzehuels/peergraph/pkg/resolution.Snapshot
package nodelink
