// Package pkg provides the core libraries for peergraph, an npm dependency
// resolver with peer dependency support.
//
// # Overview
//
// Peergraph turns a set of root requirements into a lockfile in which every
// package is identified by its name, version and the peers it was bound to.
// The pkg directory is organized into four areas:
//
//  1. [resolution] - The resolution graph, resolver and snapshot assembler
//  2. [registry] and [integrations] - Package metadata from npm registries
//  3. [cache], [config], [observability] - Infrastructure
//  4. [pipeline] - Orchestration (resolve → render) shared by CLI and API
//
// # Architecture
//
// The typical data flow through peergraph:
//
//	package.json ([manifest])
//	         ↓
//	    [resolution] graph (dependencies + peer bindings)
//	         ↓
//	    [resolution] Snapshot (final package ids, copy indexes)
//	         ↓
//	    [io] lockfile (JSON/YAML) or [render/nodelink] (DOT/SVG)
//
// # Quick Start
//
//	reg, _ := registry.NewClient(npm.NewClient(npm.Options{}), registry.Options{})
//	g := resolution.NewGraph()
//	r := resolution.NewResolver(g, reg, resolution.Options{})
//	if err := r.Resolve(ctx, reqs); err != nil {
//	    return err
//	}
//	snap, _ := g.IntoSnapshot(ctx, reg)
//	_ = io.ExportFile(snap, "peergraph-lock.json")
//
// # Main Packages
//
// [resolution] - Builds the graph breadth first from the roots. Regular
// dependencies are deduplicated by version; peer dependencies are bound to
// what the package itself, its ancestors or the roots provide, falling back
// to a fresh registry lookup. A package bound to different peers becomes
// distinct nodes, numbered by copy index.
//
// [pkgid] - Package versions, requirements and the text form of final ids
// ("a@1.0.0_react@18.2.0").
//
// [registry] - The metadata boundary: package documents, dependency
// entries, best-version selection and a memoizing client.
//
// [integrations/npm] - registry.npmjs.org (or any compatible registry)
// over HTTP, with persistent response caching.
//
// [semver] - npm range semantics over Masterminds/semver.
//
// [cache] - Byte caches (file, Redis, null) and key layout.
//
// [io] - Lockfile import and export.
//
// [errors] - Coded errors shared by every layer.
//
// [resolution]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/resolution
// [registry]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/registry
// [integrations]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/integrations
// [integrations/npm]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/integrations/npm
// [cache]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/pipeline
// [manifest]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/manifest
// [io]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/render/nodelink
// [pkgid]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/pkgid
// [semver]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/semver
// [errors]: https://pkg.go.dev/github.com/matzehuels/peergraph/pkg/errors
package pkg
