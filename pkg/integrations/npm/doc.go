// Package npm fetches package metadata from an npm-compatible registry.
//
// [Client] implements [registry.Source]. It requests abbreviated
// packuments (the "corgi" install format), which carry everything
// resolution needs: versions, dist-tags, the dependency maps,
// peerDependenciesMeta and dist records.
//
//	src := npm.NewClient(npm.Options{Cache: c})
//	reg, err := registry.NewClient(src, registry.Options{})
//
// Scoped names are requested with the slash escaped, as the public
// registry expects: /@types%2fnode.
//
// [registry.Source]: github.com/matzehuels/peergraph/pkg/registry.Source
package npm
