// Package registry is the boundary between the resolver and wherever
// package metadata comes from.
//
// It defines the metadata model (a package's versions, dist-tags and
// per-version manifests), the dependency entries extracted from a
// manifest, best-version selection, and [Client], the caching front that
// the resolver talks to. Backends implement [Source]: the npm HTTP client
// in pkg/integrations/npm for real registries, and [Memory] for tests and
// offline use.
package registry

import (
	"context"
)

// Dist is the distribution record of a published version. It is attached
// to final packages verbatim.
type Dist struct {
	Tarball   string `json:"tarball" yaml:"tarball"`
	Integrity string `json:"integrity,omitempty" yaml:"integrity,omitempty"`
	Shasum    string `json:"shasum,omitempty" yaml:"shasum,omitempty"`
}

// PeerMeta carries per-peer options from peerDependenciesMeta.
type PeerMeta struct {
	Optional bool `json:"optional"`
}

// VersionInfo is the manifest of one published version.
type VersionInfo struct {
	Version              string              `json:"version"`
	Dependencies         map[string]string   `json:"dependencies,omitempty"`
	OptionalDependencies map[string]string   `json:"optionalDependencies,omitempty"`
	PeerDependencies     map[string]string   `json:"peerDependencies,omitempty"`
	PeerDependenciesMeta map[string]PeerMeta `json:"peerDependenciesMeta,omitempty"`
	Deprecated           string              `json:"deprecated,omitempty"`
	Dist                 Dist                `json:"dist"`
}

// PackageInfo is everything the registry knows about one package name.
type PackageInfo struct {
	Name     string                  `json:"name"`
	DistTags map[string]string       `json:"dist-tags"`
	Versions map[string]*VersionInfo `json:"versions"`
}

// Source fetches package metadata from a backend.
type Source interface {
	FetchPackageInfo(ctx context.Context, name string) (*PackageInfo, error)
}

// Registry is what the resolver consumes.
type Registry interface {
	// PackageInfo returns the metadata for name. Implementations must
	// return a PACKAGE_NOT_FOUND error for unknown names.
	PackageInfo(ctx context.Context, name string) (*PackageInfo, error)

	// Prefetch warms the metadata cache for names. It is best effort: the
	// resolver logs and ignores its error.
	Prefetch(ctx context.Context, names []string) error
}

// Version looks up the manifest of a published version.
func (p *PackageInfo) Version(v string) (*VersionInfo, bool) {
	if p == nil {
		return nil, false
	}
	info, ok := p.Versions[v]
	return info, ok
}
