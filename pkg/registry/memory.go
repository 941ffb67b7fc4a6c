package registry

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/semver"
)

// Memory is an in-process [Source]. It backs tests and offline resolution
// from a registry dump.
type Memory struct {
	mu       sync.RWMutex
	packages map[string]*PackageInfo
	fetches  map[string]int
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		packages: make(map[string]*PackageInfo),
		fetches:  make(map[string]int),
	}
}

// Publish adds a version and returns its manifest for further editing.
// The "latest" tag follows the highest non-prerelease version unless it
// was set explicitly with [Memory.Tag].
func (m *Memory) Publish(name, version string) *VersionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.packages[name]
	if !ok {
		info = &PackageInfo{
			Name:     name,
			DistTags: map[string]string{},
			Versions: map[string]*VersionInfo{},
		}
		m.packages[name] = info
	}
	vi := &VersionInfo{
		Version: version,
		Dist: Dist{
			Tarball: fmt.Sprintf("https://registry.invalid/%s/-/%s-%s.tgz", name, path.Base(name), version),
		},
	}
	info.Versions[version] = vi

	v, err := semver.ParseVersion(version)
	if err == nil && !v.Prerelease() {
		if cur, ok := info.DistTags["latest"]; !ok || semver.CompareStrings(version, cur) > 0 {
			info.DistTags["latest"] = version
		}
	}
	return vi
}

// Tag points a dist-tag at a published version.
func (m *Memory) Tag(name, tag, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.packages[name]; ok {
		info.DistTags[tag] = version
	}
}

// Add stores a complete package document, replacing any existing one.
func (m *Memory) Add(info *PackageInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[info.Name] = info
}

// FetchPackageInfo implements [Source].
func (m *Memory) FetchPackageInfo(_ context.Context, name string) (*PackageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[name]++
	info, ok := m.packages[name]
	if !ok {
		return nil, errors.New(errors.ErrCodePackageNotFound, "package %s not found", name)
	}
	return info, nil
}

// Fetches returns how many times name was fetched.
func (m *Memory) Fetches(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches[name]
}

// Dep adds a regular dependency.
func (v *VersionInfo) Dep(name, rng string) *VersionInfo {
	if v.Dependencies == nil {
		v.Dependencies = map[string]string{}
	}
	v.Dependencies[name] = rng
	return v
}

// Peer adds a peer dependency.
func (v *VersionInfo) Peer(name, rng string) *VersionInfo {
	if v.PeerDependencies == nil {
		v.PeerDependencies = map[string]string{}
	}
	v.PeerDependencies[name] = rng
	return v
}

// OptionalPeer adds a peer dependency marked optional in
// peerDependenciesMeta.
func (v *VersionInfo) OptionalPeer(name, rng string) *VersionInfo {
	v.Peer(name, rng)
	if v.PeerDependenciesMeta == nil {
		v.PeerDependenciesMeta = map[string]PeerMeta{}
	}
	v.PeerDependenciesMeta[name] = PeerMeta{Optional: true}
	return v
}

var _ Source = (*Memory)(nil)
