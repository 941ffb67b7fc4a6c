package registry

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/semver"
)

// EntryKind distinguishes regular dependencies from peers.
type EntryKind int

const (
	KindDep EntryKind = iota
	KindPeer
	KindOptionalPeer
)

func (k EntryKind) String() string {
	switch k {
	case KindPeer:
		return "peer"
	case KindOptionalPeer:
		return "optional-peer"
	}
	return "dep"
}

// IsPeer reports whether k is a peer or optional peer.
func (k EntryKind) IsPeer() bool { return k != KindDep }

// DepEntry is one declared dependency of a manifest.
type DepEntry struct {
	Kind EntryKind
	// Specifier is the key the dependency was declared under. It differs
	// from Name for "npm:" aliases.
	Specifier string
	Name      string
	Range     string
	// PeerRange is set when a peer is also listed as a regular
	// dependency. It is the range used when the peer has to be resolved
	// fresh from the registry.
	PeerRange string
}

// FreshRange is the range used to resolve the entry from the registry.
func (e DepEntry) FreshRange() string {
	if e.PeerRange != "" {
		return e.PeerRange
	}
	return e.Range
}

// Entries extracts the sorted dependency entries of a manifest: peers and
// optional peers from peerDependencies, then dependencies and
// optionalDependencies. Entries are ordered by name ascending, then by
// range text descending.
func Entries(nv pkgid.NV, v *VersionInfo) ([]DepEntry, error) {
	entries := make([]DepEntry, 0, len(v.PeerDependencies)+len(v.Dependencies)+len(v.OptionalDependencies))
	peerIdx := make(map[string]int, len(v.PeerDependencies))

	for _, spec := range sortedKeys(v.PeerDependencies) {
		e, err := parseEntry(nv, spec, v.PeerDependencies[spec])
		if err != nil {
			return nil, err
		}
		e.Kind = KindPeer
		if v.PeerDependenciesMeta[spec].Optional {
			e.Kind = KindOptionalPeer
		}
		peerIdx[spec] = len(entries)
		entries = append(entries, e)
	}

	deps := make(map[string]string, len(v.Dependencies)+len(v.OptionalDependencies))
	for k, r := range v.Dependencies {
		deps[k] = r
	}
	for k, r := range v.OptionalDependencies {
		deps[k] = r
	}
	for _, spec := range sortedKeys(deps) {
		e, err := parseEntry(nv, spec, deps[spec])
		if err != nil {
			return nil, err
		}
		if i, ok := peerIdx[spec]; ok {
			entries[i].PeerRange = e.Range
			continue
		}
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b DepEntry) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Range, a.Range); c != 0 {
			return c
		}
		return cmp.Compare(a.Specifier, b.Specifier)
	})
	return entries, nil
}

var unsupportedPrefixes = []string{
	"file:", "link:", "workspace:", "portal:", "patch:",
	"git:", "git+", "github:", "gitlab:", "bitbucket:",
	"http:", "https:",
}

func parseEntry(nv pkgid.NV, spec, raw string) (DepEntry, error) {
	e := DepEntry{Kind: KindDep, Specifier: spec, Name: spec, Range: strings.TrimSpace(raw)}

	if rest, ok := strings.CutPrefix(e.Range, "npm:"); ok {
		name, rng := splitAlias(rest)
		if name == "" {
			return DepEntry{}, errors.New(errors.ErrCodeInvalidManifest,
				"%s: invalid alias %q for %q", nv, raw, spec)
		}
		e.Name, e.Range = name, rng
	}

	for _, p := range unsupportedPrefixes {
		if strings.HasPrefix(e.Range, p) {
			return DepEntry{}, errors.New(errors.ErrCodeInvalidManifest,
				"%s: unsupported dependency %q: %q", nv, spec, raw)
		}
	}
	if strings.Contains(e.Range, "/") {
		// "user/repo" GitHub shorthand
		return DepEntry{}, errors.New(errors.ErrCodeInvalidManifest,
			"%s: unsupported dependency %q: %q", nv, spec, raw)
	}
	if err := errors.ValidateNpmPackageName(e.Name, true); err != nil {
		return DepEntry{}, errors.Wrap(errors.ErrCodeInvalidManifest, err,
			"%s: invalid dependency name %q", nv, e.Name)
	}
	if !semver.IsTag(e.Range) {
		if _, err := semver.ParseRange(e.Range); err != nil {
			return DepEntry{}, errors.Wrap(errors.ErrCodeInvalidManifest, err,
				"%s: invalid range for %q", nv, spec)
		}
	}
	return e, nil
}

// splitAlias splits "name@range" on the last "@". A bare scoped name has
// no version and matches anything.
func splitAlias(s string) (name, rng string) {
	i := strings.LastIndexByte(s, '@')
	if i <= 0 {
		return s, "*"
	}
	return s[:i], s[i+1:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
