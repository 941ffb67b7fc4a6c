// Package pkgid defines the identifiers peergraph passes around: concrete
// package versions, root requirements and final package ids.
package pkgid

import (
	"cmp"
	"strings"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/semver"
)

// NV is a package name together with one concrete version.
type NV struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String returns "name@version".
func (nv NV) String() string {
	return nv.Name + "@" + nv.Version
}

// Compare orders by name, then by semantic version.
func (nv NV) Compare(other NV) int {
	if c := cmp.Compare(nv.Name, other.Name); c != 0 {
		return c
	}
	return semver.CompareStrings(nv.Version, other.Version)
}

// ParseNV parses "name@version". Scoped names keep their leading "@".
func ParseNV(s string) (NV, error) {
	name, version, ok := splitNameAt(s)
	if !ok || name == "" || version == "" {
		return NV{}, errors.New(errors.ErrCodeInvalidPackage, "invalid package version %q: expected name@version", s)
	}
	return NV{Name: name, Version: version}, nil
}

// Req is a root requirement: a package name plus a version range or tag.
type Req struct {
	Name  string
	Range string
}

// String returns the canonical requirement text. An empty range is
// written as the bare name.
func (r Req) String() string {
	if r.Range == "" {
		return r.Name
	}
	return r.Name + "@" + r.Range
}

// ParseReq parses requirement text such as "react@^18", "@types/node" or
// "npm:left-pad@1".
func ParseReq(s string) (Req, error) {
	text := strings.TrimPrefix(strings.TrimSpace(s), "npm:")
	name, rng, ok := splitNameAt(text)
	if !ok {
		name, rng = text, ""
	}
	if err := errors.ValidateNpmPackageName(name, true); err != nil {
		return Req{}, errors.Wrap(errors.ErrCodeInvalidRequirement, err, "invalid requirement %q", s)
	}
	return Req{Name: name, Range: strings.TrimSpace(rng)}, nil
}

// splitNameAt splits at the first "@" that is not the scope marker.
func splitNameAt(s string) (name, rest string, ok bool) {
	start := 0
	if strings.HasPrefix(s, "@") {
		start = 1
	}
	i := strings.IndexByte(s[start:], '@')
	if i < 0 {
		return s, "", false
	}
	i += start
	return s[:i], s[i+1:], true
}
