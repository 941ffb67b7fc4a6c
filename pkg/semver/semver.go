// Package semver implements npm-flavoured version and range handling.
//
// It is a thin wrapper around github.com/Masterminds/semver/v3 that adds the
// npm conventions the registry relies on: an empty range means "any
// version", and a range that is a bare identifier (e.g. "latest", "next")
// names a dist-tag instead of a constraint.
package semver

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
type Version struct {
	v *mm.Version
}

// Range is a semantic version constraint.
//
// Examples:
//   - ">=1.2.0 <2.0.0"
//   - "^1.0.0 || ^2.0.0"
//   - "~1.4"
type Range struct {
	raw string
	c   *mm.Constraints
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was originally written.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Prerelease reports whether v carries a prerelease tag.
func (v Version) Prerelease() bool {
	return v.v != nil && v.v.Prerelease() != ""
}

// ParseRange parses an npm version range. Empty ranges and "x" match
// everything.
func ParseRange(raw string) (Range, error) {
	norm := normalizeRange(raw)
	c, err := mm.NewConstraint(norm)
	if err != nil {
		return Range{}, fmt.Errorf("semver: parse range %q: %w", raw, err)
	}
	return Range{raw: raw, c: c}, nil
}

func MustParseRange(raw string) Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the range as it was originally written.
func (r Range) String() string { return r.raw }

// Satisfies reports whether v is inside r.
func (r Range) Satisfies(v Version) bool {
	if v.v == nil || r.c == nil {
		return false
	}
	return r.c.Check(v.v)
}

func normalizeRange(raw string) string {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "x", "X":
		return "*"
	}
	return s
}

var tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)

// IsTag reports whether raw names a dist-tag rather than a range.
func IsTag(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "x" || s == "X" {
		return false
	}
	if !tagPattern.MatchString(s) {
		return false
	}
	// "v1" is a range, not a tag.
	_, err := mm.NewConstraint(s)
	return err != nil
}

// Satisfies reports whether the version string satisfies the range string.
// Unparsable input never matches.
func Satisfies(version, rng string) bool {
	v, err := ParseVersion(version)
	if err != nil {
		return false
	}
	r, err := ParseRange(rng)
	if err != nil {
		return false
	}
	return r.Satisfies(v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// CompareStrings compares two version strings. Unparsable versions sort
// before parsable ones and fall back to lexical order among themselves.
func CompareStrings(a, b string) int {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return Compare(va, vb)
}

// MaxSatisfying returns the highest version in candidates that satisfies r.
//
// If multiple versions are equal, the first encountered wins.
func MaxSatisfying(r Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !r.Satisfies(candidate) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}

// ParseAll parses every string in raw, skipping the ones that are not
// valid versions.
func ParseAll(raw []string) []Version {
	out := make([]Version, 0, len(raw))
	for _, s := range raw {
		if v, err := ParseVersion(s); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Sort orders versions ascending.
func Sort(vs []Version) {
	slices.SortStableFunc(vs, Compare)
}
