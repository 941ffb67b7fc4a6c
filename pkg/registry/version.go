package registry

import (
	"slices"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/semver"
)

// BestVersion selects the version of info that a range resolves to.
//
// A dist-tag range resolves through the tag table. Otherwise the highest
// of the existing versions (versions already present in the caller's
// graph) that satisfies the range wins, then the "latest" tag if it
// satisfies, then the highest satisfying published version.
func BestVersion(info *PackageInfo, rng string, existing []string) (*VersionInfo, error) {
	if semver.IsTag(rng) {
		v, ok := info.DistTags[rng]
		if !ok {
			return nil, errors.New(errors.ErrCodeVersionNotFound,
				"%s: no dist-tag %q", info.Name, rng)
		}
		vi, ok := info.Version(v)
		if !ok {
			return nil, errors.New(errors.ErrCodeVersionNotFound,
				"%s: dist-tag %q points at unpublished version %s", info.Name, rng, v)
		}
		return vi, nil
	}

	r, err := semver.ParseRange(rng)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequirement, err, "%s@%s", info.Name, rng)
	}

	var published []string
	for _, v := range existing {
		if _, ok := info.Versions[v]; ok {
			published = append(published, v)
		}
	}
	if best, ok := semver.MaxSatisfying(r, semver.ParseAll(published)); ok {
		return info.Versions[best.String()], nil
	}

	if latest, ok := info.DistTags["latest"]; ok {
		if vi, ok := info.Version(latest); ok && semver.Satisfies(latest, rng) {
			return vi, nil
		}
	}

	versions := make([]string, 0, len(info.Versions))
	for v := range info.Versions {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	if best, ok := semver.MaxSatisfying(r, semver.ParseAll(versions)); ok {
		return info.Versions[best.String()], nil
	}
	return nil, errors.New(errors.ErrCodeVersionNotFound,
		"%s: no version matches %q", info.Name, rng)
}

// Matches reports whether version of the package described by info is
// what rng asks for. Tags compare against the tag table.
func Matches(info *PackageInfo, version, rng string) bool {
	if semver.IsTag(rng) {
		return info != nil && info.DistTags[rng] == version
	}
	return semver.Satisfies(version, rng)
}
