// Package manifest reads root requirements from a project's package.json.
//
// Dependencies, devDependencies and optionalDependencies all become root
// requirements. Peer dependencies of the project itself are not installed
// and are ignored, as are local and VCS specifiers that cannot be resolved
// against a registry.
package manifest

import (
	"encoding/json"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/pkgid"
)

// FileName is the manifest file name looked up in a project directory.
const FileName = "package.json"

type packageFile struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// ReadPackageJSON reads the package.json at path and returns its root
// requirements sorted by name.
func ReadPackageJSON(path string) ([]pkgid.Req, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	reqs, err := ParsePackageJSON(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return reqs, nil
}

// ParsePackageJSON decodes a package.json document from r.
//
// A name listed in more than one section keeps the first range found in
// the order dependencies, devDependencies, optionalDependencies. Aliases
// ("alias": "npm:real@range") resolve to the real package.
func ParsePackageJSON(r io.Reader) ([]pkgid.Req, error) {
	var pkg packageFile
	if err := json.NewDecoder(r).Decode(&pkg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode package.json")
	}

	seen := make(map[string]bool)
	var reqs []pkgid.Req
	for _, section := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.OptionalDependencies} {
		for spec, raw := range section {
			if seen[spec] {
				continue
			}
			seen[spec] = true
			req, err := parseDependency(spec, raw)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, req)
		}
	}

	slices.SortFunc(reqs, func(a, b pkgid.Req) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Range, b.Range)
	})
	return slices.CompactFunc(reqs, func(a, b pkgid.Req) bool { return a == b }), nil
}

var localPrefixes = []string{
	"file:", "link:", "workspace:", "portal:", "patch:",
	"git:", "git+", "github:", "gitlab:", "bitbucket:",
	"http:", "https:",
}

func parseDependency(spec, raw string) (pkgid.Req, error) {
	rng := strings.TrimSpace(raw)
	name := spec

	if rest, ok := strings.CutPrefix(rng, "npm:"); ok {
		alias, err := pkgid.ParseReq(rest)
		if err != nil {
			return pkgid.Req{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid alias %q for %q", raw, spec)
		}
		name, rng = alias.Name, alias.Range
	}

	for _, p := range localPrefixes {
		if strings.HasPrefix(rng, p) {
			return pkgid.Req{}, errors.New(errors.ErrCodeInvalidManifest, "unsupported dependency %q: %q", spec, raw)
		}
	}
	if strings.Contains(rng, "/") {
		return pkgid.Req{}, errors.New(errors.ErrCodeInvalidManifest, "unsupported dependency %q: %q", spec, raw)
	}
	if err := errors.ValidateNpmPackageName(name, true); err != nil {
		return pkgid.Req{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid dependency name %q", name)
	}
	return pkgid.Req{Name: name, Range: rng}, nil
}
