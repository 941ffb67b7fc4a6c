package io

import (
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// ReadJSON decodes a JSON lockfile. It does not close r.
func ReadJSON(r io.Reader) (*resolution.Snapshot, error) {
	var snap resolution.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode lockfile")
	}
	return Validate(&snap)
}

// ReadYAML decodes a YAML lockfile. It does not close r.
func ReadYAML(r io.Reader) (*resolution.Snapshot, error) {
	var snap resolution.Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode lockfile")
	}
	return Validate(&snap)
}

// Read decodes a lockfile in format.
func Read(r io.Reader, format string) (*resolution.Snapshot, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatYAML:
		return ReadYAML(r)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown lockfile format %q", format)
	}
}

// ImportJSON reads a JSON lockfile from path.
func ImportJSON(path string) (*resolution.Snapshot, error) {
	return importFile(path, FormatJSON)
}

// ImportFile reads a lockfile in the format its extension implies.
func ImportFile(path string) (*resolution.Snapshot, error) {
	return importFile(path, FormatForPath(path))
}

func importFile(path, format string) (*resolution.Snapshot, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "lockfile %s not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	snap, err := Read(f, format)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return snap, nil
}

// Validate fills absent tables and verifies every id parses. It is applied
// by every reader and must be applied to snapshots decoded elsewhere.
func Validate(snap *resolution.Snapshot) (*resolution.Snapshot, error) {
	if snap.Roots == nil {
		snap.Roots = map[string]string{}
	}
	if snap.Packages == nil {
		snap.Packages = map[string]*resolution.Package{}
	}
	if snap.PackagesByName == nil {
		snap.PackagesByName = map[string][]string{}
	}

	parse := func(where, id string) error {
		if _, err := pkgid.ParseID(id); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s: bad package id %q", where, id)
		}
		return nil
	}
	for req, id := range snap.Roots {
		if _, err := pkgid.ParseReq(req); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "roots: bad requirement %q", req)
		}
		if err := parse("roots", id); err != nil {
			return nil, err
		}
	}
	for key, pkg := range snap.Packages {
		if err := parse("packages", key); err != nil {
			return nil, err
		}
		if pkg == nil {
			pkg = &resolution.Package{}
			snap.Packages[key] = pkg
		}
		if pkg.Dependencies == nil {
			pkg.Dependencies = map[string]string{}
		}
		for spec, dep := range pkg.Dependencies {
			if err := parse(key+" -> "+spec, dep); err != nil {
				return nil, err
			}
		}
	}
	return snap, nil
}
