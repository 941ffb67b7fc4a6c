// Package io reads and writes lockfiles: [resolution.Snapshot] values
// serialized as JSON or YAML.
//
// # Format
//
//	{
//	  "roots": {"react-dom@^18": "react-dom@18.2.0_react@18.2.0"},
//	  "packages": {
//	    "react-dom@18.2.0_react@18.2.0": {
//	      "dependencies": {"react": "react@18.2.0", "scheduler": "scheduler@0.23.0"},
//	      "dist": {"tarball": "https://...", "integrity": "sha512-..."},
//	      "copy_index": 0
//	    }
//	  },
//	  "packages_by_name": {"react-dom": ["react-dom@18.2.0_react@18.2.0"]}
//	}
//
// Map keys are written sorted, so a lockfile only changes when the
// resolution does. Readers check that every id parses; whether the ids
// reference each other consistently is checked by
// [resolution.FromSnapshot].
//
// [ImportFile] and [ExportFile] pick the format from the file extension:
// .yaml and .yml are YAML, everything else JSON. Files are written to a
// temporary file first and renamed into place.
//
// [resolution.Snapshot]: github.com/matzehuels/peergraph/pkg/resolution.Snapshot
// [resolution.FromSnapshot]: github.com/matzehuels/peergraph/pkg/resolution.FromSnapshot
package io
