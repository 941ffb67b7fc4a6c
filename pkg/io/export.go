package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// Formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatForPath returns the format implied by path's extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// WriteJSON encodes snap as indented JSON.
func WriteJSON(snap *resolution.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteYAML encodes snap as YAML.
func WriteYAML(snap *resolution.Snapshot, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// Write encodes snap in format.
func Write(snap *resolution.Snapshot, w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(snap, w)
	case FormatYAML:
		return WriteYAML(snap, w)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown lockfile format %q", format)
	}
}

// ExportJSON writes snap to path as JSON.
func ExportJSON(snap *resolution.Snapshot, path string) error {
	return export(snap, path, FormatJSON)
}

// ExportFile writes snap to path in the format its extension implies.
func ExportFile(snap *resolution.Snapshot, path string) error {
	return export(snap, path, FormatForPath(path))
}

func export(snap *resolution.Snapshot, path, format string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(snap, tmp, format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
