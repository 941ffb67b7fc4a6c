// Package pipeline runs the resolve → render pipeline shared by the CLI
// and the HTTP API.
//
// # Architecture
//
// The pipeline has two stages:
//
//  1. Resolve: turn root requirements (optionally on top of an existing
//     snapshot) into a [resolution.Snapshot]
//  2. Render: draw a snapshot as DOT or SVG
//
// Resolution results are cached by requirement set, registry and seed
// snapshot, so repeated requests for the same inputs skip the registry.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, reg, cfg.RegistryURL, logger)
//	result, err := runner.Resolve(ctx, pipeline.Options{
//	    Requirements: []string{"react@^18", "react-dom@^18"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dot, err := runner.Render(ctx, result.Snapshot, pipeline.Options{Formats: []string{"dot"}})
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// DefaultMaxNodes bounds the graph a single pipeline run may build.
const DefaultMaxNodes = resolution.DefaultMaxNodes

// Format constants for rendered outputs.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// Options configures a pipeline run. It doubles as the API request body.
type Options struct {
	// Resolve options
	Requirements []string             `json:"requirements"`
	Base         *resolution.Snapshot `json:"snapshot,omitempty"`
	MaxNodes     int                  `json:"max_nodes,omitempty"`
	Refresh      bool                 `json:"refresh,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	Logger *log.Logger `json:"-"`

	reqs []pkgid.Req
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the resolved lockfile.
	Snapshot *resolution.Snapshot

	// Hash is the content hash of the snapshot's JSON form.
	Hash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Packages    int
	Roots       int
	ResolveTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ResolveHit bool
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateForResolve parses the requirements and applies defaults.
func (o *Options) ValidateForResolve() error {
	if len(o.Requirements) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one requirement is required")
	}
	o.reqs = make([]pkgid.Req, 0, len(o.Requirements))
	for _, s := range o.Requirements {
		req, err := pkgid.ParseReq(s)
		if err != nil {
			return err
		}
		o.reqs = append(o.reqs, req)
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDOT}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return ValidateFormats(o.Formats)
}

// ParsedRequirements returns the requirements parsed by ValidateForResolve.
func (o *Options) ParsedRequirements() []pkgid.Req { return o.reqs }

func (s Stats) String() string {
	return fmt.Sprintf("%d packages, %d roots in %s", s.Packages, s.Roots, s.ResolveTime.Round(time.Millisecond))
}
