package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/peergraph/pkg/render/nodelink"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// Render draws snap in every format of opts.Formats.
func (r *Runner) Render(ctx context.Context, snap *resolution.Snapshot, opts Options) (map[string][]byte, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	return Render(ctx, snap, opts)
}

// Render generates output artifacts in the requested formats without
// a runner.
func Render(ctx context.Context, snap *resolution.Snapshot, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	dot := nodelink.ToDOT(snap, nodelink.Options{Detailed: opts.Detailed, Roots: true})
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatDOT:
			artifacts[format] = []byte(dot)
		case FormatSVG:
			svg, err := nodelink.RenderSVG(ctx, dot)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", format, err)
			}
			artifacts[format] = svg
		}
	}
	opts.Logger.Debug("rendered", "formats", opts.Formats, "packages", snap.Len())
	return artifacts, nil
}
