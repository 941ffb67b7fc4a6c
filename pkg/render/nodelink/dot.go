package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the copy index and integrity to node labels.
	// When false, only the final id is shown.
	Detailed bool
	// Roots draws a node per root requirement pointing at its package.
	Roots bool
}

const requirementPrefix = "req:"

// ToDOT converts a snapshot to Graphviz DOT format.
func ToDOT(snap *resolution.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	roots := make(map[string]bool, len(snap.Roots))
	for _, id := range snap.Roots {
		roots[id] = true
	}

	ids := slices.Sorted(maps.Keys(snap.Packages))
	for _, id := range ids {
		attrs := fmtAttrs(id, snap.Packages[id], opts.Detailed, roots[id])
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	if opts.Roots {
		buf.WriteString("\n")
		for _, req := range slices.Sorted(maps.Keys(snap.Roots)) {
			fmt.Fprintf(&buf, "  %q [label=%q, shape=plaintext, style=\"\"];\n", requirementPrefix+req, req)
			fmt.Fprintf(&buf, "  %q -> %q;\n", requirementPrefix+req, snap.Roots[req])
		}
	}

	buf.WriteString("\n")
	for _, id := range ids {
		pkg := snap.Packages[id]
		peers := peerNVs(id)
		for _, spec := range slices.Sorted(maps.Keys(pkg.Dependencies)) {
			target := pkg.Dependencies[spec]
			var attrs []string
			if nv, err := parseNV(target); err == nil {
				if peers[nv] {
					attrs = append(attrs, "style=dashed")
				}
				if nv.Name != spec {
					attrs = append(attrs, fmt.Sprintf("label=%q", spec))
				}
			}
			if len(attrs) == 0 {
				fmt.Fprintf(&buf, "  %q -> %q;\n", id, target)
			} else {
				fmt.Fprintf(&buf, "  %q -> %q [%s];\n", id, target, strings.Join(attrs, ", "))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(id string, pkg *resolution.Package, detailed bool) string {
	if !detailed {
		return id
	}
	parts := []string{fmt.Sprintf("copy: %d", pkg.CopyIndex)}
	if pkg.Dist.Integrity != "" {
		parts = append(parts, pkg.Dist.Integrity)
	}
	return id + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(id string, pkg *resolution.Package, detailed, root bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(id, pkg, detailed))}
	if root {
		attrs = append(attrs, "peripheries=2")
	}
	if pkg.CopyIndex > 0 {
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	return attrs
}

func peerNVs(id string) map[pkgid.NV]bool {
	parsed, err := pkgid.ParseID(id)
	if err != nil {
		return nil
	}
	peers := make(map[pkgid.NV]bool, len(parsed.Peers))
	for _, p := range parsed.Peers {
		peers[p.NV] = true
	}
	return peers
}

func parseNV(id string) (pkgid.NV, error) {
	parsed, err := pkgid.ParseID(id)
	if err != nil {
		return pkgid.NV{}, err
	}
	return parsed.NV, nil
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
