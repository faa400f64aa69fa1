package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/render"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds badges to node labels and emits one node per model,
	// filter and query row. Otherwise only clusters and subclusters appear.
	Detailed bool
}

// ToDOT converts the boxes of g into Graphviz DOT. Node ids are
// "<kind>:<id>" so clusters and subclusters sharing an id stay distinct.
func ToDOT(g *layout.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")
	if g == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	var edges []string
	for _, b := range g.Boxes {
		switch b.Kind {
		case layout.KindCluster:
			fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(b.Kind, b.ID), clusterAttrs(b, opts.Detailed))
		case layout.KindSubcluster:
			fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(b.Kind, b.ID), subclusterAttrs(b, opts.Detailed))
			edges = append(edges, edge(nodeID(layout.KindCluster, b.ClusterID), nodeID(b.Kind, b.ID), b.Color, false))
		case layout.KindModels, layout.KindFilters, layout.KindResults:
			if !opts.Detailed || len(b.Rows) == 0 {
				continue
			}
			parent := nodeID(layout.KindSubcluster, b.SubclusterID)
			for i, row := range b.Rows {
				id := fmt.Sprintf("%s:%d", nodeID(b.Kind, b.ID), i)
				fmt.Fprintf(&buf, "  %q [%s];\n", id, rowAttrs(row))
				edges = append(edges, edge(parent, id, b.Color, true))
			}
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(k layout.Kind, id string) string {
	return strings.ToLower(k.String()) + ":" + id
}

func edge(from, to, color string, dashed bool) string {
	style := ""
	if dashed {
		style = ", style=dashed"
	}
	return fmt.Sprintf("  %q -> %q [color=%q%s];\n", from, to, color, style)
}

func clusterAttrs(b layout.Box, detailed bool) string {
	return strings.Join([]string{
		fmt.Sprintf("label=%q", label(b, detailed)),
		fmt.Sprintf("fillcolor=%q", b.Color),
		"fontcolor=white",
		"fontsize=16",
	}, ", ")
}

func subclusterAttrs(b layout.Box, detailed bool) string {
	attrs := []string{
		fmt.Sprintf("label=%q", label(b, detailed)),
		fmt.Sprintf("color=%q", b.Color),
	}
	if !b.Expanded {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return strings.Join(attrs, ", ")
}

func rowAttrs(r layout.Row) string {
	text := r.Label
	if r.Badge != "" {
		text += " (" + r.Badge + ")"
	}
	return fmt.Sprintf("label=%q, shape=plaintext, fontsize=11, kind=%q", text, strings.ToLower(r.Kind.String()))
}

func label(b layout.Box, detailed bool) string {
	if !detailed || len(b.Badges) == 0 {
		return b.Label
	}
	return b.Label + "\n" + strings.Join(b.Badges, "\n")
}

// RenderSVG renders DOT source to SVG with the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render DOT")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// viewBox so the document scales like the grid renderer's output.
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
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders DOT source to PDF.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders DOT source to PNG at the given scale.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
