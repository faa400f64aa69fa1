// Package svg draws a [layout.Graph] as a standalone SVG document.
//
// Boxes, connectors and rows are placed at their canvas coordinates. An
// optional viewport wraps the content in a transform so the output matches
// what a user sees on screen, and an optional highlight ring marks the last
// teleport target.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

const interactionCSS = `
    .box { transition: stroke-width 0.2s ease; }
    .box:hover { stroke-width: 3; }
    .row:hover { fill: #eef2f7; }
    .highlight { animation: pulse 1s ease-in-out infinite; }
    @keyframes pulse { 50% { stroke-opacity: 0.2; } }`

const (
	highlightRadius = 18
	badgeGap        = 6
	textColor       = "#1f2933"
	mutedColor      = "#52606d"
	rowFill         = "#ffffff"
)

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	opts        layout.Options
	view        *viewport.Viewport
	width       float64
	height      float64
	highlight   *layout.Point
	background  string
	interactive bool
}

// WithOptions sets the layout options used for font sizes and spacing. It
// should match the options the graph was computed with.
func WithOptions(o layout.Options) Option {
	return func(r *renderer) { r.opts = o.WithDefaults() }
}

// WithViewport renders the canvas through v into a w by h frame.
func WithViewport(v viewport.Viewport, w, h float64) Option {
	return func(r *renderer) { r.view, r.width, r.height = &v, w, h }
}

// WithHighlight draws a highlight ring at a canvas point.
func WithHighlight(x, y float64) Option {
	return func(r *renderer) { r.highlight = &layout.Point{X: x, Y: y} }
}

// WithBackground fills the frame with a color.
func WithBackground(color string) Option {
	return func(r *renderer) { r.background = color }
}

// WithInteraction adds hover styling for browser viewing.
func WithInteraction() Option { return func(r *renderer) { r.interactive = true } }

// Render draws g. A nil graph yields an empty document.
func Render(g *layout.Graph, opts ...Option) []byte {
	r := renderer{opts: layout.DefaultOptions()}
	for _, opt := range opts {
		opt(&r)
	}
	if g == nil {
		g = &layout.Graph{}
	}

	w, h := g.Width, g.Height
	if r.view != nil {
		w, h = r.width, r.height
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%.0f" height="%.0f" font-family="Inter, Helvetica, Arial, sans-serif">`+"\n",
		num(w), num(h), w, h)
	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", interactionCSS)
	}
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", escape(r.background))
	}

	if r.view != nil {
		fmt.Fprintf(&buf, `  <g transform="translate(%s %s) scale(%s)">`+"\n",
			num(r.view.Pan.X), num(r.view.Pan.Y), num(r.view.Zoom))
	} else {
		buf.WriteString("  <g>\n")
	}

	for _, l := range g.Lines {
		r.line(&buf, l)
	}
	for _, b := range g.Boxes {
		r.box(&buf, b)
	}
	if r.highlight != nil {
		fmt.Fprintf(&buf, `    <circle class="highlight" cx="%s" cy="%s" r="%d" fill="none" stroke="#f5a623" stroke-width="4"/>`+"\n",
			num(r.highlight.X), num(r.highlight.Y), highlightRadius)
	}

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

func (r *renderer) line(buf *bytes.Buffer, l layout.Line) {
	dash := ""
	if l.Kind == layout.LineStack {
		dash = ` stroke-dasharray="4 3"`
	}
	fmt.Fprintf(buf, `    <line class="line-%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="2"%s/>`+"\n",
		l.Kind, num(l.From.X), num(l.From.Y), num(l.To.X), num(l.To.Y), escape(l.Color), dash)
}

func (r *renderer) box(buf *bytes.Buffer, b layout.Box) {
	id := fmt.Sprintf("%s-%s", b.Kind, b.ID)
	fill, stroke, fg := b.Color, b.Color, "#ffffff"
	if b.Kind != layout.KindCluster && b.Kind != layout.KindViewButton {
		fill, fg = rowFill, textColor
	}

	fmt.Fprintf(buf, `    <g id="%s" data-kind="%s">`+"\n", escape(id), b.Kind)
	fmt.Fprintf(buf, `      <rect class="box" x="%s" y="%s" width="%s" height="%s" rx="8" fill="%s" stroke="%s" stroke-width="2"/>`+"\n",
		num(b.X), num(b.Y), num(b.W), num(b.H), escape(fill), escape(stroke))

	switch b.Kind {
	case layout.KindCluster, layout.KindSubcluster:
		r.header(buf, b, fg)
	case layout.KindViewButton:
		fmt.Fprintf(buf, `      <text x="%s" y="%s" text-anchor="middle" dominant-baseline="central" font-size="%s" fill="%s">%s</text>`+"\n",
			num(b.CenterX()), num(b.CenterY()), num(r.opts.BadgeFontSize+1), fg, escape(b.Label))
	default:
		r.stack(buf, b)
	}
	buf.WriteString("    </g>\n")
}

func (r *renderer) header(buf *bytes.Buffer, b layout.Box, fg string) {
	size := r.opts.SubclusterFontSize
	if b.Kind == layout.KindCluster {
		size = r.opts.ClusterFontSize
	}
	marker := "▸"
	if b.Expanded {
		marker = "▾"
	}
	x := b.X + r.opts.BoxPadding
	fmt.Fprintf(buf, `      <text x="%s" y="%s" dominant-baseline="central" font-size="%s" font-weight="600" fill="%s">%s %s</text>`+"\n",
		num(x), num(b.CenterY()), num(size), fg, marker, escape(b.Label))

	// badges stack right-aligned, last one rightmost
	right := b.Right() - r.opts.BoxPadding
	for i := len(b.Badges) - 1; i >= 0; i-- {
		fmt.Fprintf(buf, `      <text x="%s" y="%s" text-anchor="end" dominant-baseline="central" font-size="%s" fill="%s">%s</text>`+"\n",
			num(right), num(b.CenterY()), num(r.opts.BadgeFontSize), mutedOn(b.Kind), escape(b.Badges[i]))
		right -= float64(len([]rune(b.Badges[i])))*r.opts.BadgeFontSize*0.6 + badgeGap
	}
}

func (r *renderer) stack(buf *bytes.Buffer, b layout.Box) {
	fmt.Fprintf(buf, `      <text x="%s" y="%s" dominant-baseline="central" font-size="%s" font-weight="600" fill="%s">%s</text>`+"\n",
		num(b.X+r.opts.BoxPadding), num(b.Y+r.opts.HeaderHeight/2), num(r.opts.SubclusterFontSize-1), escape(b.Color), escape(b.Label))

	if s := b.Summary; s != nil {
		y := b.Y + r.opts.HeaderHeight + r.opts.RowHeight/2
		fmt.Fprintf(buf, `      <text x="%s" y="%s" dominant-baseline="central" font-size="%s" fill="%s">%d phrases · %d impressions · min freq %d</text>`+"\n",
			num(b.X+r.opts.BoxPadding), num(y), num(r.opts.BadgeFontSize), mutedColor, s.Phrases, s.Impressions, s.MinFrequency)
	}

	for _, row := range b.Rows {
		cy := row.Y + row.H/2
		fmt.Fprintf(buf, `      <rect class="row" x="%s" y="%s" width="%s" height="%s" fill="transparent"/>`+"\n",
			num(row.X), num(row.Y), num(row.W), num(row.H))
		fmt.Fprintf(buf, `      <text x="%s" y="%s" dominant-baseline="central" font-size="%s" fill="%s">%s</text>`+"\n",
			num(row.X+4), num(cy), num(r.opts.BadgeFontSize+1), textColor, escape(row.Label))
		if row.Badge != "" {
			fmt.Fprintf(buf, `      <text x="%s" y="%s" text-anchor="end" dominant-baseline="central" font-size="%s" fill="%s">%s</text>`+"\n",
				num(row.X+row.W-4), num(cy), num(r.opts.BadgeFontSize), mutedColor, escape(row.Badge))
		}
	}
}

func mutedOn(k layout.Kind) string {
	if k == layout.KindCluster {
		return "#ffffff"
	}
	return mutedColor
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
