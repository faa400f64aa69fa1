// Package render turns a computed cluster map into images.
//
// The [svg] subpackage draws a [layout.Graph] box for box, exactly as the
// interactive canvas shows it. The [nodelink] subpackage exports the visible
// tree as Graphviz DOT and lets Graphviz arrange it instead.
//
// [ToPDF] and [ToPNG] convert any SVG produced by either renderer through
// the external rsvg-convert tool:
//
//	doc := svg.Render(g, svg.WithHighlight(x, y))
//	png, err := render.ToPNG(ctx, doc, 2.0)
package render
