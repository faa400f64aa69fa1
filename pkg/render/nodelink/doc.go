// Package nodelink exports the visible part of a cluster map as a Graphviz
// node-link diagram.
//
// Where the layout engine places boxes on a fixed grid, [ToDOT] only
// describes the tree (clusters, expanded subclusters and their attached
// models and filters) and leaves placement to Graphviz. The output can be
// saved for external tools or rendered in-process with [RenderSVG].
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Rendering uses [github.com/goccy/go-graphviz], which embeds Graphviz as
// WebAssembly. PDF and PNG output go through [render.ToPDF] and
// [render.ToPNG].
package nodelink
