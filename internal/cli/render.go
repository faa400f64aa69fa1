package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/render"
	"github.com/matzehuels/clustermap/pkg/render/nodelink"
	"github.com/matzehuels/clustermap/pkg/render/svg"
)

const (
	vizMap      = "map"      // grid layout, as on the interactive canvas
	vizNodelink = "nodelink" // Graphviz placement of the visible tree

	formatSVG = "svg"
	formatPNG = "png"
	formatPDF = "pdf"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string
	vizType    string
	formats    []string
	scale      float64
	background string
	detailed   bool
	expand     expandFlags
}

// renderCommand renders the map to SVG, PNG or PDF.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{vizType: vizMap, scale: 2, background: "#ffffff"}

	cmd := &cobra.Command{
		Use:   "render [dataset]",
		Short: "Render the map to SVG, PNG or PDF",
		Long: `Render the map to SVG, PNG or PDF.

The map type (-t map) draws the boxes exactly where the layout puts them.
The nodelink type (-t nodelink) lets Graphviz arrange the visible tree.
PNG and PDF need rsvg-convert from librsvg.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			return c.runRender(cmd.Context(), firstArg(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: <dataset>.<format>)")
	cmd.Flags().StringVarP(&opts.vizType, "type", "t", opts.vizType, "visualization type: map, nodelink")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", formatSVG, "comma-separated formats: svg, png, pdf")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().StringVar(&opts.background, "background", opts.background, "background color (map type, empty for none)")
	cmd.Flags().BoolVarP(&opts.detailed, "detailed", "d", false, "detailed node labels (nodelink type)")
	opts.expand.register(cmd)
	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	for _, f := range opts.formats {
		if f != formatSVG && f != formatPNG && f != formatPDF {
			return fmt.Errorf("unknown format %q (want svg, png or pdf)", f)
		}
	}
	if opts.vizType != vizMap && opts.vizType != vizNodelink {
		return fmt.Errorf("unknown type %q (want map or nodelink)", opts.vizType)
	}

	ds, err := c.loadDataset(ctx, input)
	if err != nil {
		return err
	}
	g, err := c.graph(ctx, ds, opts.expand)
	if err != nil {
		return err
	}

	spin := startSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", opts.vizType))
	doc, err := c.renderSVG(ctx, g, opts)
	if err != nil {
		spin.fail("Render failed")
		return err
	}

	var written []string
	for _, f := range opts.formats {
		data, err := convertSVG(ctx, doc, f, opts.scale)
		if err != nil {
			spin.fail("Conversion failed")
			return fmt.Errorf("%s: %w", f, err)
		}
		path := outputPath(input, opts.output, f, len(opts.formats) > 1)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			spin.fail("Write failed")
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	spin.stop()
	if spin.interrupted() {
		return ctx.Err()
	}

	printSuccess(c.Out, "Rendered %s", opts.vizType)
	for _, p := range written {
		printFile(c.Out, p)
	}
	printGraphStats(c.Out, g)
	printDiagnostics(c.Out, g.Diagnostics)
	return nil
}

func (c *CLI) renderSVG(ctx context.Context, g *layout.Graph, opts renderOpts) ([]byte, error) {
	if opts.vizType == vizNodelink {
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed}))
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	svgOpts := []svg.Option{svg.WithOptions(cfg.LayoutOptions())}
	if opts.background != "" {
		svgOpts = append(svgOpts, svg.WithBackground(opts.background))
	}
	return svg.Render(g, svgOpts...), nil
}

func convertSVG(ctx context.Context, doc []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case formatPNG:
		return render.ToPNG(ctx, doc, scale)
	case formatPDF:
		return render.ToPDF(ctx, doc)
	default:
		return doc, nil
	}
}

// outputPath picks the file for one format. With several formats an
// explicit output is treated as a base path.
func outputPath(input, output, format string, multi bool) string {
	if output == "" {
		return derivedPath(input, format)
	}
	if multi {
		return strings.TrimSuffix(output, filepath.Ext(output)) + "." + format
	}
	return output
}

// parseFormats splits a comma-separated format list.
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
