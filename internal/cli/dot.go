package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/render/nodelink"
)

// dotCommand writes the visible tree as Graphviz DOT.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output   string
		detailed bool
		flags    expandFlags
	)

	cmd := &cobra.Command{
		Use:   "dot [dataset]",
		Short: "Export the visible tree as Graphviz DOT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDOT(cmd.Context(), firstArg(args), output, detailed, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "include badges and one node per model, filter and query")
	flags.register(cmd)
	return cmd
}

func (c *CLI) runDOT(ctx context.Context, input, output string, detailed bool, flags expandFlags) error {
	ds, err := c.loadDataset(ctx, input)
	if err != nil {
		return err
	}
	g, err := c.graph(ctx, ds, flags)
	if err != nil {
		return err
	}

	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed})
	if output == "-" {
		_, err := fmt.Fprint(c.Out, dot)
		return err
	}
	if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess(c.Out, "DOT written")
	printFile(c.Out, output)
	return nil
}
