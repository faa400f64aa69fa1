package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// layoutCommand computes the box layout of a dataset and writes it as JSON.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  expandFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [dataset]",
		Short: "Compute the map layout of a dataset",
		Long: `Compute the map layout of a dataset.

The dataset is a JSON or YAML export of clusters, subclusters, configs,
the model and filter catalogue and optional stats. Without an argument the
[source] section of the config file is used.

The output is the positioned graph: every box with its kind, id, label,
badges, color, rectangle and rows, the connector lines, the canvas size and
the diagnostics for references that did not resolve.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), firstArg(args), output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <dataset>.layout.json, - for stdout)")
	flags.register(cmd)
	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, flags expandFlags) error {
	ds, err := c.loadDataset(ctx, input)
	if err != nil {
		return err
	}
	g, err := c.graph(ctx, ds, flags)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	data = append(data, '\n')

	if output == "-" {
		_, err := c.Out.Write(data)
		return err
	}
	if output == "" {
		output = derivedPath(input, "layout.json")
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess(c.Out, "Layout complete")
	printFile(c.Out, output)
	printGraphStats(c.Out, g)
	printDiagnostics(c.Out, g.Diagnostics)
	printNewline(c.Out)
	printNextStep(c.Out, "Render", strings.Join(strings.Fields(appName+" render "+input+" --expand-all"), " "))
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// derivedPath swaps the extension of input for suffix, or names the file
// after the app when input is empty.
func derivedPath(input, suffix string) string {
	if input == "" {
		return appName + "." + suffix
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + suffix
}
