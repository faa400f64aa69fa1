package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/search"
)

// searchCommand lists labels matching a query.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		flags  expandFlags
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query> [dataset]",
		Short: "Find clusters, subclusters, models and filters by label",
		Long: `Find clusters, subclusters, models and filters by label.

Matching is a case-insensitive substring test over the labels present in the
layout, so collapsed branches are only searched with --expand-all or when
the persisted state (--state) has them open. Each result carries the canvas
point a teleport would center on.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), args[0], firstArg(args[1:]), flags, limit, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func (c *CLI) runSearch(ctx context.Context, query, input string, flags expandFlags, limit int, asJSON bool) error {
	ds, err := c.loadDataset(ctx, input)
	if err != nil {
		return err
	}
	g, err := c.graph(ctx, ds, flags)
	if err != nil {
		return err
	}

	results := search.NewIndex(g).SearchLimit(query, limit)
	if asJSON {
		if results == nil {
			results = []search.Suggestion{}
		}
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		printInfo(c.Out, "No labels match %q", query)
		return nil
	}
	fmt.Fprintln(c.Out, renderSuggestions(results, -1))
	return nil
}

// renderSuggestions draws results as a table. The row at cursor is
// emphasized; pass -1 for none.
func renderSuggestions(results []search.Suggestion, cursor int) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			string(r.Kind),
			r.Label,
			r.Parent,
			fmt.Sprintf("%.0f, %.0f", r.X, r.Y),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Kind", "Label", "In", "Anchor").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1: // header
				return headerStyle
			case row == cursor:
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			case col == 0 || col == 2 || col == 3:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	return t.Render()
}
