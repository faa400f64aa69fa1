package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/expand"
	"github.com/matzehuels/clustermap/pkg/store"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

// stateCommand inspects and resets persisted viewport and expand state.
func (c *CLI) stateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or reset the persisted viewport and expand state",
	}
	cmd.AddCommand(c.stateShowCommand())
	cmd.AddCommand(c.stateResetCommand())
	return cmd
}

func (c *CLI) stateShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStateShow(cmd.Context(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

type stateSnapshot struct {
	Backend  string             `json:"backend"`
	Viewport *viewport.Viewport `json:"viewport"`
	Expand   *expand.State      `json:"expand"`
}

func (c *CLI) runStateShow(ctx context.Context, asJSON bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	st, err := c.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	snap := stateSnapshot{Backend: cfg.Store.Backend}
	if data, ok, err := st.Get(ctx, store.KeyViewport); err != nil {
		return err
	} else if ok {
		var v viewport.Viewport
		if json.Unmarshal(data, &v) == nil {
			snap.Viewport = &v
		}
	}
	if data, ok, err := st.Get(ctx, store.KeyExpand); err != nil {
		return err
	} else if ok {
		var e expand.State
		if json.Unmarshal(data, &e) == nil {
			snap.Expand = &e
		}
	}

	if asJSON {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	printKeyValue(c.Out, "backend", snap.Backend)
	if snap.Viewport != nil {
		printKeyValue(c.Out, "zoom", fmt.Sprintf("%.3f", snap.Viewport.Zoom))
		printKeyValue(c.Out, "pan", fmt.Sprintf("%.1f, %.1f", snap.Viewport.Pan.X, snap.Viewport.Pan.Y))
	} else {
		printKeyValue(c.Out, "viewport", StyleDim.Render("none (fits on open)"))
	}
	if snap.Expand != nil {
		printKeyValue(c.Out, "clusters", fmt.Sprintf("%d expanded", len(snap.Expand.Clusters)))
		printKeyValue(c.Out, "subclusters", fmt.Sprintf("%d expanded", len(snap.Expand.Subclusters)))
	} else {
		printKeyValue(c.Out, "expand", StyleDim.Render("none (all collapsed)"))
	}
	return nil
}

func (c *CLI) stateResetCommand() *cobra.Command {
	var viewportOnly, expandOnly bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viewportOnly && expandOnly {
				return fmt.Errorf("--viewport and --expand are mutually exclusive")
			}
			keys := []string{store.KeyViewport, store.KeyExpand}
			switch {
			case viewportOnly:
				keys = keys[:1]
			case expandOnly:
				keys = keys[1:]
			}
			return c.runStateReset(cmd.Context(), keys)
		},
	}
	cmd.Flags().BoolVar(&viewportOnly, "viewport", false, "reset only the viewport")
	cmd.Flags().BoolVar(&expandOnly, "expand", false, "reset only the expand state")
	return cmd
}

func (c *CLI) runStateReset(ctx context.Context, keys []string) error {
	st, err := c.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, k := range keys {
		if err := st.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	printSuccess(c.Out, "Reset %d key(s)", len(keys))
	return nil
}
