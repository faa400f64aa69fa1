package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for clustermap.

  $ source <(clustermap completion bash)
  $ clustermap completion zsh > "${fpath[1]}/_clustermap"
  $ clustermap completion fish > ~/.config/fish/completions/clustermap.fish
  PS> clustermap completion powershell | Out-String | Invoke-Expression

Dataset arguments complete to .json, .yaml and .yml files.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// completeDatasets makes every "[dataset]" positional of root's commands
// complete to dataset files. The search query comes first and is left alone.
func completeDatasets(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		if !strings.Contains(cmd.Use, "[dataset]") || cmd.ValidArgsFunction != nil {
			continue
		}
		skip := strings.Count(cmd.Use, "<")
		cmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) != skip {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return []string{"json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
		}
	}
}
