package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/period"
)

// completionCmd wraps Cobra's built-in shell completion generator.
// Running `timeseries completion bash` prints a script the user can source.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for timeseries.

To load completions in the current shell session:

  # bash
  source <(timeseries completion bash)

  # zsh
  source <(timeseries completion zsh)

  # fish
  timeseries completion fish | source

Persist across sessions by adding the source line to your shell profile
(~/.bashrc, ~/.zshrc, ~/.config/fish/completions/timeseries.fish, etc.).`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return root.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return root.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		default:
			return cmd.Help()
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completePeriod completes the unit of the last period term: "15mi" offers
// 15min, 15mins, 15minute and 15minutes.
func completePeriod(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	j := len(toComplete)
	for j > 0 && isLetter(toComplete[j-1]) {
		j--
	}
	head, partial := toComplete[:j], toComplete[j:]

	var out []string
	for _, a := range period.Aliases() {
		if strings.HasPrefix(a, partial) {
			out = append(out, head+a)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
