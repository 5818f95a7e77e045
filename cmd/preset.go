package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/config"
	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/render"
	"github.com/derickschaefer/timeseries/internal/solver"
	"github.com/derickschaefer/timeseries/internal/store"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Save and reuse named series parameters",
	Long: `Presets store series parameters under a name so they can be replayed with
--preset on any series command. Flags given alongside --preset override the
saved values.

  timeseries preset save quarter-hours -s 2010-01-01 -p 15m -n 96
  timeseries preset list
  timeseries --preset quarter-hours --format csv`,
}

// ─── preset save ──────────────────────────────────────────────────────────────

var presetSaveDescription string

var presetSaveCmd = &cobra.Command{
	Use:   "save <NAME>",
	Short: "Save the given series parameters under a name",
	Example: `  timeseries preset save daily -s "2010-03-13 00:00" -p 1d -n 7 --zone America/Denver
  timeseries preset save trading --options trading.yaml --description "NYSE half hours"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.ValidatePresetName(args[0]); err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		opts, err := gatherOptions(cmd, deps)
		if err != nil {
			return err
		}
		params, err := toParams(deps, opts)
		if err != nil {
			return err
		}
		if _, err := solver.Normalize(deps.Clock, deps.Now, params); err != nil {
			return errors.Wrap(err, "preset does not describe a series")
		}

		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		p, err := st.PutPreset(store.Preset{
			Name:        args[0],
			Description: presetSaveDescription,
			Options:     opts,
		})
		if err != nil {
			return errors.Wrap(err, "saving preset")
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved preset %s  (%s)\n", p.Name, p.ID)
		}
		return nil
	},
}

// ─── preset list ──────────────────────────────────────────────────────────────

var presetListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved presets",
	Example: `  timeseries preset list
  timeseries preset list --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		began := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		presets, err := st.ListPresets()
		if err != nil {
			return errors.Wrap(err, "listing presets")
		}
		if len(presets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No presets saved.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: timeseries preset save <name> -s <start> -p <period> ...")
			return nil
		}

		table := &model.Table{Header: []string{"NAME", "PERIOD", "SUMMARY", "DESCRIPTION", "UPDATED"}}
		for _, p := range presets {
			period := ""
			if p.Options.Period != nil {
				period = p.Options.Period.String()
			}
			table.Rows = append(table.Rows, []string{
				p.Name, period, summarize(p.Options), p.Description, p.UpdatedAt.Format("2006-01-02 15:04"),
			})
		}

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		if format == render.FormatLine {
			format = render.FormatTable
		}
		o, err := renderOptions(deps, "")
		if err != nil {
			return err
		}
		return writeResult(cmd, deps, newResult(model.KindPreset, cmd.CommandPath(), table, len(presets), began), format, o)
	},
}

// ─── preset show ──────────────────────────────────────────────────────────────

var presetShowCmd = &cobra.Command{
	Use:   "show <NAME|ID>",
	Short: "Print a preset as an options file",
	Long: `Print the saved parameters of a preset as YAML. The output is a valid
--options file.`,
	Example: `  timeseries preset show daily
  timeseries preset show daily > daily.yaml && timeseries --options daily.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		p, err := st.GetPreset(args[0])
		if err != nil {
			return err
		}
		data, err := store.ExportPreset(p)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !deps.Config.Quiet {
			fmt.Fprintf(out, "# preset %s (%s)\n", p.Name, p.ID)
			if p.Description != "" {
				fmt.Fprintf(out, "# %s\n", p.Description)
			}
		}
		_, err = out.Write(data)
		return err
	},
}

// ─── preset delete ────────────────────────────────────────────────────────────

var presetDeleteCmd = &cobra.Command{
	Use:     "delete <NAME|ID>",
	Short:   "Delete a saved preset",
	Example: `  timeseries preset delete daily`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := st.DeletePreset(args[0]); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted preset %s\n", args[0])
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetShowCmd)
	presetCmd.AddCommand(presetDeleteCmd)

	bindSeriesFlags(presetSaveCmd)
	presetSaveCmd.Flags().StringVar(&presetSaveDescription, "description", "", "free-text description")
}

// summarize lists the times and counts a preset sets.
func summarize(o config.Options) string {
	var parts []string
	if o.StartTime != "" {
		parts = append(parts, "start="+o.StartTime)
	}
	if o.StopTime != "" {
		parts = append(parts, "stop="+o.StopTime)
	}
	if o.NSteps != nil {
		parts = append(parts, fmt.Sprintf("n=%d", *o.NSteps))
	}
	if len(o.Signature) > 0 {
		parts = append(parts, fmt.Sprintf("signature=%v", o.Signature))
	}
	return strings.Join(parts, " ")
}
