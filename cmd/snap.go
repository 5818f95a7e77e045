package cmd

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/grid"
	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/period"
	"github.com/derickschaefer/timeseries/internal/pipeline"
)

var snapPeriods []string

var snapCmd = &cobra.Command{
	Use:   "snap [TIME...]",
	Short: "Print the grid boundaries around times",
	Long: `For each time, print the previous and next boundary of the period grid in
the configured zone. Times come from the arguments, or one per line on
stdin when none are given. Only second, minute and hour periods form a grid.`,
	Example: `  timeseries snap -p 15m 2010-01-01T00:07:00Z
  timeseries snap -p 15m -p 1h "2010-01-01 00:07"
  timeseries -s 2010-01-01 -p 7m -n 10 | timeseries snap -p 15m --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		began := time.Now()
		if len(snapPeriods) == 0 {
			return errors.New("--period is required")
		}
		periods := make([]period.Period, len(snapPeriods))
		for i, s := range snapPeriods {
			p, err := period.Parse(s)
			if err != nil {
				return errors.Wrap(err, "--period")
			}
			periods[i] = p
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		parse := func(s string) (time.Time, error) {
			return deps.ParseTime(s, globalFlags.InputTimeFormat)
		}
		var times []time.Time
		var warnings []string
		if len(args) > 0 {
			for _, a := range args {
				t, err := parse(a)
				if err != nil {
					return err
				}
				times = append(times, t)
			}
		} else {
			in, err := inputReader(cmd, "give times as arguments or on stdin")
			if err != nil {
				return err
			}
			times, err = pipeline.ReadTimes(in, parse)
			if err != nil {
				if len(times) == 0 {
					return err
				}
				warnings = append(warnings, err.Error())
			}
		}

		results := make([]model.SnapResult, 0, len(times)*len(periods))
		for _, t := range times {
			for _, p := range periods {
				prev, err := grid.SnapPrevious(deps.Clock, p, t)
				if err != nil {
					return err
				}
				next, err := grid.SnapNext(deps.Clock, p, t)
				if err != nil {
					return err
				}
				results = append(results, model.SnapResult{Input: t, Period: p.String(), Previous: prev, Next: next})
			}
		}

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		o, err := renderOptions(deps, "")
		if err != nil {
			return err
		}
		result := newResult(model.KindSnap, cmd.CommandPath(), results, len(results), began)
		result.Warnings = warnings
		return writeResult(cmd, deps, result, format, o)
	},
}

func init() {
	rootCmd.AddCommand(snapCmd)
	snapCmd.Flags().StringArrayVarP(&snapPeriods, "period", "p", nil, "grid period, e.g. 15m; repeat for several")
	_ = snapCmd.RegisterFlagCompletionFunc("period", completePeriod)
}
