package cmd

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/analyze"
	"github.com/derickschaefer/timeseries/internal/chart"
	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/pipeline"
)

var statsFlags struct {
	Input string
	Limit int
	Chart bool
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report how step lengths vary across a series",
	Long: `Measure the real elapsed length of every step and summarise them: min, max,
mean, median, spread, the distinct lengths seen, and a linear fit of
elapsed time against step index. Calendar periods show their irregularity
here; a 1mon series has 28, 30 and 31 day steps.

With --input the times are read from stdin instead of generated: "times"
reads one time per line, "jsonl" reads rows written by --format jsonl.

--chart draws one bar per step instead of the summary.`,
	Example: `  timeseries stats -s 2010-01-01 -p 1mon -n 13
  timeseries stats -s 2010-03-13 -p 1d -n 3 --zone America/Denver --format json
  timeseries -s 2010-01-01 -p 1d -n 30 --format jsonl | timeseries stats --input jsonl
  timeseries stats -s 2010-01-01 -p 1mon -n 13 --chart`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (runErr error) {
		began := time.Now()
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
		var info model.SeriesInfo
		var approx float64

		switch statsFlags.Input {
		case "":
			res, s, err := resolveSeries(cmd, deps)
			if err != nil {
				return err
			}
			if s.Len() < 0 && statsFlags.Limit <= 0 {
				return errors.New("series is unbounded: set --stop, --n-steps or --limit")
			}
			times = s.Times(statsFlags.Limit)
			info = seriesInfo(res, deps.Location)
			approx = res.Period.ApproxSeconds()
		case "times", "jsonl":
			in, err := inputReader(cmd, "pipe times on stdin")
			if err != nil {
				return err
			}
			if statsFlags.Input == "times" {
				times, err = pipeline.ReadTimes(in, parse)
			} else {
				var rows []model.Row
				rows, err = pipeline.ReadRows(in, parse)
				for _, r := range rows {
					times = append(times, r.Time)
				}
			}
			if err != nil {
				if len(times) == 0 {
					return err
				}
				warnings = append(warnings, err.Error())
			}
			if statsFlags.Limit > 0 && len(times) > statsFlags.Limit {
				times = times[:statsFlags.Limit]
			}
			info = model.SeriesInfo{Mode: "stdin", Zone: deps.Location.String()}
		default:
			return errors.Newf("--input must be times or jsonl, got %q", statsFlags.Input)
		}

		st, err := analyze.Summarize(deps.Clock, info, times, approx)
		if err != nil {
			return err
		}
		if statsFlags.Chart {
			w, closeFn, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer keepCloseErr(&runErr, closeFn)
			title := info.Period
			if title == "" {
				title = "steps"
			}
			return chart.Bar(w, title, chart.Steps(deps.Clock, times), chart.BarOptions{})
		}

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		o, err := renderOptions(deps, "")
		if err != nil {
			return err
		}
		result := newResult(model.KindStepStats, cmd.CommandPath(), &st, st.Steps, began)
		result.Warnings = warnings
		return writeResult(cmd, deps, result, format, o)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	bindSeriesFlags(statsCmd)
	statsCmd.Flags().StringVar(&statsFlags.Input, "input", "", "read times from stdin: times|jsonl")
	statsCmd.Flags().IntVar(&statsFlags.Limit, "limit", 0, "use at most this many times")
	statsCmd.Flags().BoolVar(&statsFlags.Chart, "chart", false, "draw step lengths as a bar chart")
}
