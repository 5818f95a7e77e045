package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/pipeline"
	"github.com/derickschaefer/timeseries/internal/series"
)

var collateFlags struct {
	Interval   string
	LineFormat string
}

var collateCmd = &cobra.Command{
	Use:   "collate",
	Short: "Pair consecutive stdin lines with series times",
	Long: `Read data lines from stdin and key each consecutive pair by a time of the
series. With --interval ending the pair (line i, line i+1) is keyed by the
time that ends the interval; with beginning, by the time that starts it.
Output stops at whichever runs out first, lines or times.`,
	Example: `  printf '1\n2\n3\n' | timeseries collate -s 2010-01-01 -p 15m
  cat readings.txt | timeseries collate -s 2010-01-01 -p 1h --interval beginning --format csv
  cat readings.txt | timeseries collate -s 2010-01-01 -p 1h --line-format '{time} {last_data} -> {data}'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		began := time.Now()
		typ, err := series.ParseIntervalType(collateFlags.Interval)
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		res, s, err := resolveSeries(cmd, deps)
		if err != nil {
			return err
		}
		in, err := inputReader(cmd, "pipe data lines on stdin")
		if err != nil {
			return err
		}
		lines, err := pipeline.ReadLines(in)
		if err != nil {
			return err
		}

		intervals, err := series.Collate(s, lines, typ)
		if err != nil {
			return err
		}
		deps.Logger.Debug("collated", "lines", len(lines), "intervals", len(intervals), "interval", typ.String())

		rows := make([]model.Row, len(intervals))
		for i, iv := range intervals {
			prev, cur := iv.Previous, iv.Current
			rows[i] = model.Row{Index: i, Time: iv.Time, Data: &cur, LastData: &prev}
		}

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		o, err := renderOptions(deps, collateFlags.LineFormat)
		if err != nil {
			return err
		}
		data := &model.SeriesData{Info: seriesInfo(res, deps.Location), Rows: rows}
		return writeResult(cmd, deps, newResult(model.KindSeries, cmd.CommandPath(), data, len(rows), began), format, o)
	},
}

func init() {
	rootCmd.AddCommand(collateCmd)
	bindSeriesFlags(collateCmd)
	collateCmd.Flags().StringVar(&collateFlags.Interval, "interval", "ending", "which end keys a pair: ending|beginning")
	collateCmd.Flags().StringVar(&collateFlags.LineFormat, "line-format", "{time} {last_data} {data}",
		"line template for --format line: {time} {index} {last_data} {data}")
}
