package cmd

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/model"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Count the steps of a series without printing it",
	Long: `Solve the series parameters and report the start, stop, period and step
count. The count is inclusive: 00:00 to 01:00 by 15m is 5 steps.`,
	Example: `  timeseries steps -s 2010-01-01T00:00:00Z -S 2010-01-01T01:00:00Z -p 15m
  timeseries steps -s 2010-01-01 -S 2011-01-01 -p 1mon --zone America/Denver
  timeseries steps -S 2010-01-02 -p 1h -n 24 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		began := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		res, s, err := resolveSeries(cmd, deps)
		if err != nil {
			return err
		}
		if res.NSteps == nil {
			return errors.New("series is unbounded: give --stop or --n-steps to count steps")
		}
		stop, _ := s.StopTime()

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		o, err := renderOptions(deps, "")
		if err != nil {
			return err
		}
		data := &model.StepCount{
			StartTime: res.StartTime,
			StopTime:  stop,
			Period:    res.Period.String(),
			NSteps:    *res.NSteps,
		}
		return writeResult(cmd, deps, newResult(model.KindStepCount, cmd.CommandPath(), data, 1, began), format, o)
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	bindSeriesFlags(stepsCmd)
}
