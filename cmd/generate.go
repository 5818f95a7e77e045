package cmd

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/app"
	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/render"
	"github.com/derickschaefer/timeseries/internal/series"
)

var generateFlags struct {
	LineFormat      string
	Limit           int
	Until           string
	RequireLastTime bool
	Forever         bool
}

func bindGenerateFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&generateFlags.LineFormat, "line-format", render.DefaultLineFormat,
		"line template for --format line: {time} {last_time} {index}")
	f.IntVar(&generateFlags.Limit, "limit", 0, "stop after this many rows")
	f.StringVar(&generateFlags.Until, "until", "", "stop after the last time not past this one")
	f.BoolVar(&generateFlags.RequireLastTime, "require-last-time", false,
		"skip the first time so every row has a last time")
	f.BoolVar(&generateFlags.Forever, "forever", false, "ignore the step count and stream until stopped")
}

func runGenerate(cmd *cobra.Command, args []string) (runErr error) {
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
	format, err := resolveFormat(deps.Config.Format)
	if err != nil {
		return err
	}
	o, err := renderOptions(deps, generateFlags.LineFormat)
	if err != nil {
		return err
	}

	var until *time.Time
	if generateFlags.Until != "" {
		t, err := deps.ParseTime(generateFlags.Until, globalFlags.InputTimeFormat)
		if err != nil {
			return errors.Wrap(err, "--until")
		}
		until = &t
	}

	var opts []series.CursorOption
	if generateFlags.RequireLastTime {
		opts = append(opts, series.RequireLastTime())
	}
	if generateFlags.Forever {
		opts = append(opts, series.StreamForever())
	}
	c := series.NewCursor(s, opts...)
	endless := (s.Len() < 0 || generateFlags.Forever) && until == nil && generateFlags.Limit <= 0

	if render.Streamable(format) {
		th, err := app.NewThrottle(deps.Config.Throttle, s.AvgSecondsPerStep())
		if err != nil {
			return err
		}
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer keepCloseErr(&runErr, closeFn)
		rw, err := render.NewRowWriter(w, format, o)
		if err != nil {
			return err
		}
		deps.Logger.Info("streaming series",
			"mode", res.Mode.String(), "period", res.Period.String(),
			"endless", endless, "throttle", th.Interval())
		n, err := walk(cmd.Context(), c, generateFlags.Limit, until, func(row model.Row) error {
			if err := th.Wait(cmd.Context()); err != nil {
				return err
			}
			return rw.Write(row)
		})
		deps.Logger.Info("series written", "rows", n, "elapsed", time.Since(began))
		return err
	}

	if endless {
		return errors.Newf("series is unbounded: set --n-steps, --stop, --until or --limit for %s output", format)
	}
	var rows []model.Row
	if _, err := walk(cmd.Context(), c, generateFlags.Limit, until, func(row model.Row) error {
		rows = append(rows, row)
		return nil
	}); err != nil {
		return err
	}
	data := &model.SeriesData{Info: seriesInfo(res, deps.Location), Rows: rows}
	result := newResult(model.KindSeries, cmd.CommandPath(), data, len(rows), began)
	return writeResult(cmd, deps, result, format, o)
}

// walk emits cursor steps as rows until the cursor is exhausted, limit rows
// are written (when positive), or the next time passes until (when set).
func walk(ctx context.Context, c *series.Cursor, limit int, until *time.Time, emit func(model.Row) error) (int, error) {
	var n int
	var werr error
	fn := func(st series.Step) bool {
		if werr = ctx.Err(); werr != nil {
			return false
		}
		if werr = emit(stepRow(st)); werr != nil {
			return false
		}
		n++
		return limit <= 0 || n < limit
	}

	if until != nil {
		c.EachUntil(*until, fn)
		return n, werr
	}
	for {
		t, ok := c.Time()
		if !ok {
			break
		}
		last, hasLast := c.LastTime()
		st := series.Step{Last: last, HasLast: hasLast, Time: t, Index: c.Index()}
		c.Advance()
		if !fn(st) {
			break
		}
	}
	return n, werr
}

func stepRow(st series.Step) model.Row {
	row := model.Row{Index: st.Index, Time: st.Time}
	if st.HasLast {
		last := st.Last
		row.LastTime = &last
	}
	return row
}
