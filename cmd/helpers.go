package cmd

import (
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/app"
	"github.com/derickschaefer/timeseries/internal/config"
	"github.com/derickschaefer/timeseries/internal/grid"
	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/period"
	"github.com/derickschaefer/timeseries/internal/pipeline"
	"github.com/derickschaefer/timeseries/internal/render"
	"github.com/derickschaefer/timeseries/internal/series"
	"github.com/derickschaefer/timeseries/internal/solver"
	"github.com/derickschaefer/timeseries/internal/util"
)

// seriesFlags holds the parameters shared by every command that builds a
// series. Only flags the user actually set take part in solving.
var seriesFlags struct {
	Start       string
	Stop        string
	Period      string
	NSteps      int
	Signature   []string
	SnapStart   string
	SnapStop    string
	OptionsFile string
	Preset      string
}

// bindSeriesFlags registers the series parameter flags on c.
func bindSeriesFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&seriesFlags.Start, "start", "s", "", "start time")
	f.StringVarP(&seriesFlags.Stop, "stop", "S", "", "stop time (inclusive)")
	f.StringVarP(&seriesFlags.Period, "period", "p", "", "step period, e.g. 15m, 1d, 1mon, -1h (default: 1s)")
	f.IntVarP(&seriesFlags.NSteps, "n-steps", "n", 0, "number of steps; negative walks backwards")
	f.StringSliceVar(&seriesFlags.Signature, "signature", nil,
		"fields that win when all are given: start_time,stop_time,period,n_steps")
	f.StringVar(&seriesFlags.SnapStart, "snap-start", "", "snap start time to the period grid: previous|next")
	f.StringVar(&seriesFlags.SnapStop, "snap-stop", "", "snap stop time to the period grid: previous|next")
	f.StringVar(&seriesFlags.OptionsFile, "options", "", "YAML file of series options")
	f.StringVar(&seriesFlags.Preset, "preset", "", "saved preset to start from (name or ID)")
	_ = c.RegisterFlagCompletionFunc("period", completePeriod)
}

// flagOptions collects the series flags set on c as Options.
func flagOptions(c *cobra.Command) (config.Options, error) {
	var opts config.Options
	f := c.Flags()
	if f.Changed("start") {
		opts.StartTime = seriesFlags.Start
	}
	if f.Changed("stop") {
		opts.StopTime = seriesFlags.Stop
	}
	if f.Changed("period") {
		p, err := period.Parse(seriesFlags.Period)
		if err != nil {
			return opts, errors.Wrap(err, "--period")
		}
		opts.Period = &p
	}
	if f.Changed("n-steps") {
		n := seriesFlags.NSteps
		opts.NSteps = &n
	}
	if f.Changed("signature") {
		opts.Signature = seriesFlags.Signature
	}
	var err error
	if opts.SnapStartTime, err = grid.ParseDirection(seriesFlags.SnapStart); err != nil {
		return opts, errors.Wrap(err, "--snap-start")
	}
	if opts.SnapStopTime, err = grid.ParseDirection(seriesFlags.SnapStop); err != nil {
		return opts, errors.Wrap(err, "--snap-stop")
	}
	return opts, nil
}

// gatherOptions layers the series options: preset, then options file, then
// flags. Later layers win field by field.
func gatherOptions(c *cobra.Command, deps *app.Deps) (config.Options, error) {
	var opts config.Options
	if seriesFlags.Preset != "" {
		st, err := deps.RequireStore()
		if err != nil {
			return opts, err
		}
		p, err := st.GetPreset(seriesFlags.Preset)
		if err != nil {
			return opts, err
		}
		deps.Logger.Debug("preset loaded", "name", p.Name, "id", p.ID)
		opts = p.Options
	}
	if seriesFlags.OptionsFile != "" {
		file, err := config.LoadOptions(seriesFlags.OptionsFile)
		if err != nil {
			return opts, err
		}
		opts = opts.Merge(*file)
	}
	fl, err := flagOptions(c)
	if err != nil {
		return opts, err
	}
	return opts.Merge(fl), nil
}

// toParams parses the textual options into solver input.
func toParams(deps *app.Deps, opts config.Options) (solver.Params, error) {
	p := solver.Params{
		Period:        opts.Period,
		NSteps:        opts.NSteps,
		SnapStartTime: opts.SnapStartTime,
		SnapStopTime:  opts.SnapStopTime,
	}
	if opts.StartTime != "" {
		t, err := deps.ParseTime(opts.StartTime, globalFlags.InputTimeFormat)
		if err != nil {
			return p, errors.Wrap(err, "start time")
		}
		p.StartTime = &t
	}
	if opts.StopTime != "" {
		t, err := deps.ParseTime(opts.StopTime, globalFlags.InputTimeFormat)
		if err != nil {
			return p, errors.Wrap(err, "stop time")
		}
		p.StopTime = &t
	}
	for _, name := range opts.Signature {
		f, err := solver.ParseField(name)
		if err != nil {
			return p, err
		}
		p.Signature = append(p.Signature, f)
	}
	return p, nil
}

// resolveSeries gathers options for c and solves them into a series.
func resolveSeries(c *cobra.Command, deps *app.Deps) (solver.Resolved, *series.Series, error) {
	opts, err := gatherOptions(c, deps)
	if err != nil {
		return solver.Resolved{}, nil, err
	}
	params, err := toParams(deps, opts)
	if err != nil {
		return solver.Resolved{}, nil, err
	}
	res, err := solver.Normalize(deps.Clock, deps.Now, params)
	if err != nil {
		return solver.Resolved{}, nil, err
	}
	return res, res.Series(deps.Clock), nil
}

// seriesInfo describes a resolved series for output envelopes.
func seriesInfo(res solver.Resolved, loc *time.Location) model.SeriesInfo {
	return model.SeriesInfo{
		Mode:      res.Mode.String(),
		Zone:      loc.String(),
		StartTime: res.StartTime,
		StopTime:  res.StopTime,
		Period:    res.Period.String(),
		NSteps:    res.NSteps,
	}
}

// resolveFormat returns the effective format string, falling back to "line".
func resolveFormat(cfgFormat string) (string, error) {
	format := cfgFormat
	if globalFlags.Format != "" {
		format = globalFlags.Format
	}
	if format == "" {
		format = render.FormatLine
	}
	return format, render.ValidateFormat(format)
}

// renderOptions builds render options from the configured time format.
func renderOptions(deps *app.Deps, line string) (render.Options, error) {
	tf, err := util.TimeFormatter(deps.Config.TimeFormat)
	if err != nil {
		return render.Options{}, errors.Wrap(err, "time format")
	}
	return render.Options{Time: tf, Line: line}, nil
}

// outputWriter returns the --out file when set, def otherwise. The closer
// is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating output file")
	}
	return f, f.Close, nil
}

// keepCloseErr runs closeFn and stores its error in *errp unless an earlier
// error is already there. For use with defer and a named result.
func keepCloseErr(errp *error, closeFn func() error) {
	if cerr := closeFn(); *errp == nil {
		*errp = cerr
	}
}

// inputReader returns the command's stdin, refusing an interactive terminal
// with hint.
func inputReader(c *cobra.Command, hint string) (io.Reader, error) {
	r := c.InOrStdin()
	if r == os.Stdin && pipeline.StdinIsTTY() {
		return nil, errors.Wrap(pipeline.ErrNoInput, hint)
	}
	return r, nil
}

// writeResult renders result to --out or the command's stdout, then the
// footer.
func writeResult(c *cobra.Command, deps *app.Deps, result *model.Result, format string, o render.Options) error {
	w, closeFn, err := outputWriter(c.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, format, o); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(c.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data interface{}, items int, began time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			Items:      items,
			DurationMs: time.Since(began).Milliseconds(),
		},
	}
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}
