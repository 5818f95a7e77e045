// Package cmd implements the timeseries CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/app"
	"github.com/derickschaefer/timeseries/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Zone            string
	Format          string
	Out             string
	TimeFormat      string
	InputTimeFormat string
	Throttle        string
	Quiet           bool
	Verbose         bool
	Debug           bool
}

// rootCmd generates a series when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "timeseries — calendar-aware timestamp series",
	Long: `timeseries generates deterministic sequences of timestamps from a start
time, a calendar period, and a stop time or step count. Any missing
parameter is solved for from the ones given.

Periods are written as magnitude/unit terms: 15m, 1h30m, 1mon, -1d, 10.5s.
Day, week, month and year steps follow the wall clock of --zone, so a daily
series keeps its time of day across daylight-saving changes.

Quick start:
  timeseries -s 2010-01-01 -p 15m -n 5       # five quarter hours
  timeseries -s 2010-01-01 -S 2010-01-02 -p 1h # every hour in a day
  timeseries steps -s 2010-01-01 -S 2011-01-01 -p 1w
  timeseries snap -p 15m 2010-01-01T00:07:00Z`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGenerate,
}

// Execute is the entry point called by main. An interrupt cancels the
// command context so endless streams end cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.Zone)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.TimeFormat != "" {
		cfg.TimeFormat = globalFlags.TimeFormat
	}
	if globalFlags.Throttle != "" {
		cfg.Throttle = globalFlags.Throttle
	}

	deps, err := app.New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(deps.Logger)
	return deps, nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Zone, "zone", "",
		"IANA time zone for parsing and calendar steps (overrides env TIMESERIES_ZONE and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: line|table|json|jsonl|csv|tsv|md (default: line)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.TimeFormat, "time-format", "",
		"output time format: rfc3339, unix, 0-9 fraction digits, or a Go layout")
	pf.StringVar(&globalFlags.InputTimeFormat, "input-time-format", "",
		"Go layout for parsing input times (default: RFC 3339 / ISO 8601 shapes)")
	pf.StringVar(&globalFlags.Throttle, "throttle", "",
		"pace streamed rows: a duration (500ms) or realtime")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log solver decisions to stderr")

	bindSeriesFlags(rootCmd)
	bindGenerateFlags(rootCmd)
}
