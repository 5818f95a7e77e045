package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/derickschaefer/timeseries/internal/config"
	"github.com/derickschaefer/timeseries/internal/period"
	"github.com/derickschaefer/timeseries/internal/solver"
)

// ─── Harness ──────────────────────────────────────────────────────────────────

// setup isolates a test from the caller's config.json and environment and
// points the preset store into a temp dir.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvZone, "")
	t.Setenv(config.EnvFormat, "")
	t.Setenv(config.EnvDBPath, filepath.Join(dir, "ts.db"))
	return dir
}

// resetFlags returns every flag in the tree to its default so runs in one
// process do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the command tree with args and stdin, returning stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, stdin, args...)
	if err != nil {
		t.Fatalf("timeseries %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

const t0 = "2010-01-01T00:00:00Z"

// ─── Generate ─────────────────────────────────────────────────────────────────

func TestGenerateStartPeriodSteps(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "-p", "15m", "-n", "5")
	want := "2010-01-01T00:00:00Z\n2010-01-01T00:15:00Z\n2010-01-01T00:30:00Z\n2010-01-01T00:45:00Z\n2010-01-01T01:00:00Z\n"
	if out != want {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestGenerateSolvesStepsFromStop(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "-S", "2010-01-01T01:00:00Z", "-p", "15m")
	if got := lines(out); len(got) != 5 || got[4] != "2010-01-01T01:00:00Z" {
		t.Errorf("expected 5 times ending on the stop time, got %v", got)
	}
}

func TestGenerateLineAndTimeFormat(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "-p", "15m", "-n", "3",
		"--line-format", "{index} {last_time} {time}", "--time-format", "15:04")
	want := "0  00:00\n1 00:00 00:15\n2 00:15 00:30\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestGenerateDailyAcrossSpringForward(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "--zone", "MST7MDT", "-s", "2010-03-13 00:00", "-p", "1d", "-n", "3",
		"--time-format", "2006-01-02 15:04 MST")
	want := "2010-03-13 00:00 MST\n2010-03-14 00:00 MST\n2010-03-15 00:00 MDT\n"
	if out != want {
		t.Errorf("daily steps should keep midnight across the gap:\n%s", out)
	}
}

func TestGenerateUnboundedWithLimit(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "--limit", "3")
	want := "2010-01-01T00:00:00Z\n2010-01-01T00:00:01Z\n2010-01-01T00:00:02Z\n"
	if out != want {
		t.Errorf("expected three 1s steps, got %q", out)
	}
}

func TestGenerateUntil(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "-p", "15m", "--until", "2010-01-01T00:40:00Z")
	if got := lines(out); len(got) != 3 || got[2] != "2010-01-01T00:30:00Z" {
		t.Errorf("expected times up to 00:30, got %v", got)
	}
}

func TestGenerateUnboundedNeedsLimitForTable(t *testing.T) {
	setup(t)
	_, err := run(t, "", "-s", t0, "--format", "table")
	if err == nil || !strings.Contains(err.Error(), "unbounded") {
		t.Errorf("expected an unbounded series error, got %v", err)
	}
}

func TestGenerateRequireLastTimeJSONL(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "-p", "15m", "-n", "3", "--require-last-time", "--format", "jsonl")
	got := lines(out)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d:\n%s", len(got), out)
	}
	var row struct {
		Index    int     `json:"index"`
		Time     string  `json:"time"`
		LastTime *string `json:"last_time"`
	}
	if err := json.Unmarshal([]byte(got[0]), &row); err != nil {
		t.Fatal(err)
	}
	if row.Index != 1 || row.LastTime == nil || *row.LastTime != t0 {
		t.Errorf("first row should be index 1 with last time %s, got %+v", t0, row)
	}
}

func TestGenerateTableEnvelope(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "-s", t0, "-p", "1h", "-n", "2", "--format", "json")
	var env struct {
		Kind string `json:"kind"`
		Data struct {
			Info struct {
				Mode string `json:"mode"`
				Zone string `json:"zone"`
			} `json:"info"`
			Rows []json.RawMessage `json:"rows"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("json output: %v\n%s", err, out)
	}
	if env.Data.Info.Mode != "start_period_steps" || env.Data.Info.Zone != "UTC" || len(env.Data.Rows) != 2 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	setup(t)
	if _, err := run(t, "", "-s", t0, "-p", "15 parsecs"); err == nil {
		t.Error("expected error for unknown period unit")
	}
	if _, err := run(t, "", "-s", "yesterday-ish"); err == nil {
		t.Error("expected error for unparseable start time")
	}
	if _, err := run(t, "", "-s", t0, "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := run(t, "", "-s", t0, "--snap-start", "sideways"); err == nil {
		t.Error("expected error for unknown snap direction")
	}
}

func TestOutFlagWritesFile(t *testing.T) {
	dir := setup(t)
	p := filepath.Join(dir, "series.csv")
	if out := mustRun(t, "", "-s", t0, "-p", "1h", "-n", "2", "--format", "csv", "--out", p); out != "" {
		t.Errorf("stdout should be empty with --out, got %q", out)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "index,time,last_time") {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

// ─── steps ────────────────────────────────────────────────────────────────────

func TestStepsCount(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "steps", "-s", t0, "-S", "2010-01-01T01:00:00Z", "-p", "15m")
	if !strings.Contains(out, "Steps 5\n") || !strings.Contains(out, "Stop 2010-01-01T01:00:00Z") {
		t.Errorf("unexpected steps output:\n%s", out)
	}
}

func TestStepsStopAndPeriodIsNotImplemented(t *testing.T) {
	setup(t)
	_, err := run(t, "", "steps", "-S", "2010-01-01T01:00:00Z", "-p", "15m")
	if !errors.Is(err, solver.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}

func TestStepsUnbounded(t *testing.T) {
	setup(t)
	if _, err := run(t, "", "steps", "-s", t0, "-p", "15m"); err == nil {
		t.Error("expected error counting an unbounded series")
	}
}

// ─── snap ─────────────────────────────────────────────────────────────────────

func TestSnapArgs(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "snap", "-p", "15m", "2010-01-01T00:07:00Z", "--format", "csv")
	want := "input,period,previous,next\n2010-01-01T00:07:00Z,15m,2010-01-01T00:00:00Z,2010-01-01T00:15:00Z\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestSnapStdinSeveralPeriods(t *testing.T) {
	setup(t)
	out := mustRun(t, "2010-01-01T00:07:00Z\n# comment\n2010-01-01T00:15:00Z\n",
		"snap", "-p", "15m", "-p", "1h", "--format", "jsonl")
	if got := lines(out); len(got) != 4 {
		t.Errorf("expected 2 times x 2 periods, got %d rows:\n%s", len(got), out)
	}
}

func TestSnapRejectsCalendarPeriod(t *testing.T) {
	setup(t)
	if _, err := run(t, "", "snap", "-p", "1d", t0); err == nil {
		t.Error("expected an error snapping to a day grid")
	}
	if _, err := run(t, "", "snap", t0); err == nil {
		t.Error("expected an error without --period")
	}
}

// ─── collate ──────────────────────────────────────────────────────────────────

func TestCollateEnding(t *testing.T) {
	setup(t)
	out := mustRun(t, "a\nb\nc\n", "collate", "-s", t0, "-p", "15m")
	want := "2010-01-01T00:15:00Z a b\n2010-01-01T00:30:00Z b c\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestCollateBeginningTrimsToSeries(t *testing.T) {
	setup(t)
	out := mustRun(t, "a\nb\nc\nd\n", "collate", "-s", t0, "-p", "15m", "-n", "2",
		"--interval", "beginning", "--line-format", "{time} {data}")
	want := "2010-01-01T00:00:00Z b\n2010-01-01T00:15:00Z c\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestCollateBadInterval(t *testing.T) {
	setup(t)
	if _, err := run(t, "a\nb\n", "collate", "-s", t0, "--interval", "middle"); err == nil {
		t.Error("expected error for unknown interval")
	}
}

// ─── stats ────────────────────────────────────────────────────────────────────

func TestStatsMonthly(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "stats", "-s", t0, "-p", "1mon", "-n", "4", "--format", "json")
	var env struct {
		Data struct {
			Steps   int     `json:"steps"`
			Min     float64 `json:"min_seconds"`
			Max     float64 `json:"max_seconds"`
			Uniform bool    `json:"uniform"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("json output: %v\n%s", err, out)
	}
	if env.Data.Steps != 3 || env.Data.Min != 28*86400 || env.Data.Max != 31*86400 || env.Data.Uniform {
		t.Errorf("unexpected stats: %+v", env.Data)
	}
}

func TestStatsFromJSONL(t *testing.T) {
	setup(t)
	rows := mustRun(t, "", "-s", t0, "-p", "1h", "-n", "4", "--format", "jsonl")
	out := mustRun(t, rows, "stats", "--input", "jsonl", "--format", "csv")
	if !strings.Contains(out, "Steps,3\n") || !strings.Contains(out, "Uniform,true\n") {
		t.Errorf("unexpected stats:\n%s", out)
	}
}

func TestStatsChart(t *testing.T) {
	setup(t)
	out := mustRun(t, "", "stats", "-s", t0, "-p", "1mon", "-n", "4", "--chart")
	if got := lines(out); len(got) != 4 || !strings.Contains(got[2], "28d") {
		t.Errorf("expected a header and three bars:\n%s", out)
	}
}

// ─── preset / options ─────────────────────────────────────────────────────────

func TestPresetLifecycle(t *testing.T) {
	setup(t)
	mustRun(t, "", "preset", "save", "qh", "-s", t0, "-p", "15m", "-n", "3", "--description", "quarter hours")

	list := mustRun(t, "", "preset", "list", "--format", "csv")
	if !strings.Contains(list, "qh,15m,") || !strings.Contains(list, "quarter hours") {
		t.Errorf("preset missing from list:\n%s", list)
	}

	show := mustRun(t, "", "preset", "show", "qh")
	if !strings.Contains(show, "period: 15m") || !strings.Contains(show, "n_steps: 3") {
		t.Errorf("unexpected preset yaml:\n%s", show)
	}

	// Flags override saved values.
	if got := lines(mustRun(t, "", "--preset", "qh", "-n", "2")); len(got) != 2 {
		t.Errorf("expected -n to override the preset, got %v", got)
	}

	mustRun(t, "", "preset", "delete", "qh")
	if _, err := run(t, "", "--preset", "qh"); err == nil {
		t.Error("expected an error for a deleted preset")
	}
}

func TestPresetSaveRejectsUnsolvable(t *testing.T) {
	setup(t)
	if _, err := run(t, "", "preset", "save", "bad", "-S", t0); err == nil {
		t.Error("expected an error saving a stop-only preset")
	}
	if _, err := run(t, "", "preset", "save", "has space", "-s", t0); err == nil {
		t.Error("expected an error for an invalid preset name")
	}
}

func TestOptionsFileUnderFlags(t *testing.T) {
	dir := setup(t)
	p := filepath.Join(dir, "opts.yaml")
	yaml := "start_time: \"2010-01-01T00:00:00Z\"\nperiod: 1h\nn_steps: 5\n"
	if err := os.WriteFile(p, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	got := lines(mustRun(t, "", "--options", p, "-p", "30m"))
	if len(got) != 5 || got[1] != "2010-01-01T00:30:00Z" {
		t.Errorf("expected 5 half hours, got %v", got)
	}
}

// ─── db / config / version ────────────────────────────────────────────────────

func TestDBStatsAndCompact(t *testing.T) {
	setup(t)
	mustRun(t, "", "preset", "save", "hourly", "-s", t0, "-p", "1h")
	if out := mustRun(t, "", "db", "stats"); !strings.Contains(out, "presets") {
		t.Errorf("db stats should list the presets bucket:\n%s", out)
	}
	if out := mustRun(t, "", "db", "compact"); !strings.Contains(out, "Compaction complete") {
		t.Errorf("unexpected compact output:\n%s", out)
	}
	if _, err := run(t, "", "db", "clear"); err == nil {
		t.Error("expected db clear without --all or --bucket to fail")
	}
	mustRun(t, "", "db", "clear", "--bucket", "presets")
	if out := mustRun(t, "", "preset", "list"); !strings.Contains(out, "No presets saved.") {
		t.Errorf("presets should be gone after clear:\n%s", out)
	}
}

func TestConfigSetGet(t *testing.T) {
	setup(t)
	mustRun(t, "", "config", "set", "zone", "America/Denver")
	mustRun(t, "", "config", "set", "time_format", "3")
	out := mustRun(t, "", "config", "get")
	if !strings.Contains(out, "America/Denver") || !strings.Contains(out, "config.json") {
		t.Errorf("config get should show the file values:\n%s", out)
	}
	if _, err := run(t, "", "config", "set", "colour", "blue"); err == nil {
		t.Error("expected error for unknown config key")
	}
	if _, err := run(t, "", "config", "init"); err == nil {
		t.Error("config init should refuse to overwrite")
	}

	// The configured zone and time format now apply.
	got := mustRun(t, "", "-s", "2010-07-01 00:00", "-n", "1")
	if got != "2010-07-01T00:00:00.000-06:00\n" {
		t.Errorf("expected a Denver time with 3 fraction digits, got %q", got)
	}
}

func TestVersion(t *testing.T) {
	setup(t)
	if out := mustRun(t, "", "version"); !strings.HasPrefix(out, "timeseries "+Version) {
		t.Errorf("unexpected version output:\n%s", out)
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestKeepCloseErr(t *testing.T) {
	errClose := errors.New("disk full")
	finish := func(prior error) (err error) {
		defer keepCloseErr(&err, func() error { return errClose })
		return prior
	}
	if err := finish(nil); !errors.Is(err, errClose) {
		t.Errorf("close error should surface when nothing else failed, got %v", err)
	}
	errWrite := errors.New("write failed")
	if err := finish(errWrite); !errors.Is(err, errWrite) {
		t.Errorf("earlier error should win over the close error, got %v", err)
	}
}

// ─── Completion ───────────────────────────────────────────────────────────────

func TestCompletePeriodUnits(t *testing.T) {
	got, _ := completePeriod(nil, nil, "15mi")
	want := map[string]bool{"15min": true, "15mins": true, "15minute": true, "15minutes": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d completions, got %v", len(want), got)
	}
	for _, c := range got {
		if !want[c] {
			t.Errorf("unexpected completion %q", c)
		}
	}

	got, _ = completePeriod(nil, nil, "1h3")
	if len(got) != len(period.Aliases()) || got[0] != "1h3"+period.Aliases()[0] {
		t.Errorf("a bare magnitude should offer every unit, got %v", got)
	}
}

func TestCompletePeriodFlag(t *testing.T) {
	setup(t)
	out := mustRun(t, "", cobra.ShellCompRequestCmd, "-p", "2mo")
	if !strings.Contains(out, "2mon\n") || !strings.Contains(out, "2month\n") {
		t.Errorf("expected month completions:\n%s", out)
	}

	out = mustRun(t, "", cobra.ShellCompRequestCmd, "snap", "-p", "1h")
	if !strings.Contains(out, "1hr\n") || !strings.Contains(out, "1hours\n") {
		t.Errorf("snap --period should complete units too:\n%s", out)
	}
}
