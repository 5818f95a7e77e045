package pipeline_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/pipeline"
	"github.com/derickschaefer/timeseries/internal/util"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// lines joins lines with newlines and appends a trailing newline.
func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func parseUTC(s string) (time.Time, error) {
	return util.ParseTime(s, time.UTC, "", nil)
}

func rfc3339(t time.Time) string { return t.Format(time.RFC3339) }

func mkrows(n int) []model.Row {
	t0 := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{Index: i, Time: t0.Add(time.Duration(i) * time.Hour)}
		if i > 0 {
			last := rows[i-1].Time
			rows[i].LastTime = &last
		}
	}
	return rows
}

// ─── ReadLines ────────────────────────────────────────────────────────────────

func TestReadLinesTrimsAndSkipsBlanks(t *testing.T) {
	input := "a\n\n   \n  b  \n# c\n"
	got, err := pipeline.ReadLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(got, "|") != "a|b|# c" {
		t.Errorf("unexpected lines %q", got)
	}
}

func TestReadLinesEmpty(t *testing.T) {
	got, err := pipeline.ReadLines(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no lines, got %q", got)
	}
}

func TestReadLinesWithoutTrailingNewline(t *testing.T) {
	got, err := pipeline.ReadLines(strings.NewReader("x\ny"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1] != "y" {
		t.Errorf("last line should be read, got %q", got)
	}
}

// ─── ReadTimes ────────────────────────────────────────────────────────────────

func TestReadTimesBasic(t *testing.T) {
	input := lines(
		"2010-01-01T00:07:00Z",
		"# comment",
		"",
		"2010-01-01 00:52",
	)
	times, err := pipeline.ReadTimes(strings.NewReader(input), parseUTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("expected 2 times, got %d", len(times))
	}
	if times[1].Minute() != 52 {
		t.Errorf("second time: expected minute 52, got %v", times[1])
	}
}

func TestReadTimesReportsEveryBadLine(t *testing.T) {
	input := lines("2010-01-01", "soon", "2010-01-02", "later")
	times, err := pipeline.ReadTimes(strings.NewReader(input), parseUTC)
	if err == nil {
		t.Fatal("expected an error for bad lines")
	}
	if len(times) != 2 {
		t.Errorf("good lines should still be returned: got %d", len(times))
	}
	msg := err.Error()
	if !strings.Contains(msg, "line 2") || !strings.Contains(msg, "line 4") {
		t.Errorf("every bad line should be named, got %q", msg)
	}
	var multi *util.MultiError
	if !errors.As(err, &multi) || len(multi.Errors) != 2 {
		t.Errorf("expected a MultiError with 2 entries, got %v", err)
	}
	if !errors.Is(err, util.ErrInvalidTime) {
		t.Error("errors.Is should reach the parse error")
	}
}

func TestReadTimesEmptyInput(t *testing.T) {
	_, err := pipeline.ReadTimes(strings.NewReader("\n# only comments\n"), parseUTC)
	if !errors.Is(err, pipeline.ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

// ─── WriteJSONL / ReadRows ────────────────────────────────────────────────────

func TestWriteJSONLOneRecordPerRow(t *testing.T) {
	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, mkrows(3), rfc3339); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	out := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(out) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(out))
	}
	if !strings.Contains(out[0], `"last_time":null`) {
		t.Errorf("first row should have a null last_time: %s", out[0])
	}
	if !strings.Contains(out[2], `"time":"2010-01-01T02:00:00Z"`) {
		t.Errorf("unexpected third row: %s", out[2])
	}
}

func TestReadRowsReadsWhatWriteJSONLWrites(t *testing.T) {
	var buf bytes.Buffer
	want := mkrows(4)
	if err := pipeline.WriteJSONL(&buf, want, rfc3339); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	got, err := pipeline.ReadRows(&buf, parseUTC)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Index != want[i].Index || !got[i].Time.Equal(want[i].Time) {
			t.Errorf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
		if (got[i].LastTime == nil) != (want[i].LastTime == nil) {
			t.Errorf("row %d: last_time presence changed", i)
		}
	}
}

func TestReadRowsKeepsData(t *testing.T) {
	input := lines(`{"index":0,"time":"2010-01-01T00:00:00Z","last_time":null,"data":"alpha"}`)
	rows, err := pipeline.ReadRows(strings.NewReader(input), parseUTC)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if rows[0].Data == nil || *rows[0].Data != "alpha" {
		t.Errorf("data should be kept, got %+v", rows[0])
	}
}

func TestReadRowsInvalidJSON(t *testing.T) {
	input := lines(`{"index":0,"time":"2010-01-01T00:00:00Z"}`, `{not json`)
	_, err := pipeline.ReadRows(strings.NewReader(input), parseUTC)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected a line 2 error, got %v", err)
	}
}

func TestReadRowsBadTime(t *testing.T) {
	input := lines(`{"index":0,"time":"whenever"}`)
	_, err := pipeline.ReadRows(strings.NewReader(input), parseUTC)
	if !errors.Is(err, util.ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
}

func TestReadRowsEmpty(t *testing.T) {
	_, err := pipeline.ReadRows(strings.NewReader(""), parseUTC)
	if !errors.Is(err, pipeline.ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}
