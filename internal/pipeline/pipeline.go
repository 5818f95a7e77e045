// Package pipeline provides helpers for reading timestamps and data lines
// from stdin and for writing series rows as JSONL, the canonical pipe format.
package pipeline

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/derickschaefer/timeseries/internal/model"
	"github.com/derickschaefer/timeseries/internal/render"
	"github.com/derickschaefer/timeseries/internal/util"
)

// ErrNoInput is returned when stdin held nothing usable.
var ErrNoInput = errors.New("no input read (is stdin empty?)")

const maxLine = 1024 * 1024

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLine), maxLine)
	return scanner
}

// skip reports whether a trimmed line carries no content.
func skip(line string) bool {
	return line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//")
}

// ReadLines returns every non-blank line of r with surrounding whitespace
// removed. Blank lines carry no data and are dropped.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := newScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading input")
	}
	return lines, nil
}

// ReadTimes parses one timestamp per line with parse. Comment lines (# or //)
// and blank lines are skipped. Every bad line is reported, not just the first;
// the times that did parse are returned alongside the error.
func ReadTimes(r io.Reader, parse func(string) (time.Time, error)) ([]time.Time, error) {
	scanner := newScanner(r)
	var (
		times []time.Time
		errs  util.MultiError
	)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if skip(line) {
			continue
		}
		t, err := parse(line)
		if err != nil {
			errs.Add(errors.Wrapf(err, "line %d", lineNum))
			continue
		}
		times = append(times, t)
	}
	if err := scanner.Err(); err != nil {
		return times, errors.Wrap(err, "reading input")
	}
	if err := errs.Err(); err != nil {
		return times, err
	}
	if len(times) == 0 {
		return nil, ErrNoInput
	}
	return times, nil
}

// jsonlRow mirrors the record written by WriteJSONL.
type jsonlRow struct {
	Index    int     `json:"index"`
	Time     string  `json:"time"`
	LastTime *string `json:"last_time"`
	Data     *string `json:"data"`
}

// ReadRows reads JSONL series rows, as written by WriteJSONL, parsing each
// time with parse.
func ReadRows(r io.Reader, parse func(string) (time.Time, error)) ([]model.Row, error) {
	scanner := newScanner(r)
	var rows []model.Row
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if skip(line) {
			continue
		}
		var rec jsonlRow
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid JSON", lineNum)
		}
		t, err := parse(rec.Time)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: time", lineNum)
		}
		row := model.Row{Index: rec.Index, Time: t, Data: rec.Data}
		if rec.LastTime != nil {
			last, err := parse(*rec.LastTime)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: last_time", lineNum)
			}
			row.LastTime = &last
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading input")
	}
	if len(rows) == 0 {
		return nil, ErrNoInput
	}
	return rows, nil
}

// WriteJSONL writes rows as JSONL to w, formatting times with format.
func WriteJSONL(w io.Writer, rows []model.Row, format func(time.Time) string) error {
	rw, err := render.NewRowWriter(w, render.FormatJSONL, render.Options{Time: format})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := rw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	return isCharDevice(os.Stdout)
}

// StdinIsTTY returns true if stdin is a terminal, i.e. nothing is piped in.
func StdinIsTTY() bool {
	return isCharDevice(os.Stdin)
}

func isCharDevice(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
