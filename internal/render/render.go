// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string. Series rows can also be streamed one at
// a time through a RowWriter for the line-oriented formats.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/timeseries/internal/model"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
	FormatLine  = "line"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatLine, FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// DefaultLineFormat prints the timestamp alone.
const DefaultLineFormat = "{time}"

// ErrUnknownFormat is returned for a --format value outside Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Options control how times and lines are printed.
type Options struct {
	// Time formats every timestamp; nil means RFC 3339.
	Time func(time.Time) string
	// Line is the template for FormatLine; empty means DefaultLineFormat.
	Line string
}

func (o Options) timeString(t time.Time) string {
	if o.Time == nil {
		return t.Format(time.RFC3339)
	}
	return o.Time(t)
}

// ValidateFormat reports whether format is one of Formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownFormat, "%q (valid: %s)", format, strings.Join(Formats, ", "))
}

// Streamable reports whether format can be written row by row.
func Streamable(format string) bool {
	switch format {
	case FormatLine, FormatJSONL, FormatCSV, FormatTSV:
		return true
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string, o Options) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL, FormatCSV, FormatTSV, FormatLine:
		if sd, ok := result.Data.(*model.SeriesData); ok {
			return renderRows(w, sd.Rows, format, o)
		}
		if format == FormatJSONL {
			return renderJSONL(w, result)
		}
		if format == FormatLine {
			return renderPlain(w, result, o)
		}
		return renderDelimited(w, result, delimiter(format), o)
	case FormatMD:
		return renderMarkdown(w, result, o)
	default:
		return renderTable(w, result, o)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string, o Options) error {
	if path == "" {
		return Render(os.Stdout, result, format, o)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer f.Close()
	return Render(f, result, format, o)
}

func delimiter(format string) rune {
	if format == FormatTSV {
		return '\t'
	}
	return ','
}

// ─── Row streaming ────────────────────────────────────────────────────────────

// RowWriter writes series rows one at a time in a streamable format.
type RowWriter struct {
	w      io.Writer
	format string
	opts   Options
	enc    *json.Encoder
	cw     *csv.Writer
	header bool
}

// NewRowWriter returns a RowWriter for format, which must be Streamable.
func NewRowWriter(w io.Writer, format string, o Options) (*RowWriter, error) {
	if !Streamable(format) {
		return nil, errors.Newf("format %q cannot be streamed", format)
	}
	rw := &RowWriter{w: w, format: format, opts: o}
	switch format {
	case FormatJSONL:
		rw.enc = json.NewEncoder(w)
	case FormatCSV, FormatTSV:
		rw.cw = csv.NewWriter(w)
		rw.cw.Comma = delimiter(format)
	}
	return rw, nil
}

// jsonlRow is the canonical JSONL record for a series timestamp.
type jsonlRow struct {
	Index    int     `json:"index"`
	Time     string  `json:"time"`
	LastTime *string `json:"last_time"`
	Data     *string `json:"data,omitempty"`
	LastData *string `json:"last_data,omitempty"`
}

// Write emits one row. CSV and TSV output are flushed per row so throttled
// output appears as it is produced.
func (rw *RowWriter) Write(row model.Row) error {
	switch rw.format {
	case FormatJSONL:
		rec := jsonlRow{
			Index:    row.Index,
			Time:     rw.opts.timeString(row.Time),
			Data:     row.Data,
			LastData: row.LastData,
		}
		if row.LastTime != nil {
			s := rw.opts.timeString(*row.LastTime)
			rec.LastTime = &s
		}
		return rw.enc.Encode(rec)
	case FormatCSV, FormatTSV:
		if !rw.header {
			rw.header = true
			if err := rw.cw.Write([]string{"index", "time", "last_time", "data", "last_data"}); err != nil {
				return err
			}
		}
		if err := rw.cw.Write(rw.fields(row)); err != nil {
			return err
		}
		rw.cw.Flush()
		return rw.cw.Error()
	default:
		_, err := fmt.Fprintln(rw.w, rw.Line(row))
		return err
	}
}

// Line expands the line template for row. Tokens: {time}, {last_time},
// {index}, {data}, {last_data}.
func (rw *RowWriter) Line(row model.Row) string {
	tmpl := rw.opts.Line
	if tmpl == "" {
		tmpl = DefaultLineFormat
	}
	f := rw.fields(row)
	return strings.NewReplacer(
		"{index}", f[0],
		"{time}", f[1],
		"{last_time}", f[2],
		"{data}", f[3],
		"{last_data}", f[4],
	).Replace(tmpl)
}

func (rw *RowWriter) fields(row model.Row) []string {
	last := ""
	if row.LastTime != nil {
		last = rw.opts.timeString(*row.LastTime)
	}
	return []string{strconv.Itoa(row.Index), rw.opts.timeString(row.Time), last, deref(row.Data), deref(row.LastData)}
}

func renderRows(w io.Writer, rows []model.Row, format string, o Options) error {
	rw, err := NewRowWriter(w, format, o)
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

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case []model.SnapResult:
		for _, r := range data {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case *model.Table:
		for _, row := range data.Rows {
			rec := map[string]string{}
			for i, h := range data.Header {
				if i < len(row) {
					rec[strings.ToLower(h)] = row[i]
				}
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

// tabular flattens a result into a header and string rows. ok is false when
// the payload has no tabular shape.
func tabular(result *model.Result, o Options) (header []string, rows [][]string, ok bool) {
	switch data := result.Data.(type) {
	case *model.SeriesData:
		header = []string{"INDEX", "TIME", "LAST TIME"}
		withData := false
		for _, r := range data.Rows {
			if r.Data != nil {
				withData = true
				break
			}
		}
		if withData {
			header = append(header, "LAST DATA", "DATA")
		}
		for _, r := range data.Rows {
			last := ""
			if r.LastTime != nil {
				last = o.timeString(*r.LastTime)
			}
			row := []string{strconv.Itoa(r.Index), o.timeString(r.Time), last}
			if withData {
				row = append(row, deref(r.LastData), deref(r.Data))
			}
			rows = append(rows, row)
		}
		return header, rows, true
	case *model.StepCount:
		return []string{"FIELD", "VALUE"}, [][]string{
			{"Start", o.timeString(data.StartTime)},
			{"Stop", o.timeString(data.StopTime)},
			{"Period", data.Period},
			{"Steps", strconv.Itoa(data.NSteps)},
		}, true
	case []model.SnapResult:
		header = []string{"INPUT", "PERIOD", "PREVIOUS", "NEXT"}
		for _, r := range data {
			rows = append(rows, []string{
				o.timeString(r.Input), r.Period, o.timeString(r.Previous), o.timeString(r.Next),
			})
		}
		return header, rows, true
	case *model.StepStats:
		rows = [][]string{
			{"Mode", data.Info.Mode},
			{"Start", o.timeString(data.Info.StartTime)},
			{"Period", data.Info.Period},
			{"Steps", strconv.Itoa(data.Steps)},
			{"Approx (s)", formatSeconds(data.Approx)},
			{"Min (s)", formatSeconds(data.Min)},
			{"Max (s)", formatSeconds(data.Max)},
			{"Mean (s)", formatSeconds(data.Mean)},
			{"Median (s)", formatSeconds(data.Median)},
			{"Std (s)", formatSeconds(data.Std)},
			{"Total (s)", formatSeconds(data.Total)},
			{"Uniform", strconv.FormatBool(data.Uniform)},
			{"Fit slope (s)", formatSeconds(data.Fit.Slope)},
			{"Fit R2", strconv.FormatFloat(data.Fit.R2, 'f', 6, 64)},
		}
		for _, d := range data.Distinct {
			rows = append(rows, []string{"Step " + formatSeconds(d.Seconds) + "s", strconv.Itoa(d.Count)})
		}
		return []string{"FIELD", "VALUE"}, rows, true
	case *model.Table:
		return data.Header, data.Rows, true
	}
	return nil, nil, false
}

func renderTable(w io.Writer, result *model.Result, o Options) error {
	header, rows, ok := tabular(result, o)
	if !ok {
		// Fallback: JSON
		return renderJSON(w, result)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune, o Options) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	header, rows, ok := tabular(result, o)
	if ok {
		lower := make([]string, len(header))
		for i, h := range header {
			lower[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		_ = cw.Write(lower)
		for _, row := range rows {
			_ = cw.Write(row)
		}
	} else {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Line ─────────────────────────────────────────────────────────────────────

// renderPlain prints non-series payloads one row per line, space separated.
func renderPlain(w io.Writer, result *model.Result, o Options) error {
	_, rows, ok := tabular(result, o)
	if !ok {
		b, err := json.Marshal(result.Data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, " ")); err != nil {
			return err
		}
	}
	return nil
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result, o Options) error {
	header, rows, ok := tabular(result, o)
	if !ok {
		return renderJSON(w, result)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	seps := make([]string, len(header))
	for i := range seps {
		seps[i] = "----"
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatSeconds trims trailing zeros but keeps at least one decimal place.
func formatSeconds(v float64) string {
	s := strings.TrimRight(strconv.FormatFloat(v, 'f', 6, 64), "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
