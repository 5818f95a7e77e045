// Package model defines the canonical data types rendered by every command:
// series rows, step statistics, snap results, and the result envelope.
package model

import (
	"time"
)

// ─── Series Types ─────────────────────────────────────────────────────────────

// Row is one emitted timestamp of a series. LastTime is the previous
// timestamp, absent on the first row. Data and LastData carry the pair of
// input lines collate keys by the timestamp.
type Row struct {
	Index    int        `json:"index"`
	Time     time.Time  `json:"time"`
	LastTime *time.Time `json:"last_time,omitempty"`
	Data     *string    `json:"data,omitempty"`
	LastData *string    `json:"last_data,omitempty"`
}

// SeriesInfo describes the resolved parameters a series was built from.
type SeriesInfo struct {
	Mode      string     `json:"mode"`
	Zone      string     `json:"zone"`
	StartTime time.Time  `json:"start_time"`
	StopTime  *time.Time `json:"stop_time,omitempty"`
	Period    string     `json:"period"`
	NSteps    *int       `json:"n_steps,omitempty"`
}

// SeriesData bundles generated rows with the parameters that produced them.
type SeriesData struct {
	Info SeriesInfo `json:"info"`
	Rows []Row      `json:"rows"`
}

// StepCount is the answer to "how many steps from start to stop".
type StepCount struct {
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
	Period    string    `json:"period"`
	NSteps    int       `json:"n_steps"`
}

// SnapResult is the grid boundary found for one input time.
type SnapResult struct {
	Input    time.Time `json:"input"`
	Period   string    `json:"period"`
	Previous time.Time `json:"previous"`
	Next     time.Time `json:"next"`
}

// StepStats summarises the elapsed seconds between consecutive timestamps.
// A calendar period yields uneven steps; Distinct counts each step length.
type StepStats struct {
	Info     SeriesInfo      `json:"info"`
	Steps    int             `json:"steps"`
	Min      float64         `json:"min_seconds"`
	Max      float64         `json:"max_seconds"`
	Mean     float64         `json:"mean_seconds"`
	Median   float64         `json:"median_seconds"`
	Std      float64         `json:"std_seconds"`
	Approx   float64         `json:"approx_seconds"`
	Total    float64         `json:"total_seconds"`
	Uniform  bool            `json:"uniform"`
	Fit      StepFit         `json:"fit"`
	Distinct []StepFrequency `json:"distinct"`
}

// StepFit is a least-squares line through (index, elapsed seconds since the
// first timestamp). Slope is the effective step length.
type StepFit struct {
	Slope     float64 `json:"slope_seconds"`
	Intercept float64 `json:"intercept_seconds"`
	R2        float64 `json:"r2"`
}

// StepFrequency counts how often one step length occurs.
type StepFrequency struct {
	Seconds float64 `json:"seconds"`
	Count   int     `json:"count"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSeries    = "series"
	KindStepCount = "step_count"
	KindSnap      = "snap"
	KindStepStats = "step_stats"
	KindPreset    = "preset"
	KindTable     = "table"
)

// Table is a generic header + rows payload for listings.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}
