package config

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/timeseries/internal/grid"
	"github.com/derickschaefer/timeseries/internal/period"
)

// Options are series parameters read from a YAML file given with --options.
// Only the keys below are accepted; anything else is an error.
//
//	start_time: 2010-01-01T00:00:00Z
//	period: 15m
//	n_steps: 96
//	snap_start_time: previous
//
// Times stay as text so they can be parsed in the configured zone. The same
// struct is stored as JSON for presets.
type Options struct {
	StartTime     string         `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	StopTime      string         `yaml:"stop_time,omitempty" json:"stop_time,omitempty"`
	Period        *period.Period `yaml:"period,omitempty" json:"period,omitempty"`
	NSteps        *int           `yaml:"n_steps,omitempty" json:"n_steps,omitempty"`
	Signature     []string       `yaml:"signature,omitempty" json:"signature,omitempty"`
	SnapStartTime grid.Direction `yaml:"snap_start_time,omitempty" json:"snap_start_time,omitempty"`
	SnapStopTime  grid.Direction `yaml:"snap_stop_time,omitempty" json:"snap_stop_time,omitempty"`
}

// LoadOptions reads an options file.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading options file %s", path)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return nil, errors.Wrapf(err, "options file %s", path)
	}
	return opts, nil
}

// ParseOptions decodes options YAML, rejecting unknown keys.
func ParseOptions(data []byte) (*Options, error) {
	var opts Options
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decoding options")
	}
	return &opts, nil
}

// MarshalOptions encodes opts as YAML, the inverse of ParseOptions.
func MarshalOptions(opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(opts); err != nil {
		return nil, errors.Wrap(err, "encoding options")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding options")
	}
	return buf.Bytes(), nil
}

// Merge returns o with every field set in over replacing its counterpart.
func (o Options) Merge(over Options) Options {
	if over.StartTime != "" {
		o.StartTime = over.StartTime
	}
	if over.StopTime != "" {
		o.StopTime = over.StopTime
	}
	if over.Period != nil {
		o.Period = over.Period
	}
	if over.NSteps != nil {
		o.NSteps = over.NSteps
	}
	if len(over.Signature) > 0 {
		o.Signature = over.Signature
	}
	if over.SnapStartTime != grid.None {
		o.SnapStartTime = over.SnapStartTime
	}
	if over.SnapStopTime != grid.None {
		o.SnapStopTime = over.SnapStopTime
	}
	return o
}
