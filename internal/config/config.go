// Package config handles loading and resolving timeseries configuration.
// Resolution order (last layer wins):
//  1. config.json in the current working directory
//  2. Environment variables TIMESERIES_ZONE, TIMESERIES_DB_PATH, TIMESERIES_FORMAT
//  3. CLI flags
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultConfigFile = "config.json"
	DefaultFormat     = "line"
	DefaultZone       = "UTC"
	DefaultTimeFormat = "rfc3339"
	EnvZone           = "TIMESERIES_ZONE"
	EnvDBPath         = "TIMESERIES_DB_PATH"
	EnvFormat         = "TIMESERIES_FORMAT"
)

// File is the on-disk representation of config.json.
type File struct {
	Zone          string `json:"zone"`
	DefaultFormat string `json:"default_format"`
	TimeFormat    string `json:"time_format"`
	Throttle      string `json:"throttle"`
	DBPath        string `json:"db_path"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Zone       string
	Format     string
	TimeFormat string
	Throttle   string // "", a duration such as "500ms", or "realtime"
	DBPath     string
	ConfigPath string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagZone is the value of --zone (empty string if not set).
func Load(flagZone string) (*Config, error) {
	cfg := &Config{
		Zone:       DefaultZone,
		Format:     DefaultFormat,
		TimeFormat: DefaultTimeFormat,
	}

	// Layer 1: config.json (lowest priority)
	f, path, err := loadFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvZone); v != "" {
		cfg.Zone = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}

	// Layer 3: CLI flag (highest priority)
	if flagZone != "" {
		cfg.Zone = flagZone
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".timeseries", "timeseries.db")
		}
	}

	return cfg, nil
}

// Validate checks values that are cheap to check before any command runs.
func (c *Config) Validate() error {
	switch c.Throttle {
	case "", "realtime":
	default:
		d, err := time.ParseDuration(c.Throttle)
		if err != nil {
			return errors.Newf("throttle %q: want a duration such as 500ms, or realtime", c.Throttle)
		}
		if d < 0 {
			return errors.Newf("throttle %q must not be negative", c.Throttle)
		}
	}
	if c.Zone == "" {
		return errors.New("zone must not be empty")
	}
	return nil
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// ReadFile parses the config file at path. A missing file yields an error
// satisfying errors.Is(err, os.ErrNotExist).
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "config.json not found at %s", path)
		}
		return nil, errors.Wrap(err, "reading config.json")
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing config.json")
	}
	return &f, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.Zone != "" {
		cfg.Zone = f.Zone
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.TimeFormat != "" {
		cfg.TimeFormat = f.TimeFormat
	}
	if f.Throttle != "" {
		cfg.Throttle = f.Throttle
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `timeseries config init`.
func Template() File {
	return File{
		Zone:          DefaultZone,
		DefaultFormat: DefaultFormat,
		TimeFormat:    DefaultTimeFormat,
	}
}

// Set assigns one config.json key. It backs `timeseries config set`.
func (f *File) Set(key, val string) error {
	switch key {
	case "zone":
		f.Zone = val
	case "default_format", "format":
		f.DefaultFormat = val
	case "time_format":
		f.TimeFormat = val
	case "throttle":
		f.Throttle = val
	case "db_path":
		f.DBPath = val
	default:
		return errors.Newf("unknown config key: %q\n\nValid keys: zone, default_format, time_format, throttle, db_path", key)
	}
	return nil
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
