// Package app wires together configuration, the calendar clock, the local
// store, and logging into a single Deps struct that commands receive at
// runtime.
package app

import (
	"context"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/derickschaefer/timeseries/internal/calendar"
	"github.com/derickschaefer/timeseries/internal/config"
	"github.com/derickschaefer/timeseries/internal/store"
	"github.com/derickschaefer/timeseries/internal/util"
)

// Deps holds all runtime dependencies injected into command Run functions.
// The store is opened on first use so commands that never touch presets
// never create a database file.
type Deps struct {
	Config   *config.Config
	Clock    calendar.Clock
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time

	store *store.Store
}

// New builds a Deps from resolved config. Log lines go to logOut.
func New(cfg *config.Config, logOut io.Writer) (*Deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := calendar.LoadLocation(cfg.Zone)
	if err != nil {
		return nil, err
	}
	return &Deps{
		Config:   cfg,
		Location: loc,
		Logger:   NewLogger(logOut, cfg),
		Now:      time.Now,
	}, nil
}

// NewLogger returns a text logger at Debug with --debug, Info with
// --verbose, and Warn otherwise.
func NewLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case cfg.Debug:
		level = slog.LevelDebug
	case cfg.Verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// RequireStore opens the preset store at Config.DBPath, once.
func (d *Deps) RequireStore() (*store.Store, error) {
	if d.store != nil {
		return d.store, nil
	}
	if d.Config.DBPath == "" {
		return nil, errors.New("no db path configured (set db_path or TIMESERIES_DB_PATH)")
	}
	s, err := store.Open(d.Config.DBPath, d.Logger)
	if err != nil {
		return nil, err
	}
	d.store = s
	return s, nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.store == nil {
		return nil
	}
	err := d.store.Close()
	d.store = nil
	return err
}

// ParseTime parses s in the configured zone. An empty layout accepts the
// usual RFC 3339 / ISO 8601 shapes.
func (d *Deps) ParseTime(s, layout string) (time.Time, error) {
	return util.ParseTime(s, d.Location, layout, d.Now)
}

// ─── Throttle ─────────────────────────────────────────────────────────────────

// Throttle paces output to one row per interval. A nil Throttle never waits.
type Throttle struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewThrottle builds a Throttle from a --throttle setting: "" for none, a
// duration such as "500ms", or "realtime" to wait stepSeconds (the series'
// real step length) between rows.
func NewThrottle(setting string, stepSeconds float64) (*Throttle, error) {
	var interval time.Duration
	switch setting {
	case "":
		return nil, nil
	case "realtime":
		interval = time.Duration(math.Abs(stepSeconds) * float64(time.Second))
	default:
		d, err := time.ParseDuration(setting)
		if err != nil {
			return nil, errors.Wrapf(err, "throttle %q", setting)
		}
		interval = d
	}
	if interval <= 0 {
		return nil, nil
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1), interval: interval}, nil
}

// Interval is the pause between rows.
func (t *Throttle) Interval() time.Duration {
	if t == nil {
		return 0
	}
	return t.interval
}

// Wait blocks until the next row may be written or ctx is cancelled. The
// first call returns immediately.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
