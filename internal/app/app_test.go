package app_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/timeseries/internal/app"
	"github.com/derickschaefer/timeseries/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Zone:       "MST7MDT",
		Format:     config.DefaultFormat,
		TimeFormat: config.DefaultTimeFormat,
		DBPath:     filepath.Join(t.TempDir(), "ts.db"),
	}
}

func TestNewLoadsZone(t *testing.T) {
	deps, err := app.New(testConfig(t), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "MST7MDT", deps.Location.String())

	got, err := deps.ParseTime("2010-11-07 01:00", "")
	require.NoError(t, err)
	name, _ := got.Zone()
	assert.Equal(t, "MDT", name)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Zone = "Nowhere/Special"
	_, err := app.New(cfg, &bytes.Buffer{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Throttle = "fast"
	_, err = app.New(cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	quiet := app.NewLogger(&bytes.Buffer{}, cfg)
	assert.False(t, quiet.Enabled(ctx, slog.LevelInfo))
	assert.True(t, quiet.Enabled(ctx, slog.LevelWarn))

	cfg.Verbose = true
	assert.True(t, app.NewLogger(&bytes.Buffer{}, cfg).Enabled(ctx, slog.LevelInfo))
	assert.False(t, app.NewLogger(&bytes.Buffer{}, cfg).Enabled(ctx, slog.LevelDebug))

	cfg.Debug = true
	var buf bytes.Buffer
	logger := app.NewLogger(&buf, cfg)
	logger.Debug("solver mode", "mode", "start_period_steps")
	assert.Contains(t, buf.String(), "mode=start_period_steps")
}

func TestRequireStoreIsLazy(t *testing.T) {
	cfg := testConfig(t)
	deps, err := app.New(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = os.Stat(cfg.DBPath)
	assert.True(t, os.IsNotExist(err), "db should not exist before RequireStore")

	s1, err := deps.RequireStore()
	require.NoError(t, err)
	s2, err := deps.RequireStore()
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	_, err = os.Stat(cfg.DBPath)
	assert.NoError(t, err)

	require.NoError(t, deps.Close())
	require.NoError(t, deps.Close())
}

func TestRequireStoreNeedsPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = ""
	deps, err := app.New(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = deps.RequireStore()
	assert.Error(t, err)
}

func TestNewThrottle(t *testing.T) {
	th, err := app.NewThrottle("", 60)
	require.NoError(t, err)
	assert.Nil(t, th)
	assert.NoError(t, th.Wait(context.Background()), "nil throttle never waits")

	th, err = app.NewThrottle("250ms", 60)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, th.Interval())

	th, err = app.NewThrottle("realtime", -1.5)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, th.Interval())

	th, err = app.NewThrottle("realtime", 0)
	require.NoError(t, err)
	assert.Nil(t, th)

	_, err = app.NewThrottle("soon", 1)
	assert.Error(t, err)
}

func TestThrottlePaces(t *testing.T) {
	th, err := app.NewThrottle("20ms", 0)
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()
	for range 3 {
		require.NoError(t, th.Wait(ctx))
	}
	// The first wait is free; the next two each take an interval.
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestThrottleCancelled(t *testing.T) {
	th, err := app.NewThrottle("1h", 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, th.Wait(ctx))
	cancel()
	assert.Error(t, th.Wait(ctx))
}
