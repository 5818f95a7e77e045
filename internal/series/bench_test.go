// Benchmarks for the hot paths of series generation:
//
//	go test ./internal/series/ -bench=. -benchmem -count=10 | tee bench.txt
//	benchstat bench.txt
package series_test

import (
	"testing"
	"time"

	"github.com/derickschaefer/timeseries/internal/calendar"
	"github.com/derickschaefer/timeseries/internal/period"
	"github.com/derickschaefer/timeseries/internal/series"
)

func benchZone(b *testing.B) *time.Location {
	b.Helper()
	loc, err := calendar.LoadLocation("America/Denver")
	if err != nil {
		b.Fatal(err)
	}
	return loc
}

// ─── Fixed periods ────────────────────────────────────────────────────────────

func BenchmarkAtFixed(b *testing.B) {
	s := series.New(clock, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), period.MustParse("15m"))
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		_ = s.At(i % 100000)
	}
}

func BenchmarkAllFixed10k(b *testing.B) {
	s := series.New(clock, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), period.MustParse("1s"), series.WithSteps(10000))
	b.ReportAllocs()
	for b.Loop() {
		for range s.All() {
		}
	}
}

// ─── Calendar periods ─────────────────────────────────────────────────────────

func BenchmarkAtMonthlyInZone(b *testing.B) {
	s := series.New(clock, time.Date(2010, 1, 31, 0, 0, 0, 0, benchZone(b)), period.MustParse("1mon"))
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		_ = s.At(i % 1200)
	}
}

func BenchmarkStepsToDaily(b *testing.B) {
	loc := benchZone(b)
	s := series.New(clock, time.Date(2000, 1, 1, 0, 0, 0, 0, loc), period.MustParse("1d"))
	stop := time.Date(2030, 1, 1, 0, 0, 0, 0, loc)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.StepsTo(stop); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCursorDaily(b *testing.B) {
	s := series.New(clock, time.Date(2010, 1, 1, 0, 0, 0, 0, benchZone(b)), period.MustParse("1d"), series.WithSteps(3650))
	b.ReportAllocs()
	for b.Loop() {
		c := series.NewCursor(s, series.RequireLastTime())
		for {
			if _, ok := c.Time(); !ok {
				break
			}
			c.Advance()
		}
	}
}
