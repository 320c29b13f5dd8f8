// Package countdown drives the next-prayer resolver once per second and
// hands each result to a set of sinks.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimeTable yields the parsed prayer table of a calendar date.
// *provider.Calendar satisfies it.
type TimeTable interface {
	Day(ctx context.Context, date time.Time) (*provider.Day, error)
}

// Snapshot is the immutable input of one resolver run: today's table and
// tomorrow's Fajr for a single calendar date.
type Snapshot struct {
	Date         time.Time // midnight in Zone
	Zone         *time.Location
	Today        prayer.DayTimings
	TomorrowFajr *prayer.TimeOfDay
	LoadedAt     time.Time
	Partial      bool // some provider data was missing when loaded
}

// Resolve computes the next prayer at now. A nil snapshot is undetermined.
func (s *Snapshot) Resolve(now time.Time) prayer.Resolution {
	if s == nil {
		return prayer.Resolution{State: prayer.Undetermined}
	}
	return prayer.Resolve(now.In(s.Zone), s.Today, s.TomorrowFajr)
}

// Covers reports whether now falls on the snapshot's calendar date.
func (s *Snapshot) Covers(now time.Time) bool {
	if s == nil {
		return false
	}
	return sameDate(now.In(s.Zone), s.Date)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today returns the table for the date it is at now in the location's own
// time zone, which may differ from now's.
func Today(ctx context.Context, table TimeTable, now time.Time) (*provider.Day, error) {
	day, err := table.Day(ctx, now)
	if err != nil {
		return nil, err
	}
	if day.Zone != nil && !sameDate(now.In(day.Zone), day.Date) {
		return table.Day(ctx, now.In(day.Zone))
	}
	return day, nil
}

// LoadSnapshot fetches today's table and tomorrow's Fajr for now. The
// returned snapshot is always usable; provider failures leave the
// corresponding part empty and are reported through the error.
func LoadSnapshot(ctx context.Context, table TimeTable, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Date:     midnight(now),
		Zone:     now.Location(),
		LoadedAt: now,
	}

	var errs []error

	today, err := Today(ctx, table, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("today: %w", err))
	} else {
		snap.Date = today.Date
		if today.Zone != nil {
			snap.Zone = today.Zone
		}
		snap.Today = today.Timings
	}

	tomorrow, err := table.Day(ctx, snap.Date.AddDate(0, 0, 1))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("tomorrow: %w", err))
	default:
		if fajr, ok := tomorrow.Timings.Fajr(); ok {
			snap.TomorrowFajr = &fajr
		} else {
			errs = append(errs, errors.New("tomorrow: no Fajr time"))
		}
	}

	snap.Partial = len(errs) > 0
	return snap, errors.Join(errs...)
}
