package prayer

import (
	"fmt"
	"time"
)

// State describes what a Resolution carries.
type State int

const (
	// Undetermined means no timing data was available.
	Undetermined State = iota
	// Upcoming means the prayer is strictly in the future.
	Upcoming
	// Due means the prayer's instant falls within the current second.
	Due
)

func (s State) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case Due:
		return "due"
	default:
		return "undetermined"
	}
}

// Markers used in place of a countdown.
const (
	MarkerNow          = "now"
	MarkerUndetermined = "undetermined"
)

// Resolution is the next prayer relative to a reference instant.
type Resolution struct {
	State     State
	Name      Name
	At        time.Time
	Remaining time.Duration // whole seconds, zero unless Upcoming
}

// Display is the shape handed to presentation layers.
type Display struct {
	NextPrayerName   *string `json:"nextPrayerName"`
	RemainingDisplay string  `json:"remainingDisplay"`
}

// Resolve returns the first main prayer of today that has not yet passed
// relative to now. When every prayer of today is behind now, tomorrow's Fajr
// is used if known. Missing or malformed entries in today are skipped.
//
// A prayer whose instant lies within the same second as now is reported as
// Due rather than as a zero or negative countdown.
func Resolve(now time.Time, today DayTimings, tomorrowFajr *TimeOfDay) Resolution {
	for _, name := range MainPrayers {
		tod, ok := today[name]
		if !ok {
			continue
		}

		at := tod.On(now)
		if at.Sub(now) <= -time.Second {
			continue
		}
		return resolveAt(now, name, at)
	}

	if tomorrowFajr != nil {
		return resolveAt(now, Fajr, tomorrowFajr.On(now.AddDate(0, 0, 1)))
	}

	return Resolution{State: Undetermined}
}

// resolveAt reports name at instant at, Due when less than a whole second
// remains.
func resolveAt(now time.Time, name Name, at time.Time) Resolution {
	remaining := at.Sub(now).Truncate(time.Second)
	if remaining <= 0 {
		return Resolution{State: Due, Name: name, At: at}
	}
	return Resolution{State: Upcoming, Name: name, At: at, Remaining: remaining}
}

// Current returns the most recent main prayer at or before now.
func Current(now time.Time, today DayTimings) (Name, bool) {
	var (
		current Name
		found   bool
	)
	for _, name := range MainPrayers {
		tod, ok := today[name]
		if !ok {
			continue
		}
		if tod.On(now).After(now) {
			break
		}
		current, found = name, true
	}
	return current, found
}

// FormatCountdown renders d as "<H>h <M>m <S>s", truncated to whole seconds.
// Hours wrap at 24.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h := (secs / 3600) % 24
	m := (secs / 60) % 60
	s := secs % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// RemainingDisplay returns the countdown, or a marker when there is none.
func (r Resolution) RemainingDisplay() string {
	switch r.State {
	case Upcoming:
		return FormatCountdown(r.Remaining)
	case Due:
		return MarkerNow
	default:
		return MarkerUndetermined
	}
}

// Display converts r to its presentation shape.
func (r Resolution) Display() Display {
	out := Display{RemainingDisplay: r.RemainingDisplay()}
	if r.State != Undetermined {
		name := string(r.Name)
		out.NextPrayerName = &name
	}
	return out
}
