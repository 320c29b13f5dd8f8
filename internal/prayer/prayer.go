package prayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Name identifies a prayer or a solar reference event returned by the API.
type Name string

const (
	Fajr    Name = "Fajr"
	Dhuhr   Name = "Dhuhr"
	Asr     Name = "Asr"
	Maghrib Name = "Maghrib"
	Isha    Name = "Isha"

	Sunrise    Name = "Sunrise"
	Sunset     Name = "Sunset"
	Imsak      Name = "Imsak"
	Midnight   Name = "Midnight"
	Firstthird Name = "Firstthird"
	Lastthird  Name = "Lastthird"
)

// MainPrayers are the five daily prayers the resolver tracks, in their fixed daily order.
var MainPrayers = []Name{Fajr, Dhuhr, Asr, Maghrib, Isha}

// AllNames lists every prayer/event the API can return, in chronological order.
var AllNames = []Name{
	Fajr, Sunrise, Dhuhr, Asr, Sunset, Maghrib, Isha,
	Imsak, Midnight, Firstthird, Lastthird,
}

// ShortNames maps full prayer names to short abbreviations.
var ShortNames = map[Name]string{
	Fajr:       "F",
	Sunrise:    "S",
	Dhuhr:      "D",
	Asr:        "A",
	Sunset:     "St",
	Maghrib:    "M",
	Isha:       "I",
	Imsak:      "Im",
	Midnight:   "Mi",
	Firstthird: "F3",
	Lastthird:  "L3",
}

// ParseName matches s against the known names, ignoring case.
func ParseName(s string) (Name, bool) {
	s = strings.TrimSpace(s)
	for _, n := range AllNames {
		if strings.EqualFold(string(n), s) {
			return n, true
		}
	}
	return "", false
}

// IsMain reports whether n is one of the five main prayers.
func (n Name) IsMain() bool {
	for _, m := range MainPrayers {
		if m == n {
			return true
		}
	}
	return false
}

// ErrMalformedTime is returned when a timing string is not a valid HH:MM clock time.
var ErrMalformedTime = errors.New("malformed time of day")

// TimeOfDay is a local wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM", discarding any trailing space-delimited
// annotation such as " (+01)" or " (BST)".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.IndexAny(s, " \t"); idx != -1 {
		s = s[:idx]
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, raw)
	}

	hour, err := parseDigits(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: invalid hour in %q", ErrMalformedTime, raw)
	}
	min, err := parseDigits(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: invalid minute in %q", ErrMalformedTime, raw)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q out of range", ErrMalformedTime, raw)
	}

	return TimeOfDay{Hour: hour, Minute: min}, nil
}

// parseDigits parses a non-empty run of ASCII digits; signs are rejected.
func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// On returns the instant at which t occurs on the calendar date of date,
// in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, date.Location())
}

// String formats t as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// DayTimings is one calendar day's timing table.
type DayTimings map[Name]TimeOfDay

// Fajr returns the day's Fajr time, if present.
func (d DayTimings) Fajr() (TimeOfDay, bool) {
	t, ok := d[Fajr]
	return t, ok
}

// ParseDayTimings builds a DayTimings from raw API strings keyed by name.
// Entries that fail to parse are left out and reported in skipped; a bad
// entry never invalidates the rest of the table. Unknown keys are ignored.
func ParseDayTimings(raw map[string]string) (timings DayTimings, skipped []Name) {
	timings = make(DayTimings, len(raw))
	for _, name := range AllNames {
		s, ok := raw[string(name)]
		if !ok {
			continue
		}
		t, err := ParseTimeOfDay(s)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		timings[name] = t
	}
	return timings, skipped
}
