package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/display"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

// defaultShown is what the schedule views list when no prayers are configured.
var defaultShown = []prayer.Name{prayer.Fajr, prayer.Sunrise, prayer.Dhuhr, prayer.Asr, prayer.Maghrib, prayer.Isha}

func shownPrayers(list []prayer.Name) []prayer.Name {
	if len(list) == 0 {
		return defaultShown
	}
	return list
}

// todayView is everything the schedule renders.
type todayView struct {
	Day      *provider.Day
	Location provider.Location
	Now      time.Time // in the day's zone
	Next     prayer.Resolution
	Current  prayer.Name // empty before Fajr
	Prayers  []prayer.Name
	Layout   string
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)
	ctx := cmd.Context()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	now := clock.Now()
	day, err := countdown.Today(ctx, s.calendar, now)
	if err != nil {
		return err
	}

	snap, err := countdown.LoadSnapshot(ctx, s.calendar, now)
	if err != nil {
		s.log.WithError(err).Debug("snapshot incomplete")
	}

	v := todayView{
		Day:      day,
		Location: s.calendar.Location(),
		Now:      now.In(day.Zone),
		Next:     snap.Resolve(now),
		Prayers:  shownPrayers(cfg.PrayerList()),
		Layout:   timeLayout(cfg.TimeFormat),
	}
	if cur, ok := prayer.Current(v.Now, day.Timings); ok {
		v.Current = cur
	}

	if FlagJSON {
		return printTodayJSON(cmd.OutOrStdout(), v)
	}
	printTodayRich(cmd.OutOrStdout(), v)
	return nil
}

// nextIsToday reports whether the resolved prayer falls on the shown day,
// as opposed to tomorrow's Fajr.
func (v todayView) nextIsToday() bool {
	if v.Next.State == prayer.Undetermined {
		return false
	}
	y, m, d := v.Next.At.Date()
	dy, dm, dd := v.Day.Date.Date()
	return y == dy && m == dm && d == dd
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, v todayView) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", v.Location.Label())
	fmt.Fprintf(w, "  %s\n", v.Day.Zone)
	fmt.Fprintf(w, "  %s\n", formatGregorianDate(v.Day))
	if hijri := v.Day.Raw.Date.Hijri.Format(); hijri != "" {
		fmt.Fprintf(w, "  %s\n", hijri)
	}
	fmt.Fprintln(w)

	maxNameLen := 0
	for _, p := range v.Prayers {
		if len(p) > maxNameLen {
			maxNameLen = len(p)
		}
	}

	for _, p := range v.Prayers {
		tod, ok := v.Day.Timings[p]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-*s  %s", maxNameLen, p, tod.On(v.Day.Date).Format(v.Layout))

		switch {
		case p == v.Current:
			fmt.Fprintln(w, display.Dim(line))
		case v.nextIsToday() && p == v.Next.Name:
			suffix := "  <- next in " + v.Next.RemainingDisplay()
			if v.Next.State == prayer.Due {
				suffix = "  <- now"
			}
			fmt.Fprintln(w, display.Accent(line)+display.Accent(suffix))
		default:
			fmt.Fprintln(w, line)
		}
	}

	if v.Next.State != prayer.Undetermined && !v.nextIsToday() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", display.Accent(fmt.Sprintf("Next: %s tomorrow at %s, in %s",
			v.Next.Name, v.Next.At.Format(v.Layout), v.Next.RemainingDisplay())))
	}

	fmt.Fprintln(w)
}

// formatGregorianDate prefers the API's date label and falls back to the
// day's own date.
func formatGregorianDate(day *provider.Day) string {
	if g := day.Raw.Date.Gregorian.Format(); g != "" {
		return g
	}
	return day.Date.Format("02 Jan 2006")
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location locationJSON      `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current"`
	Next     *todayJSONNext    `json:"next"`
}

type locationJSON struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
	State     string `json:"state"`
}

func newLocationJSON(loc provider.Location, day *provider.Day) locationJSON {
	out := locationJSON{
		City:      loc.City,
		Country:   loc.Country,
		Timezone:  day.Zone.String(),
		Latitude:  day.Raw.Meta.Latitude,
		Longitude: day.Raw.Meta.Longitude,
	}
	if loc.Mode == provider.ModeCoordinates {
		out.Latitude, out.Longitude = loc.Lat, loc.Lon
	}
	return out
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, v todayView) error {
	timings := make(map[string]string)
	for _, p := range v.Prayers {
		if tod, ok := v.Day.Timings[p]; ok {
			timings[strings.ToLower(string(p))] = tod.On(v.Day.Date).Format(v.Layout)
		}
	}

	out := todayJSON{
		Location: newLocationJSON(v.Location, v.Day),
		Date: todayJSONDate{
			Gregorian: formatGregorianDate(v.Day),
			Hijri:     v.Day.Raw.Date.Hijri.Format(),
		},
		Timings: timings,
		Current: strings.ToLower(string(v.Current)),
	}

	if v.Next.State != prayer.Undetermined {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(string(v.Next.Name)),
			Time:      v.Next.At.Format(v.Layout),
			Remaining: v.Next.RemainingDisplay(),
			State:     v.Next.State.String(),
		}
	}

	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
