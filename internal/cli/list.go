package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/display"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of prayer times for N days (default: 7).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, 7)
		},
	}
}

func newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show prayer times for the next 7 days",
		Long:  "Alias for 'list 7'. Display a grid of prayer times for 7 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 7)
		},
	}
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month",
		Short: "Show prayer times for the next 30 days",
		Long:  "Alias for 'list 30'. Display a grid of prayer times for 30 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 30)
		},
	}
}

// parseDays accepts a positive integer, "week" or "month".
func parseDays(s string) (int, error) {
	switch s {
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number of days: %q (must be a positive integer, 'week' or 'month')", s)
	}
	return n, nil
}

// schedule is a run of consecutive days starting today in the location's zone.
type schedule struct {
	Location provider.Location
	Days     []*provider.Day
	Now      time.Time
	Next     prayer.Resolution
}

// loadSchedule fetches n days starting today. Missing trailing days are
// logged and dropped; failing to load today is an error.
func loadSchedule(cmd *cobra.Command, s *session, n int) (*schedule, error) {
	ctx := cmd.Context()
	now := clock.Now()

	today, err := countdown.Today(ctx, s.calendar, now)
	if err != nil {
		return nil, err
	}

	days, err := s.calendar.Days(ctx, today.Date, n)
	if err != nil {
		if len(days) == 0 {
			return nil, err
		}
		s.log.WithError(err).Warn("showing partial schedule")
	}

	sc := &schedule{
		Location: s.calendar.Location(),
		Days:     days,
		Now:      now.In(today.Zone),
	}

	var tomorrowFajr *prayer.TimeOfDay
	if len(days) > 1 {
		if f, ok := days[1].Timings.Fajr(); ok {
			tomorrowFajr = &f
		}
	}
	sc.Next = prayer.Resolve(sc.Now, days[0].Timings, tomorrowFajr)
	return sc, nil
}

// nextCell returns the row and column of the next prayer in a table whose
// first column is the date and whose remaining columns are names.
func (sc *schedule) nextCell(names []prayer.Name) (row, col int, ok bool) {
	if sc.Next.State == prayer.Undetermined {
		return 0, 0, false
	}
	for i, d := range sc.Days {
		if !sameDay(d.Date, sc.Next.At) {
			continue
		}
		for j, n := range names {
			if n == sc.Next.Name {
				return i, j + 1, true
			}
		}
	}
	return 0, 0, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// runList is the handler for the list subcommand.
func runList(cmd *cobra.Command, args []string, defaultDays int) error {
	days := defaultDays
	if len(args) > 0 {
		n, err := parseDays(args[0])
		if err != nil {
			return err
		}
		days = n
	}

	cfg := effectiveConfig(cmd)
	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	sc, err := loadSchedule(cmd, s, days)
	if err != nil {
		return err
	}

	names := shownPrayers(cfg.PrayerList())
	layout := timeLayout(cfg.TimeFormat)

	if FlagJSON {
		return printListJSON(cmd.OutOrStdout(), sc, names, layout)
	}
	printListRich(cmd.OutOrStdout(), sc, names, layout)
	return nil
}

func printListRich(w io.Writer, sc *schedule, names []prayer.Name, layout string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Boldf("Prayer Times, %d Days", len(sc.Days)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", sc.Location.Label())
	fmt.Fprintln(w)

	headers := []string{"Date"}
	for _, n := range names {
		headers = append(headers, string(n))
	}
	fmt.Fprint(w, scheduleTable(sc, headers, names, layout).Render())
	fmt.Fprintln(w)
}

// scheduleTable builds one row per day with today's row and the next
// prayer's cell highlighted.
func scheduleTable(sc *schedule, headers []string, names []prayer.Name, layout string) *display.Table {
	tbl := display.NewTable(headers)
	for i, d := range sc.Days {
		row := []string{d.Date.Format("Mon 02 Jan")}
		for _, n := range names {
			cell := ""
			if tod, ok := d.Timings[n]; ok {
				cell = tod.On(d.Date).Format(layout)
			}
			row = append(row, cell)
		}
		tbl.AddRow(row)

		if sameDay(d.Date, sc.Now) {
			tbl.SetHighlightRow(i)
		}
	}
	if r, c, ok := sc.nextCell(names); ok {
		tbl.SetHighlightCell(r, c)
	}
	return tbl
}

// listJSONOutput is the JSON structure for the list command.
type listJSONOutput struct {
	Location locationJSON  `json:"location"`
	Days     []listJSONDay `json:"days"`
}

type listJSONDay struct {
	Date    string            `json:"date"`
	Hijri   string            `json:"hijri"`
	Timings map[string]string `json:"timings"`
}

func printListJSON(w io.Writer, sc *schedule, names []prayer.Name, layout string) error {
	out := listJSONOutput{Location: newLocationJSON(sc.Location, sc.Days[0])}

	for _, d := range sc.Days {
		timings := make(map[string]string)
		for _, n := range names {
			if tod, ok := d.Timings[n]; ok {
				timings[strings.ToLower(string(n))] = tod.On(d.Date).Format(layout)
			}
		}
		out.Days = append(out.Days, listJSONDay{
			Date:    d.Date.Format("02 Jan 2006"),
			Hijri:   d.Raw.Date.Hijri.Format(),
			Timings: timings,
		})
	}

	return writeJSON(w, out)
}
