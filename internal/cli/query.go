package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/display"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

var flagQueryDays string

func newQueryCmd() *cobra.Command {
	names := make([]string, len(prayer.AllNames))
	for i, n := range prayer.AllNames {
		names[i] = string(n)
	}

	cmd := &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long:  "Query a specific prayer time for today, or across multiple days with --days.\n\nValid prayer names: " + strings.Join(names, ", "),
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&flagQueryDays, "days", "", "Number of days to show (or 'week'/'month')")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	name, ok := prayer.ParseName(args[0])
	if !ok {
		valid := make([]string, len(prayer.AllNames))
		for i, n := range prayer.AllNames {
			valid[i] = string(n)
		}
		return fmt.Errorf("unknown prayer %q; valid names: %s", args[0], strings.Join(valid, ", "))
	}

	days := 1
	if flagQueryDays != "" {
		n, err := parseDays(flagQueryDays)
		if err != nil {
			return fmt.Errorf("invalid --days value: %w", err)
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

	layout := timeLayout(cfg.TimeFormat)
	if days == 1 {
		return printQuerySingle(cmd.OutOrStdout(), sc, name, layout)
	}
	if FlagJSON {
		return printQueryJSON(cmd.OutOrStdout(), sc, name, layout)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Boldf("%s Times, %d Days", name, len(sc.Days)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", sc.Location.Label())
	fmt.Fprintln(w)
	fmt.Fprint(w, scheduleTable(sc, []string{"Date", string(name)}, []prayer.Name{name}, layout).Render())
	fmt.Fprintln(w)
	return nil
}

type queryJSONSingle struct {
	Prayer string `json:"prayer"`
	Time   string `json:"time"`
	Date   string `json:"date"`
	Hijri  string `json:"hijri"`
}

func printQuerySingle(w io.Writer, sc *schedule, name prayer.Name, layout string) error {
	d := sc.Days[0]
	tod, ok := d.Timings[name]
	if !ok {
		return fmt.Errorf("no timing found for %s", name)
	}
	timeStr := tod.On(d.Date).Format(layout)

	if FlagJSON {
		return writeJSON(w, queryJSONSingle{
			Prayer: strings.ToLower(string(name)),
			Time:   timeStr,
			Date:   d.Date.Format("02 Jan 2006"),
			Hijri:  d.Raw.Date.Hijri.Format(),
		})
	}

	fmt.Fprintf(w, "%s %s\n", name, timeStr)
	return nil
}

type queryJSONMulti struct {
	Location locationJSON   `json:"location"`
	Prayer   string         `json:"prayer"`
	Days     []queryJSONDay `json:"days"`
}

type queryJSONDay struct {
	Date  string `json:"date"`
	Hijri string `json:"hijri"`
	Time  string `json:"time"`
}

func printQueryJSON(w io.Writer, sc *schedule, name prayer.Name, layout string) error {
	out := queryJSONMulti{
		Location: newLocationJSON(sc.Location, sc.Days[0]),
		Prayer:   strings.ToLower(string(name)),
	}

	for _, d := range sc.Days {
		timeStr := ""
		if tod, ok := d.Timings[name]; ok {
			timeStr = tod.On(d.Date).Format(layout)
		}
		out.Days = append(out.Days, queryJSONDay{
			Date:  d.Date.Format("02 Jan 2006"),
			Hijri: d.Raw.Date.Hijri.Format(),
			Time:  timeStr,
		})
	}

	return writeJSON(w, out)
}
