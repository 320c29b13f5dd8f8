package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

var flagFormat string

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown, suitable for status bars.\nPrints --:-- when no prayer times are available.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)
	ctx := cmd.Context()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	now := clock.Now()
	snap, err := countdown.LoadSnapshot(ctx, s.calendar, now)
	if err != nil {
		// A status bar keeps showing the placeholder rather than an error.
		s.log.WithError(err).Warn("prayer times unavailable")
	}

	res := snap.Resolve(now)
	if FlagJSON {
		return writeJSON(cmd.OutOrStdout(), res.Display())
	}
	fmt.Fprint(cmd.OutOrStdout(), prayer.FormatOutput(res, flagFormat, timeLayout(cfg.TimeFormat)))
	return nil
}
