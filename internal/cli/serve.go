package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/logging"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
	"github.com/smokyabdulrahman/prayer-countdown/internal/server"
)

var flagListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the countdown over HTTP",
		Long: "Run an HTTP server exposing the next prayer and today's schedule as JSON:\n\n" +
			"  GET /healthz\n  GET /api/next[?latitude=&longitude=|?city=&country=]\n  GET /api/today",
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default from config, :8080)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = flagListen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := newServer(s)
	fmt.Fprintf(cmd.ErrOrStderr(), "serving %s on %s\n", s.calendar.Location().Label(), cfg.ListenAddr)
	return srv.Run(ctx, cfg.ListenAddr)
}

func newServer(s *session) *server.Server {
	return server.New(s.calendar,
		server.WithClock(clock),
		server.WithLogger(logging.Component("http")),
		server.WithTableFactory(func(loc provider.Location) server.Table {
			return s.uncachedCalendarFor(loc)
		}),
	)
}
