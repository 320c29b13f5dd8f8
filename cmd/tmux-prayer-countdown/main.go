// Command tmux-prayer-countdown prints the next prayer once, for status lines
// such as tmux's status-right.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/cache"
	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/geo"
	"github.com/smokyabdulrahman/prayer-countdown/internal/logging"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

// Swapped out in tests.
var (
	clock     countdown.Clock = countdown.SystemClock{}
	newClient                 = func() *api.Client { return api.NewClient() }
	detect                    = func(ctx context.Context) (*geo.Location, error) { return geo.NewDetector().Detect(ctx) }
)

type options struct {
	latitude, longitude float64
	city, country       string
	method, school      int
	format, timeFormat  string
	cacheDir            string
	logLevel            string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, prints one status line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("tmux-prayer-countdown", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.Float64Var(&opts.latitude, "latitude", 0, "Latitude for prayer time calculation")
	fs.Float64Var(&opts.longitude, "longitude", 0, "Longitude for prayer time calculation")
	fs.StringVar(&opts.city, "city", "", "City name (alternative to coordinates)")
	fs.StringVar(&opts.country, "country", "", "Country (used with --city)")
	fs.IntVar(&opts.method, "method", -1, "Calculation method ID (0-23). -1 for API default.")
	fs.IntVar(&opts.school, "school", -1, "Juristic school: 0=Shafi, 1=Hanafi. -1 for API default.")
	fs.StringVarP(&opts.format, "format", "f", prayer.FormatNameAndTime, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template (e.g. '{{.Name}} in {{.Remaining}}'). Template fields: .Name, .ShortName, .Time, .Remaining, .Hours, .Minutes, .Seconds, .Due")
	fs.StringVar(&opts.timeFormat, "time-format", "24h", "Time format: 12h or 24h")
	fs.StringVar(&opts.cacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/prayer-countdown/)")
	fs.StringVar(&opts.logLevel, "log-level", "error", "Log level for diagnostics on stderr")
	showVersion := fs.BoolP("version", "v", false, "Print version and exit")
	listMethods := fs.Bool("list-methods", false, "Print supported calculation methods and exit")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "tmux-prayer-countdown %s\n", version)
		return 0
	}
	if *listMethods {
		printMethods(stdout)
		return 0
	}

	if err := logging.Init(opts.logLevel, "text", stderr); err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}

	line, err := statusLine(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprint(stdout, line)
	return 0
}

// printMethods prints the table of supported calculation methods.
func printMethods(w io.Writer) {
	fmt.Fprintln(w, "Supported calculation methods:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-4s %s\n", "ID", "Name")
	fmt.Fprintf(w, "  %-4s %s\n", "──", "────")
	for _, m := range api.CalculationMethods {
		fmt.Fprintf(w, "  %-4d %s\n", m.ID, m.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use --method <ID> to select a calculation method.")
	fmt.Fprintln(w, "If omitted, the API picks a default based on your location.")
}

// statusLine resolves the next prayer for opts. Missing prayer data yields
// the placeholder rather than an error so the status bar stays quiet.
func statusLine(ctx context.Context, opts options) (string, error) {
	log := logging.Component("tmux")

	store, err := cache.NewFileStore(opts.cacheDir)
	if err != nil {
		// Cache init failure is non-fatal; we just skip caching.
		log.WithError(err).Warn("cache disabled")
	}

	loc, err := location(ctx, opts, store)
	if err != nil {
		return "", err
	}

	var monthStore cache.Store = cache.Nop{}
	if store != nil {
		monthStore = store
	}
	cal := provider.NewCalendar(newClient(), monthStore, loc,
		provider.Options{Method: opts.method, School: opts.school},
		logrus.NewEntry(logging.Log))

	now := clock.Now()
	snap, err := countdown.LoadSnapshot(ctx, cal, now)
	if err != nil {
		log.WithError(err).Warn("prayer times unavailable")
	}

	layout := "15:04"
	if opts.timeFormat == "12h" {
		layout = "3:04 PM"
	}
	return prayer.FormatOutput(snap.Resolve(now), opts.format, layout), nil
}

// location determines the effective location from flags, the geolocation
// cache or auto-detection.
func location(ctx context.Context, opts options, store *cache.FileStore) (provider.Location, error) {
	var gc provider.GeoCache
	if store != nil {
		gc = store
	}
	q := provider.Query{Lat: opts.latitude, Lon: opts.longitude, City: opts.city, Country: opts.country}
	return provider.Locate(ctx, q, gc, provider.LocatorFunc(detect))
}
