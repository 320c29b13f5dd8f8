package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/prayer-countdown/internal/config"
	"github.com/smokyabdulrahman/prayer-countdown/internal/logging"
)

// Global flags shared across all subcommands.
var (
	FlagCity         string
	FlagCountry      string
	FlagLatitude     float64
	FlagLongitude    float64
	FlagMethod       int
	FlagSchool       int
	FlagJSON         bool
	FlagCacheDir     string
	FlagCacheBackend string
	FlagTimeFormat   string
	FlagLogLevel     string
)

// loadedConfig holds the file config with environment overrides applied,
// loaded during PersistentPreRunE.
var loadedConfig *config.Config

// NewRootCmd creates the root command for the prayer-countdown CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "prayer-countdown",
		Short:   "Next prayer countdown",
		Long:    "Islamic prayer times and a live countdown to the next prayer, powered by the Al Adhan API.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			loadedConfig = cfg

			eff := effectiveConfig(cmd)
			if err := logging.Init(eff.LogLevel, eff.LogFormat, cmd.ErrOrStderr()); err != nil {
				logging.Log.WithError(err).Warn("falling back to warn level")
			}
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", "Override city (takes precedence over config)")
	pf.StringVar(&FlagCountry, "country", "", "Override country")
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Override latitude")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Override longitude")
	pf.IntVar(&FlagMethod, "method", -1, "Override calculation method (0-23)")
	pf.IntVar(&FlagSchool, "school", -1, "Override school (0=Shafi, 1=Hanafi)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/prayer-countdown/)")
	pf.StringVar(&FlagCacheBackend, "cache-backend", "", "Cache backend: file, redis, sql or none")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagLogLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newMonthCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())

	return rootCmd
}

// PrintVersion prints the version string in the expected format.
func PrintVersion(version string) string {
	return fmt.Sprintf("prayer-countdown %s\n", version)
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > environment > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set.
func effectiveConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Defaults()
	if loadedConfig != nil {
		cfg.Merge(loadedConfig)
	}

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if flagWasSet(flags, root, "city") {
		cfg.City = FlagCity
	}
	if flagWasSet(flags, root, "country") {
		cfg.Country = FlagCountry
	}
	if flagWasSet(flags, root, "latitude") {
		cfg.Latitude = FlagLatitude
	}
	if flagWasSet(flags, root, "longitude") {
		cfg.Longitude = FlagLongitude
	}
	if flagWasSet(flags, root, "method") {
		m := FlagMethod
		cfg.Method = &m
	}
	if flagWasSet(flags, root, "school") {
		s := FlagSchool
		cfg.School = &s
	}
	if flagWasSet(flags, root, "cache-dir") {
		cfg.CacheDir = FlagCacheDir
	}
	if flagWasSet(flags, root, "cache-backend") {
		cfg.CacheBackend = FlagCacheBackend
	}
	if flagWasSet(flags, root, "time-format") {
		cfg.TimeFormat = FlagTimeFormat
	}
	if flagWasSet(flags, root, "log-level") {
		cfg.LogLevel = FlagLogLevel
	}

	return &cfg
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

// timeLayout maps the time_format setting to a Go layout.
func timeLayout(format string) string {
	if format == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}
