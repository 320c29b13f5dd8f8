package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/config"
	"github.com/smokyabdulrahman/prayer-countdown/internal/display"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify configuration",
		Long:  "Display current configuration, or use subcommands to modify it.\nWhen run without subcommands, shows the current configuration.",
		RunE:  runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Long: fmt.Sprintf("Set a configuration value. Valid keys: %s\n\nEvery key can also be set through the environment as %s<KEY>.\n\nExamples:\n  prayer-countdown config set city Casablanca\n  prayer-countdown config set country Morocco\n  prayer-countdown config set method 21\n  prayer-countdown config set time_format 12h\n  prayer-countdown config set cache_backend redis",
			strings.Join(config.ValidKeys, ", "), config.EnvPrefix),
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset config to defaults",
		Long:  "Delete the config file and restore all settings to defaults.",
		RunE:  runConfigReset,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		RunE:  runConfigPath,
	})

	return cmd
}

// runConfigShow displays the configuration in effect, file and environment
// combined, with secrets masked.
func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	cfg := loadedConfig
	if cfg == nil {
		if cfg, err = config.Load(); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), display.Section(fmt.Sprintf("  Configuration (%s)", path), configPairs(cfg)))
	return nil
}

// configPairs renders every key for display.
func configPairs(cfg *config.Config) [][2]string {
	pairs := make([][2]string, 0, len(config.ValidKeys))
	for _, key := range config.ValidKeys {
		val, _ := cfg.Get(key)
		shown := val
		switch {
		case val == "":
			shown = display.Gray("(not set)")
		case config.SecretKeys[key]:
			shown = maskSecret(val)
		case key == "method":
			shown = formatMethodValue(val)
		case key == "school":
			shown = formatSchoolValue(val)
		}
		pairs = append(pairs, [2]string{key, shown})
	}
	return pairs
}

// maskSecret keeps at most the last four characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// runConfigSet sets a config key to the given value.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	// Write the file alone so environment overrides are not persisted.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	if config.SecretKeys[key] {
		value = maskSecret(value)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

// runConfigReset deletes the config file.
func runConfigReset(cmd *cobra.Command, args []string) error {
	if err := config.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults.")
	return nil
}

// runConfigPath prints the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// formatMethodValue adds the method name to the numeric value.
func formatMethodValue(val string) string {
	id, err := strconv.Atoi(val)
	if err != nil {
		return val
	}
	if name := api.MethodName(id); name != "" {
		return fmt.Sprintf("%s (%s)", val, name)
	}
	return val
}

// formatSchoolValue adds the school name to the numeric value.
func formatSchoolValue(val string) string {
	switch val {
	case "0":
		return "0 (Shafi)"
	case "1":
		return "1 (Hanafi)"
	default:
		return val
	}
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List all calculation methods",
		Long:  "Print the table of all supported Al Adhan API calculation methods.",
		RunE: func(cmd *cobra.Command, args []string) error {
			printMethods(cmd.OutOrStdout())
			return nil
		},
	}
}

// printMethods prints the table of supported calculation methods.
func printMethods(w io.Writer) {
	fmt.Fprintln(w, "Supported calculation methods:")
	fmt.Fprintln(w)

	tbl := display.NewTable([]string{"ID", "Name"})
	for _, m := range api.CalculationMethods {
		tbl.AddRow([]string{strconv.Itoa(m.ID), m.Name})
	}
	fmt.Fprint(w, tbl.Render())

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use --method <ID> to select a calculation method.")
	fmt.Fprintln(w, "If omitted, the API picks a default based on your location.")
}
