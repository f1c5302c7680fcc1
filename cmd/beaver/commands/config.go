package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
)

// ConfigCmd manages configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect Beaver configuration",
	Long: `Display and validate Beaver configuration.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (BEAVER_* prefix, e.g. BEAVER_SERVER_PORT)
3. Project config (./beaver.toml, searched upwards)
4. User config (~/.beaver/config.toml)
5. System config (/etc/beaver/config.toml)
6. Default values

Examples:
  beaver config show                 # Show current configuration
  beaver config show --format json   # Show configuration in JSON format
  beaver config get client.endpoint  # Get one value
  beaver config validate             # Validate current configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g. database.path, client.retry.max_attempts)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which configuration files are read",
	RunE:  runConfigWhere,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	data, err := config.Render(cfg, configFormat)
	if err != nil {
		return err
	}
	if configFormat != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "# Beaver configuration")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper()
	if err != nil {
		return err
	}
	if ConfigFile != "" {
		v.SetConfigFile(ConfigFile)
		v.SetConfigType("toml")
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", ConfigFile)
		}
	}
	key := args[0]
	if !v.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration cascade (later overrides earlier):")
	data := pterm.TableData{{"#", "Source", "Status"}}
	data = append(data, []string{"0", "built-in defaults", "always"})
	for i, src := range config.Sources() {
		status := "missing"
		if src.Exists {
			status = "loaded"
		}
		data = append(data, []string{fmt.Sprint(i + 1), src.Path, status})
	}
	if ConfigFile != "" {
		data = append(data, []string{"--config", ConfigFile, "replaces files above"})
	}
	data = append(data, []string{"env", "BEAVER_* variables", "always"})
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render()
}
