package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archbeaver/beaver/cmd/beaver/commands"
	"github.com/archbeaver/beaver/logger"
)

var rootCmd = &cobra.Command{
	Use:   "beaver",
	Short: "Beaver - architecture catalog",
	Long: `Beaver - architecture catalog with a GraphQL API.

Beaver tracks components, their instances per environment, teams, categories
and architecture decision records, and projects them into a dependency graph.

Available commands:
  serve    - Start the GraphQL server
  migrate  - Apply database migrations
  config   - Inspect configuration
  graph    - Rebuild or export the dependency graph
  legacy   - Resolve deprecated enum values
  ls       - Query a running server
  version  - Show version information

Examples:
  beaver serve -v               # Start the server with info logging
  beaver ls components --detail # Query through the GraphQL client
  beaver config show            # Show current configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.SetupLogging(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Config file (skips the file cascade)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.GraphCmd)
	rootCmd.AddCommand(commands.LegacyCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
