package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LegacyCmd resolves deprecated enum values to lookup-table ids
var LegacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Resolve deprecated enum values to lookup ids",
	Long: `Older clients send environments and roadmap types as enum strings.
These commands resolve such a value to the id of its lookup-table row.

Examples:
  beaver legacy env production
  beaver legacy roadmap feature`,
}

var legacyEnvCmd = &cobra.Command{
	Use:   "env <value>",
	Short: "Resolve a legacy environment enum value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd.Context(), func(b *backend) error {
			id, err := b.svc.LegacyEnvironmentID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var legacyRoadmapCmd = &cobra.Command{
	Use:   "roadmap <value>",
	Short: "Resolve a legacy roadmap type enum value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd.Context(), func(b *backend) error {
			id, err := b.svc.LegacyRoadmapTypeID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

func init() {
	LegacyCmd.AddCommand(legacyEnvCmd)
	LegacyCmd.AddCommand(legacyRoadmapCmd)
}
