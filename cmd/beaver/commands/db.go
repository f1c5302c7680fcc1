package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/logger"
)

// MigrateCmd applies pending relational migrations
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Open the configured database and apply every pending migration.

The lookup tables are seeded with the development, homologation and production
environments and the default roadmap types.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	spinner, _ := pterm.DefaultSpinner.Start("Applying migrations...")
	conn, err := db.OpenWithMigrations(cmd.Context(), cfg.Database, logger.ComponentLogger("db"))
	if err != nil {
		spinner.Fail("Migration failed")
		return err
	}
	defer conn.Close()
	spinner.Success("Database is up to date")

	return printLookups(cmd.Context(), conn)
}

func printLookups(ctx context.Context, conn *db.DB) error {
	var envs, roadmap, migrations int
	for _, q := range []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM environments", &envs},
		{"SELECT COUNT(*) FROM roadmap_types", &roadmap},
		{"SELECT COUNT(*) FROM schema_migrations", &migrations},
	} {
		if err := conn.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return errors.Wrap(err, "failed to read database stats")
		}
	}
	pterm.Info.Printf("%d migrations applied, %d environments, %d roadmap types\n", migrations, envs, roadmap)
	return nil
}
