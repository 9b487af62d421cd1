package main

import (
	"fmt"

	"github.com/partsinc/parts-server/internal/config"
	"github.com/partsinc/parts-server/internal/pkg/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL schema migrations",
		Long: `Apply the schema migrations embedded in the binary.

Only the postgres driver has a schema. With the mongo driver the
command does nothing; indexes are created on startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.Database.Driver != config.DriverPostgres {
				fmt.Fprintf(cmd.OutOrStdout(), "driver %q has no migrations\n", cfg.Database.Driver)
				return nil
			}

			if err := postgres.Migrate(cfg.Postgres.URL); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
