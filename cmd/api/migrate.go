package main

import (
	"github.com/spf13/cobra"

	"github.com/bsg-enterprise/ticketing/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := bootstrap(cmd.Context())
				if err != nil {
					return err
				}
				defer rt.close()
				return persistence.RunMigrations(cmd.Context(), rt.postgres.PoolHandle(), rt.logger)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied state of every migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := bootstrap(cmd.Context())
				if err != nil {
					return err
				}
				defer rt.close()
				return persistence.MigrationStatus(cmd.Context(), rt.postgres.PoolHandle(), rt.logger)
			},
		},
	)
	return cmd
}
