package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bsg-enterprise/ticketing/internal/seed"
)

func newSeedCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load departments, the service catalog, BSG templates and master data from YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := seed.Load(path)
			if err != nil {
				return err
			}
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			seeder := seed.NewSeeder(seed.Repositories{
				Users:       rt.repos.users,
				Departments: rt.repos.departments,
				Catalog:     rt.repos.catalog,
				BSG:         rt.repos.bsg,
			}, rt.cfg.Auth.BcryptCost, rt.logger)
			res, err := seeder.Run(cmd.Context(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "departments=%d units=%d users=%d catalogs=%d items=%d templates=%d bsg_templates=%d master_data=%d\n",
				res.Departments, res.Units, res.Users, res.Catalogs, res.Items, res.Templates, res.BSGTemplates, res.MasterData)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "configs/seed.yaml", "Seed file to apply")
	return cmd
}
