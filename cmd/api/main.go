package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ticketing",
		Short:         "BSG enterprise ticketing service",
		Long:          `Service desk API for ticket intake, approvals, SLA escalation, the service catalog and the knowledge base.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newEscalateCommand(),
		newSeedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
