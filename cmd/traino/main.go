package main

import (
	"os"

	"github.com/spf13/cobra"

	"traino/internal/interfaces/cli/migrate"
	"traino/internal/interfaces/cli/server"
	"traino/internal/interfaces/cli/sweep"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "traino",
		Short: "Traino - capacity allocation and entitlement engine",
		Long:  `Traino manages trainer capacity: plan assignments, capacity tokens, consumer slot allocation, and entitlement resolution.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		sweep.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
