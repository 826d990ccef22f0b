package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crateful-io/crateful/internal/interfaces/cli/migrate"
	"github.com/crateful-io/crateful/internal/interfaces/cli/server"
	"github.com/crateful-io/crateful/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crateful",
		Short: "Crateful - recurring delivery billing engine",
		Long:  `Crateful runs the recurring-delivery billing engine: the ops HTTP server, the renewal and retry sweep worker, and migration tools.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		worker.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
