package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/studentdesk/complaints/cmd/deskctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "deskctl",
		Short:        "Operator tools for the complaint desk",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.ProfileCmd())
	rootCmd.AddCommand(cmd.BlobsCmd())
	rootCmd.AddCommand(cmd.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
