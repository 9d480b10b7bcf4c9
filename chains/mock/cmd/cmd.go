package cmd

import (
	"github.com/spf13/cobra"
)

func MockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "manage mock chain configurations",
	}

	cmd.AddCommand(
		configCmd(),
	)

	return cmd
}
