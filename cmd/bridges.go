package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
)

func bridgesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bridges",
		Aliases: []string{"br"},
		Short:   "manage bridge configurations",
		Long: strings.TrimSpace(`A bridge is a pair of configured chains and the relay settings of its lanes.
Both directions of a bridge share the settings.`),
		RunE: noCommand,
	}

	cmd.AddCommand(
		bridgesAddCmd(ctx),
		bridgesListCmd(ctx),
	)

	return cmd
}

func bridgesAddCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [bridge-name] [left-chain-id] [right-chain-id]",
		Short: "Adds a bridge between two configured chains",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge := config.NewBridge(args[1], args[2])
			if err := applyRelayFlags(cmd, &bridge.Relay); err != nil {
				return err
			}
			if err := ctx.Config.AddBridge(args[0], bridge); err != nil {
				return err
			}
			return ctx.Config.Save()
		},
	}
	return relayFlags(cmd)
}

func bridgesListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Lists the configured bridges",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range ctx.Config.Bridges.Names() {
				b := ctx.Config.Bridges[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%2d: %-20s -> %s <-> %s lanes(%s)\n",
					i, name, b.Left, b.Right, strings.Join(b.Relay.Lanes, ","))
			}
			return nil
		},
	}
	return cmd
}
