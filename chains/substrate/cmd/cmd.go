package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/substrate"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/coreutil"
)

func SubstrateCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "substrate",
		Short: "manage substrate chains",
	}

	cmd.AddCommand(
		accountCmd(ctx),
	)

	return cmd
}

func accountCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "account [chain-id]",
		Short: "Shows the SS58 address of the relayer account on a substrate chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			chain, err := coreutil.UnwrapChain[*substrate.Chain](c)
			if err != nil {
				return fmt.Errorf("%s is not a substrate chain: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), chain.Address())
			return nil
		},
	}
}
