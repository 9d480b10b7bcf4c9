package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/mock"
)

const (
	flagDBBackend          = "db-backend"
	flagBlockTime          = "block-time"
	flagAuthoritySetPeriod = "authority-set-period"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration file",
	}

	cmd.AddCommand(
		generateChainConfigCmd(),
	)

	return cmd
}

// chainConfigFile is the layout of a chain config accepted by `chains add`
type chainConfigFile struct {
	Type             string `yaml:"type"`
	mock.ChainConfig `yaml:",inline"`
}

func generateChainConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [chain-id] [counterparty-chain-id]",
		Short: "Prints a mock chain config with a fresh relayer mnemonic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mock.DefaultChainConfig(args[0], args[1])
			if err != nil {
				return err
			}
			if c.DBBackend, err = cmd.Flags().GetString(flagDBBackend); err != nil {
				return err
			}
			if c.BlockTime, err = cmd.Flags().GetDuration(flagBlockTime); err != nil {
				return err
			}
			if c.AuthoritySetPeriod, err = cmd.Flags().GetUint64(flagAuthoritySetPeriod); err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			bz, err := yaml.Marshal(chainConfigFile{Type: mock.ChainType, ChainConfig: c})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	cmd.Flags().String(flagDBBackend, "goleveldb", "cometbft-db backend of the chain (memdb or goleveldb)")
	cmd.Flags().Duration(flagBlockTime, mock.DefaultBlockTime, "interval between empty blocks")
	cmd.Flags().Uint64(flagAuthoritySetPeriod, mock.DefaultAuthoritySetPeriod, "number of blocks finalized by an authority set")
	return cmd
}
