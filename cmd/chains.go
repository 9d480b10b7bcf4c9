package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
)

func chainsCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chains",
		Aliases: []string{"ch"},
		Short:   "manage chain configurations",
		RunE:    noCommand,
	}

	cmd.AddCommand(
		chainsAddCmd(ctx),
		chainsListCmd(ctx),
		chainsShowCmd(ctx),
	)

	return cmd
}

func chainsAddCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new chain to the configuration file from a chain config file",
		Long: "Add a new chain from a YAML or JSON file. Its `type` key selects the chain module, " +
			"see `ybrly <module> config generate` for an example.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString(flagFile)
			if err != nil {
				return err
			}
			if file == "" {
				return fmt.Errorf("--%s is required", flagFile)
			}
			raw, err := readChainFile(file)
			if err != nil {
				return err
			}
			if _, err := ctx.Config.AddChain(ctx.Registry, raw); err != nil {
				return fmt.Errorf("failed to add chain from %s: %w", file, err)
			}
			if err := ctx.Config.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %v\n", raw["chain-id"])
			return nil
		},
	}

	return fileFlag(cmd)
}

func readChainFile(file string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read chain config %s: %w", file, err)
	}
	return v.AllSettings(), nil
}

func chainsListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Lists the configured chains",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// chains are built in the order of their raw configs
			for i, chain := range ctx.Config.ListChains() {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d: %-20v -> type(%v)\n", i, chain.ChainID(), ctx.Config.Chains[i][config.ChainTypeKey])
			}
			return nil
		},
	}
	return cmd
}

func chainsShowCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show [chain-id]",
		Aliases: []string{"s"},
		Short:   "Prints the config of a chain",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, chain := range ctx.Config.ListChains() {
				if chain.ChainID() != args[0] {
					continue
				}
				out, err := yaml.Marshal(ctx.Config.Chains[i])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			}
			return fmt.Errorf("chain not found: %s", args[0])
		},
	}
	return cmd
}
