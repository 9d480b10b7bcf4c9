package module

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/substrate"
	"github.com/hyperledger-labs/yui-bridge-relayer/chains/substrate/cmd"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return "substrate"
}

// RegisterChainConfigs registers the substrate chain config
func (Module) RegisterChainConfigs(registry config.ChainConfigRegistry) {
	registry.Register(substrate.ChainType, func() core.ChainConfig { return &substrate.ChainConfig{} })
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return cmd.SubstrateCmd(ctx)
}
