package module

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/debug"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return "debug"
}

// RegisterChainConfigs registers the debug chain config.
// Its origin chain is decoded with the same registry, so any registered chain type can be wrapped.
func (Module) RegisterChainConfigs(registry config.ChainConfigRegistry) {
	registry.Register(debug.ChainType, func() core.ChainConfig { return debug.NewChainConfig(registry) })
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return nil
}
