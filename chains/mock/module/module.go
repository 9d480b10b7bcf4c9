package module

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/mock"
	"github.com/hyperledger-labs/yui-bridge-relayer/chains/mock/cmd"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return "mock"
}

// RegisterChainConfigs registers the mock chain config
func (Module) RegisterChainConfigs(registry config.ChainConfigRegistry) {
	registry.Register(mock.ChainType, func() core.ChainConfig { return &mock.ChainConfig{} })
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return cmd.MockCmd()
}
