package config

import (
	"github.com/spf13/cobra"
)

// ModuleI defines an interface of Module
type ModuleI interface {
	// Name returns the name of the module
	Name() string

	// RegisterChainConfigs registers the chain config types of the module
	RegisterChainConfigs(registry ChainConfigRegistry)

	// GetCmd returns the command
	GetCmd(ctx *Context) *cobra.Command
}
