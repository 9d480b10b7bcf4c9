package cmd

import (
	"reflect"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/spf13/cobra"
)

func modulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Show the chain modules built into the relayer",
		RunE:  noCommand,
	}

	cmd.AddCommand(
		showModulesCmd(ctx),
	)

	return cmd
}

// moduleInfo describes a chain module and the Go module providing it
type moduleInfo struct {
	Name       string   `json:"name"`
	ChainTypes []string `json:"chain-types"`
	Path       string   `json:"path,omitempty"`
	Version    string   `json:"version,omitempty"`
}

func showModulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Shows the modules and the chain types they register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bi, _ := debug.ReadBuildInfo()
			infos := make([]moduleInfo, len(ctx.Modules))
			for i, m := range ctx.Modules {
				infos[i] = describeModule(bi, m)
			}
			slices.SortFunc(infos, func(a, b moduleInfo) int {
				return strings.Compare(a.Name, b.Name)
			})
			return printJSON(cmd, infos)
		},
	}
	return cmd
}

// describeModule lists the chain types m registers and looks up its Go module in the build info
func describeModule(bi *debug.BuildInfo, m config.ModuleI) moduleInfo {
	registry := config.ChainConfigRegistry{}
	m.RegisterChainConfigs(registry)
	types := registry.Types()
	slices.Sort(types)
	info := moduleInfo{Name: m.Name(), ChainTypes: types}

	if bi == nil {
		return info
	}
	pkgPath := reflect.TypeOf(m).PkgPath()
	if bi.Main.Path != "" && strings.HasPrefix(pkgPath, bi.Main.Path) {
		info.Path, info.Version = bi.Main.Path, bi.Main.Version
		return info
	}
	if i := slices.IndexFunc(bi.Deps, func(dm *debug.Module) bool {
		return strings.HasPrefix(pkgPath, dm.Path)
	}); i >= 0 {
		info.Path, info.Version = bi.Deps[i].Path, bi.Deps[i].Version
	}
	return info
}
