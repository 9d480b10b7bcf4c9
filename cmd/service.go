package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func serviceCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Relay Service Commands",
		Long:  "Commands to manage the relay service",
	}
	cmd.AddCommand(
		startCmd(ctx),
	)
	return cmd
}

func startCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [bridge-name]",
		Short: "Start relaying headers and messages in both directions of a bridge",
		Long: `Start relaying headers and messages in both directions of a bridge.
The relay config of the bridge can be overridden with flags, and the service can
expose a gRPC health endpoint and Prometheus metrics while it runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd, ctx, args[0], "", core.RelayHeadersAndMessages)
		},
	}
	return serviceFlags(cmd)
}
