package cmd

import (
	"context"
	"errors"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/hyperledger-labs/yui-bridge-relayer/server"
)

func relayHeadersCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-headers [bridge-name] [source-chain-id]",
		Short: "Relay finalized headers of the source chain to its counterparty",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd, ctx, args[0], args[1], core.RelayHeadersOnly)
		},
	}
	return serviceFlags(cmd)
}

func relayMessagesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-messages [bridge-name] [source-chain-id]",
		Short: "Relay messages of the source chain to its counterparty and their delivery confirmations back",
		Long: `Relay messages of the source chain to its counterparty and their delivery confirmations back.
Headers are not relayed, so another relayer must keep the light clients of both chains up to date.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd, ctx, args[0], args[1], core.RelayMessagesOnly)
		},
	}
	return serviceFlags(cmd)
}

func relayHeadersAndMessagesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-headers-and-messages [bridge-name]",
		Short: "Relay headers and messages in both directions of a bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd, ctx, args[0], "", core.RelayHeadersAndMessages)
		},
	}
	return serviceFlags(cmd)
}

// runRelay runs the relay loops of a bridge until SIGINT or SIGTERM is received.
// An empty srcChainID runs both directions.
func runRelay(cmd *cobra.Command, ctx *config.Context, bridgeName, srcChainID string, mode core.RelayMode) error {
	bridge, left, right, err := ctx.Config.ChainsFromBridge(bridgeName)
	if err != nil {
		return err
	}
	relayCfg := bridge.Relay
	if err := applyRelayFlags(cmd, &relayCfg); err != nil {
		return err
	}
	if srcChainID != "" {
		if _, err := bridge.Counterparty(srcChainID); err != nil {
			return err
		}
	}
	lanes, err := relayCfg.LaneIDs()
	if err != nil {
		return err
	}
	if err := left.SetRelayInfo(right.ChainID(), lanes); err != nil {
		return err
	}
	if err := right.SetRelayInfo(left.ChainID(), lanes); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	for _, c := range []core.Chain{left, right} {
		if err := c.SetupForRelay(sigCtx); err != nil {
			return err
		}
	}

	healthAddr, err := cmd.Flags().GetString(flagHealthAddr)
	if err != nil {
		return err
	}
	metricsAddr, err := cmd.Flags().GetString(flagMetricsAddr)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		shutdown, err := telemetry.ServePrometheus(metricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(cmd.Context())); err != nil {
				log.GetLogger().Error("failed to shut down the metrics provider", err)
			}
		}()
	}

	sink := core.MultiSink{core.DefaultEventSink()}
	eg, egCtx := errgroup.WithContext(sigCtx)
	if healthAddr != "" {
		hs := server.NewHealthServer()
		sink = append(sink, hs)
		eg.Go(func() error {
			return hs.ListenAndServe(egCtx, healthAddr)
		})
	}

	eg.Go(func() error {
		if srcChainID == "" {
			return core.StartService(egCtx, bridgeName, left, right, relayCfg, mode, sink)
		}
		src, dst := left, right
		if srcChainID == bridge.Right {
			src, dst = right, left
		}
		loop, err := core.NewRelayLoop(core.DirectionConfig{
			Bridge: bridgeName,
			Source: src,
			Target: dst,
			Relay:  relayCfg,
			Mode:   mode,
			Sink:   sink,
		})
		if err != nil {
			return err
		}
		return loop.Run(egCtx)
	})

	err = eg.Wait()
	if sigCtx.Err() != nil && errors.Is(err, context.Canceled) {
		log.GetLogger().Info("relayer stopped", "bridge", bridgeName)
		return nil
	}
	return err
}
