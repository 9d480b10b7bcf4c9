package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/coreutil"
)

// transactionCmd represents the tx command
func transactionCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transact",
		Aliases: []string{"tx"},
		Short:   "Bridge transaction commands",
		Long:    "Commands to create transactions on configured chains, e.g. to initialize a bridge or enqueue a message.",
	}

	cmd.AddCommand(
		initBridgeCmd(ctx),
		sendMessageCmd(ctx),
	)

	return cmd
}

func initBridgeCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-bridge [bridge-name] [source-chain-id]",
		Short: "Initialize the light client of the source chain on its counterparty",
		Long: `Read the latest finalized header of the source chain and submit it to the counterparty
chain so that its light client starts verifying the source chain from that header.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, src, dst, err := directionChains(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			bridged, err := dst.ReadBestBridgedHeader(cmd.Context())
			if err != nil {
				return err
			}
			if bridged != nil {
				return fmt.Errorf("bridge %s is already initialized on %s at %s", args[0], dst.ChainID(), bridged)
			}
			header, err := src.ReadFinalizedHeader(cmd.Context())
			if err != nil {
				return err
			}
			result, err := submitAndWait(cmd.Context(), dst, &core.Payload{
				Kind:   core.SubmissionInitBridge,
				Header: header,
			}, bridge.Relay.InclusionTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s on %s with %s at block %d\n", src.ChainID(), dst.ChainID(), header, result.Block)
			return nil
		},
	}
	return cmd
}

func sendMessageCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send-message [chain-id] [lane-id] [payload]",
		Short: "Enqueue a message on an outbound lane of a chain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			lane, err := core.ParseLaneID(args[1])
			if err != nil {
				return err
			}
			sender, err := coreutil.UnwrapMessageSender(c)
			if err != nil {
				return err
			}
			nonce, err := sender.SendMessage(cmd.Context(), lane, []byte(args[2]))
			if err != nil {
				return err
			}
			bz, err := json.Marshal(struct {
				Chain string      `json:"chain"`
				Lane  core.LaneID `json:"lane"`
				Nonce uint64      `json:"nonce"`
			}{c.ChainID(), lane, nonce})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	return cmd
}

// directionChains returns the source chain and its counterparty in the bridge
func directionChains(ctx *config.Context, bridgeName, srcChainID string) (*config.Bridge, core.Chain, core.Chain, error) {
	bridge, left, right, err := ctx.Config.ChainsFromBridge(bridgeName)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := bridge.Counterparty(srcChainID); err != nil {
		return nil, nil, nil, err
	}
	if err := setRelayInfo(bridge, left, right); err != nil {
		return nil, nil, nil, err
	}
	if srcChainID == bridge.Right {
		return bridge, right, left, nil
	}
	return bridge, left, right, nil
}

// setRelayInfo tells both chains of the bridge about each other and the lanes to serve
func setRelayInfo(bridge *config.Bridge, left, right core.Chain) error {
	lanes, err := bridge.Relay.LaneIDs()
	if err != nil {
		return err
	}
	if err := left.SetRelayInfo(right.ChainID(), lanes); err != nil {
		return err
	}
	return right.SetRelayInfo(left.ChainID(), lanes)
}

// submitAndWait submits a single payload outside of a relay loop and waits for its inclusion
func submitAndWait(ctx context.Context, c core.Chain, payload *core.Payload, timeout time.Duration) (*core.InclusionResult, error) {
	if err := c.SetupForRelay(ctx); err != nil {
		return nil, err
	}
	handle, err := c.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}
	result, err := c.AwaitInclusion(ctx, handle, timeout)
	if err != nil {
		return nil, err
	}
	switch result.Status {
	case core.InclusionIncluded:
		return result, nil
	case core.InclusionRejected:
		return nil, fmt.Errorf("%s was rejected by %s: %s: %w", payload, c.ChainID(), result.Reason, result.Err)
	default:
		return nil, fmt.Errorf("%s has not been included in %s within %s", payload, c.ChainID(), timeout)
	}
}
