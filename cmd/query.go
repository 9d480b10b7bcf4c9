package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// queryCmd represents the query command
func queryCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Bridge query commands",
		Long:  "Commands to query the headers and lanes of bridges on configured chains.",
	}

	cmd.AddCommand(
		queryHeadersCmd(ctx),
		queryLanesCmd(ctx),
	)

	return cmd
}

type headersResult struct {
	Chain        string           `json:"chain"`
	Finalized    *core.HeaderFact `json:"finalized"`
	Counterparty string           `json:"counterparty"`
	// BestBridged is the best header of the counterparty verified by the chain
	BestBridged *core.HeaderFact `json:"best_bridged"`
}

func queryHeadersCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headers [bridge-name]",
		Short: "Query the finalized header of both chains and the best header each has verified of the other",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, left, right, err := ctx.Config.ChainsFromBridge(args[0])
			if err != nil {
				return err
			}
			if err := setRelayInfo(bridge, left, right); err != nil {
				return err
			}
			var results []headersResult
			for _, pair := range [][2]core.Chain{{left, right}, {right, left}} {
				c, counterparty := pair[0], pair[1]
				finalized, err := c.ReadFinalizedHeader(cmd.Context())
				if err != nil {
					return err
				}
				bridged, err := c.ReadBestBridgedHeader(cmd.Context())
				if err != nil {
					return err
				}
				results = append(results, headersResult{
					Chain:        c.ChainID(),
					Finalized:    finalized,
					Counterparty: counterparty.ChainID(),
					BestBridged:  bridged,
				})
			}
			return printJSON(cmd, results)
		},
	}
	return cmd
}

type laneResult struct {
	Direction string                  `json:"direction"`
	Lane      core.LaneID             `json:"lane"`
	Outbound  *core.OutboundLaneState `json:"outbound"`
	Inbound   *core.InboundLaneState  `json:"inbound"`
	// Undelivered is the number of messages generated on the source but not yet received on the target
	Undelivered uint64 `json:"undelivered"`
}

func queryLanesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lanes [bridge-name]",
		Short: "Query the outbound and inbound states of the lanes of a bridge in both directions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, left, right, err := ctx.Config.ChainsFromBridge(args[0])
			if err != nil {
				return err
			}
			if err := setRelayInfo(bridge, left, right); err != nil {
				return err
			}
			lanes, err := bridge.Relay.LaneIDs()
			if err != nil {
				return err
			}
			height, err := cmd.Flags().GetUint64(flagHeight)
			if err != nil {
				return err
			}
			var results []laneResult
			for _, pair := range [][2]core.Chain{{left, right}, {right, left}} {
				src, dst := pair[0], pair[1]
				for _, lane := range lanes {
					out, err := src.ReadOutboundLaneState(core.NewQueryContext(cmd.Context(), height), lane)
					if err != nil {
						return err
					}
					// the height only applies to the source chain
					in, err := dst.ReadInboundLaneState(core.NewQueryContext(cmd.Context(), 0), lane)
					if err != nil {
						return err
					}
					r := laneResult{
						Direction: fmt.Sprintf("%s->%s", src.ChainID(), dst.ChainID()),
						Lane:      lane,
						Outbound:  out,
						Inbound:   in,
					}
					if out.LatestGeneratedNonce > in.LatestReceivedNonce {
						r.Undelivered = out.LatestGeneratedNonce - in.LatestReceivedNonce
					}
					results = append(results, r)
				}
			}
			return printJSON(cmd, results)
		},
	}
	return heightFlag(cmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return nil
}
