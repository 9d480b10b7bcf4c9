package debug

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// debugFakeLost fails queries at heights older than the depth set by
// DEBUG_RELAYER_MISSING_STATE_DEPTH_<chain-id>, like a pruned node would
func debugFakeLost(ctx core.QueryContext, chain *Chain) error {
	env := fmt.Sprintf("DEBUG_RELAYER_MISSING_STATE_DEPTH_%s", chain.ChainID())
	val, ok := os.LookupEnv(env)
	if !ok || ctx.Height() == 0 {
		return nil
	}
	depth, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		chain.logger().Warn("malformed env", "env", env, "value", val)
		return nil
	}

	latest, err := chain.OriginChain.ReadFinalizedHeader(ctx.Context())
	if err != nil {
		return err
	}
	if ctx.Height()+depth < latest.Number {
		return core.ErrTransient.Wrapf("fake missing state: %d + %d < %d", ctx.Height(), depth, latest.Number)
	}
	return nil
}

// debugFakeSubmitError fails submissions with the error class set by DEBUG_RELAYER_SUBMIT_ERROR_<chain-id>
func debugFakeSubmitError(chain *Chain, payload *core.Payload) error {
	env := fmt.Sprintf("DEBUG_RELAYER_SUBMIT_ERROR_%s", chain.ChainID())
	val, ok := os.LookupEnv(env)
	if !ok {
		return nil
	}
	switch strings.ToLower(val) {
	case "stale":
		return core.ErrStale.Wrapf("fake stale submission: %s", payload)
	case "rejected":
		return core.ErrRejected.Wrapf("fake rejected submission: %s", payload)
	case "transient":
		return core.ErrTransient.Wrapf("fake transient failure: %s", payload)
	default:
		chain.logger().Warn("malformed env", "env", env, "value", val)
		return nil
	}
}

func (c *Chain) ReadOutboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.OutboundLaneState, error) {
	if err := debugFakeLost(ctx, c); err != nil {
		return nil, err
	}
	return c.OriginChain.ReadOutboundLaneState(ctx, lane)
}

func (c *Chain) ReadInboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.InboundLaneState, error) {
	if err := debugFakeLost(ctx, c); err != nil {
		return nil, err
	}
	return c.OriginChain.ReadInboundLaneState(ctx, lane)
}

func (c *Chain) ProveMessages(ctx core.QueryContext, lane core.LaneID, nonces core.NonceRange) ([]byte, error) {
	if err := debugFakeLost(ctx, c); err != nil {
		return nil, err
	}
	return c.OriginChain.ProveMessages(ctx, lane, nonces)
}

func (c *Chain) ProveInboundLane(ctx core.QueryContext, lane core.LaneID) ([]byte, error) {
	if err := debugFakeLost(ctx, c); err != nil {
		return nil, err
	}
	return c.OriginChain.ProveInboundLane(ctx, lane)
}
