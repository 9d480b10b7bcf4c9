package debug

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

// Chain delegates to the wrapped chain and injects the faults configured by environment variables
type Chain struct {
	config      ChainConfig
	OriginChain core.Chain
}

var (
	_ core.Chain         = (*Chain)(nil)
	_ core.MessageSender = (*Chain)(nil)
)

func (c *Chain) ChainID() string {
	return c.OriginChain.ChainID()
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) logger() *log.RelayLogger {
	return log.GetLogger().WithChain(c.ChainID()).WithModule("debug")
}

func (c *Chain) Init(homePath string, timeout time.Duration, debug bool) error {
	return c.OriginChain.Init(homePath, timeout, debug)
}

func (c *Chain) SetRelayInfo(counterpartyChainID string, lanes []core.LaneID) error {
	return c.OriginChain.SetRelayInfo(counterpartyChainID, lanes)
}

func (c *Chain) SetupForRelay(ctx context.Context) error {
	return c.OriginChain.SetupForRelay(ctx)
}

func (c *Chain) ReadFinalizedHeader(ctx context.Context) (*core.HeaderFact, error) {
	return c.OriginChain.ReadFinalizedHeader(ctx)
}

func (c *Chain) ReadBestBridgedHeader(ctx context.Context) (*core.HeaderFact, error) {
	return c.OriginChain.ReadBestBridgedHeader(ctx)
}

func (c *Chain) ReadMandatoryHeaders(ctx context.Context, from, to uint64) ([]*core.HeaderFact, error) {
	return c.OriginChain.ReadMandatoryHeaders(ctx, from, to)
}

func (c *Chain) Submit(ctx context.Context, payload *core.Payload) (core.SubmissionHandle, error) {
	if err := debugFakeSubmitError(c, payload); err != nil {
		return nil, err
	}
	return c.OriginChain.Submit(ctx, payload)
}

func (c *Chain) AwaitInclusion(ctx context.Context, handle core.SubmissionHandle, timeout time.Duration) (*core.InclusionResult, error) {
	return c.OriginChain.AwaitInclusion(ctx, handle, timeout)
}

func (c *Chain) SendMessage(ctx context.Context, lane core.LaneID, payload []byte) (uint64, error) {
	sender, ok := c.OriginChain.(core.MessageSender)
	if !ok {
		return 0, fmt.Errorf("chain %s cannot send messages", c.ChainID())
	}
	return sender.SendMessage(ctx, lane, payload)
}
