package otelcore

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// Chain records a span for every call to the wrapped chain
type Chain struct {
	core.Chain
	tracer trace.Tracer
}

var _ core.Chain = (*Chain)(nil)

func NewChain(chain core.Chain, tracer trace.Tracer) core.Chain {
	return &Chain{
		Chain:  chain,
		tracer: tracer,
	}
}

func UnwrapChain(chain core.Chain) (core.Chain, error) {
	c, ok := chain.(*Chain)
	if !ok {
		return nil, fmt.Errorf("chain type is not %T, but %T", &Chain{}, chain)
	}
	return c.Chain, nil
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (c *Chain) SetupForRelay(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "Chain.SetupForRelay",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	err := c.Chain.SetupForRelay(ctx)
	recordError(span, err)
	return err
}

func (c *Chain) ReadFinalizedHeader(ctx context.Context) (*core.HeaderFact, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.ReadFinalizedHeader",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	header, err := c.Chain.ReadFinalizedHeader(ctx)
	recordError(span, err)
	return header, err
}

func (c *Chain) ReadBestBridgedHeader(ctx context.Context) (*core.HeaderFact, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.ReadBestBridgedHeader",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	header, err := c.Chain.ReadBestBridgedHeader(ctx)
	recordError(span, err)
	return header, err
}

func (c *Chain) ReadMandatoryHeaders(ctx context.Context, from, to uint64) ([]*core.HeaderFact, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.ReadMandatoryHeaders",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(
			core.AttributeKeyHeight.String(fmt.Sprintf("%d..%d", from, to)),
		),
	)
	defer span.End()

	headers, err := c.Chain.ReadMandatoryHeaders(ctx, from, to)
	recordError(span, err)
	return headers, err
}

func (c *Chain) ReadOutboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.OutboundLaneState, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.ReadOutboundLaneState",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(core.AttributeKeyLane.String(lane.String())),
	)
	defer span.End()

	st, err := c.Chain.ReadOutboundLaneState(ctx, lane)
	recordError(span, err)
	return st, err
}

func (c *Chain) ReadInboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.InboundLaneState, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.ReadInboundLaneState",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(core.AttributeKeyLane.String(lane.String())),
	)
	defer span.End()

	st, err := c.Chain.ReadInboundLaneState(ctx, lane)
	recordError(span, err)
	return st, err
}

func (c *Chain) ProveMessages(ctx core.QueryContext, lane core.LaneID, nonces core.NonceRange) ([]byte, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.ProveMessages",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(
			core.AttributeKeyLane.String(lane.String()),
			core.AttributeKeyNonces.String(nonces.String()),
		),
	)
	defer span.End()

	proof, err := c.Chain.ProveMessages(ctx, lane, nonces)
	recordError(span, err)
	return proof, err
}

func (c *Chain) ProveInboundLane(ctx core.QueryContext, lane core.LaneID) ([]byte, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.ProveInboundLane",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(core.AttributeKeyLane.String(lane.String())),
	)
	defer span.End()

	proof, err := c.Chain.ProveInboundLane(ctx, lane)
	recordError(span, err)
	return proof, err
}

func (c *Chain) Submit(ctx context.Context, payload *core.Payload) (core.SubmissionHandle, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.Submit",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(core.AttributeKeySubmissionKind.String(payload.Kind.String())),
	)
	defer span.End()

	handle, err := c.Chain.Submit(ctx, payload)
	recordError(span, err)
	return handle, err
}

func (c *Chain) AwaitInclusion(ctx context.Context, handle core.SubmissionHandle, timeout time.Duration) (*core.InclusionResult, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.AwaitInclusion",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(core.AttributeKeySubmissionID.String(handle.ID())),
	)
	defer span.End()

	result, err := c.Chain.AwaitInclusion(ctx, handle, timeout)
	if err == nil {
		span.SetAttributes(core.AttributeKeyOutcome.String(result.Status.String()))
	}
	recordError(span, err)
	return result, err
}

// SendMessage traces SendMessage of the wrapped chain if it is a core.MessageSender
func (c *Chain) SendMessage(ctx context.Context, lane core.LaneID, payload []byte) (uint64, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.SendMessage",
		core.WithChainAttributes(c.ChainID()),
		trace.WithAttributes(core.AttributeKeyLane.String(lane.String())),
	)
	defer span.End()

	sender, ok := c.Chain.(core.MessageSender)
	if !ok {
		err := fmt.Errorf("chain %s cannot send messages", c.ChainID())
		recordError(span, err)
		return 0, err
	}
	nonce, err := sender.SendMessage(ctx, lane, payload)
	recordError(span, err)
	return nonce, err
}
