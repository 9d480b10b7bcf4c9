package core

import (
	"context"
	"time"
)

//go:generate mockgen -source=chain.go -destination=mock_chain.go -package=core

// Chain represents a chain that is bridged with another chain by the relayer
type Chain interface {
	// ChainID returns ID of the chain
	ChainID() string

	// Init initializes the chain
	Init(homePath string, timeout time.Duration, debug bool) error

	// SetRelayInfo sets the counterparty chain and the lanes the relayer is going to serve
	SetRelayInfo(counterpartyChainID string, lanes []LaneID) error

	// SetupForRelay performs chain-specific setup before starting the relay
	SetupForRelay(ctx context.Context) error

	// ReadFinalizedHeader returns the latest finalized header of this chain
	ReadFinalizedHeader(ctx context.Context) (*HeaderFact, error)

	// ReadBestBridgedHeader returns the best header of the counterparty chain that this chain has verified.
	// It returns nil without error if the bridge has not been initialized yet.
	ReadBestBridgedHeader(ctx context.Context) (*HeaderFact, error)

	// ReadMandatoryHeaders returns the finalized headers in [from, to] that a bridged light client must not skip
	ReadMandatoryHeaders(ctx context.Context, from, to uint64) ([]*HeaderFact, error)

	// ReadOutboundLaneState returns the outbound state of the lane at the height of the query context
	ReadOutboundLaneState(ctx QueryContext, lane LaneID) (*OutboundLaneState, error)

	// ReadInboundLaneState returns the inbound state of the lane at the height of the query context
	ReadInboundLaneState(ctx QueryContext, lane LaneID) (*InboundLaneState, error)

	// ProveMessages returns a proof of the messages of the lane in the given range
	ProveMessages(ctx QueryContext, lane LaneID, nonces NonceRange) ([]byte, error)

	// ProveInboundLane returns a proof of the inbound state of the lane
	ProveInboundLane(ctx QueryContext, lane LaneID) ([]byte, error)

	// Submit encodes, signs and broadcasts a transaction carrying the payload.
	// Rejections must be classified with ErrStale, ErrRejected or ErrTransient.
	Submit(ctx context.Context, payload *Payload) (SubmissionHandle, error)

	// AwaitInclusion waits until the submitted transaction is included, rejected or the timeout elapses
	AwaitInclusion(ctx context.Context, handle SubmissionHandle, timeout time.Duration) (*InclusionResult, error)
}

// MessageSender is implemented by chains on which the relayer can enqueue outbound messages
type MessageSender interface {
	// SendMessage enqueues a message on the outbound lane and returns its nonce
	SendMessage(ctx context.Context, lane LaneID, payload []byte) (uint64, error)
}

// QueryContext is a context that contains a height of the target chain for querying states
type QueryContext interface {
	// Context returns `context.Context``
	Context() context.Context

	// Height returns a height of the target chain for querying a state.
	// Zero means the latest finalized height.
	Height() uint64
}

type queryContext struct {
	ctx    context.Context
	height uint64
}

var _ QueryContext = (*queryContext)(nil)

// NewQueryContext returns a new context for querying states
func NewQueryContext(ctx context.Context, height uint64) QueryContext {
	return queryContext{ctx: ctx, height: height}
}

// Context returns `context.Context``
func (qc queryContext) Context() context.Context {
	return qc.ctx
}

// Height returns a height of the target chain for querying a state
func (qc queryContext) Height() uint64 {
	return qc.height
}
