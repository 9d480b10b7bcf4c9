package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

// Chain simulates a chain with instant finality, a light client of its counterparty
// and the messages pallet, all persisted in a cometbft-db database.
//
// The relayer side (signing transactions) and the chain side (verifying them) live in the
// same process, so two Chain values of a bridge are enough to run the relayer end to end.
type Chain struct {
	config ChainConfig

	homePath string
	timeout  time.Duration
	debug    bool
	now      func() time.Time

	signer       signer.Signer
	relayerKey   []byte
	counterparty string
	lanes        []core.LaneID

	mu    sync.Mutex
	store *store
	// latest is the latest sealed block
	latest *block
	// pending is the state of the block being built
	pending    *chainState
	pendingTxs []string
	dirty      bool
}

var (
	_ core.Chain         = (*Chain)(nil)
	_ core.MessageSender = (*Chain)(nil)
)

func (c *Chain) ChainID() string {
	return c.config.ChainID
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) logger() *log.RelayLogger {
	return log.GetLogger().WithChain(c.config.ChainID).WithModule("mock")
}

// Init opens the database of the chain and seals the genesis block if needed
func (c *Chain) Init(homePath string, timeout time.Duration, debug bool) error {
	if err := c.config.Validate(); err != nil {
		return err
	}
	s, err := c.config.Signer.Build()
	if err != nil {
		return core.ErrSigner.Wrap(err.Error())
	}
	pub, err := s.GetPublicKey(context.Background())
	if err != nil {
		return core.ErrSigner.Wrap(err.Error())
	}

	c.homePath = homePath
	c.timeout = timeout
	c.debug = debug
	c.signer = s
	c.relayerKey = pub
	c.counterparty = c.config.Counterparty
	if c.now == nil {
		c.now = time.Now
	}

	st, err := openStore(c.config, homePath)
	if err != nil {
		return err
	}
	c.store = st
	return c.load()
}

func (c *Chain) load() error {
	number, found, err := c.store.latest()
	if err != nil {
		return err
	}
	if !found {
		c.pending = newChainState()
		return c.seal(context.Background())
	}
	if c.latest, err = c.store.block(number); err != nil {
		return err
	}
	if c.pending, err = c.store.state(number); err != nil {
		return err
	}
	return nil
}

// Close closes the database
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Chain) SetRelayInfo(counterpartyChainID string, lanes []core.LaneID) error {
	if counterpartyChainID != c.config.Counterparty {
		return core.ErrInvalidConfig.Wrapf("%s is bridged with %s, not %s", c.ChainID(), c.config.Counterparty, counterpartyChainID)
	}
	c.counterparty = counterpartyChainID
	c.lanes = lanes
	return nil
}

// SetupForRelay opens the lanes to relay
func (c *Chain) SetupForRelay(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return core.ErrInvalidConfig.Wrapf("%s is not initialized", c.ChainID())
	}
	for _, lane := range c.lanes {
		if _, ok := c.pending.Outbound[lane]; !ok {
			c.pending.outbound(lane)
			c.dirty = true
		}
		if _, ok := c.pending.Inbound[lane]; !ok {
			c.pending.inbound(lane)
			c.dirty = true
		}
	}
	return c.advance(ctx)
}

// advance seals a block if a transaction is pending or the block time has elapsed
func (c *Chain) advance(ctx context.Context) error {
	if !c.dirty && (c.config.BlockTime == 0 || c.now().Sub(c.latest.Time) < c.config.BlockTime) {
		return nil
	}
	return c.seal(ctx)
}

func (c *Chain) seal(ctx context.Context) error {
	b, err := sealBlock(ctx, c.config.ChainID, c.config.AuthoritySetPeriod, c.latest, c.pending, c.now())
	if err != nil {
		return errors.Wrap(err, "failed to seal a block")
	}
	if err := c.store.commit(b, c.pending, c.pendingTxs); err != nil {
		return errors.Wrapf(err, "failed to commit block %d", b.Number)
	}
	if c.debug {
		c.logger().Debug("block sealed", "number", b.Number, "hash", b.Hash.Hex(), "txs", len(c.pendingTxs))
	}
	c.latest = b
	c.pendingTxs = nil
	c.dirty = false
	return nil
}

// stateAt returns the sealed state at the height of the query context
func (c *Chain) stateAt(ctx core.QueryContext) (uint64, *chainState, error) {
	if err := c.advance(ctx.Context()); err != nil {
		return 0, nil, err
	}
	number := ctx.Height()
	if number == 0 {
		number = c.latest.Number
	}
	if number > c.latest.Number {
		return 0, nil, fmt.Errorf("block %d of %s is not sealed yet", number, c.ChainID())
	}
	st, err := c.store.state(number)
	if err != nil {
		return 0, nil, err
	}
	return number, st, nil
}

func (c *Chain) ReadFinalizedHeader(ctx context.Context) (*core.HeaderFact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.advance(ctx); err != nil {
		return nil, err
	}
	return c.latest.fact(c.ChainID()), nil
}

func (c *Chain) ReadBestBridgedHeader(ctx context.Context) (*core.HeaderFact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, st, err := c.stateAt(core.NewQueryContext(ctx, 0))
	if err != nil {
		return nil, err
	}
	best := st.bestBridged()
	if best == nil {
		return nil, nil
	}
	return &core.HeaderFact{
		ChainID: c.counterparty,
		Number:  best.Number,
		Hash:    best.Hash,
	}, nil
}

func (c *Chain) ReadMandatoryHeaders(ctx context.Context, from, to uint64) ([]*core.HeaderFact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.advance(ctx); err != nil {
		return nil, err
	}
	period := c.config.AuthoritySetPeriod
	if period == 0 || from > to {
		return nil, nil
	}
	to = min(to, c.latest.Number)

	var headers []*core.HeaderFact
	for n := (from + period - 1) / period * period; n <= to; n += period {
		if n == 0 {
			continue
		}
		b, err := c.store.block(n)
		if err != nil {
			return nil, err
		}
		headers = append(headers, b.fact(c.ChainID()))
	}
	return headers, nil
}

func (c *Chain) ReadOutboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.OutboundLaneState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	number, st, err := c.stateAt(ctx)
	if err != nil {
		return nil, err
	}
	data := st.outbound(lane)
	return &core.OutboundLaneState{
		Lane:                 lane,
		OldestUnprunedNonce:  data.OldestUnprunedNonce,
		LatestReceivedNonce:  data.LatestReceivedNonce,
		LatestGeneratedNonce: data.LatestGeneratedNonce,
		AtBlock:              number,
	}, nil
}

func (c *Chain) ReadInboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.InboundLaneState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	number, st, err := c.stateAt(ctx)
	if err != nil {
		return nil, err
	}
	data := st.inbound(lane)
	return &core.InboundLaneState{
		Lane:                 lane,
		LatestReceivedNonce:  data.LatestReceivedNonce,
		LatestConfirmedNonce: data.LatestConfirmedNonce,
		AtBlock:              number,
	}, nil
}

func (c *Chain) ProveMessages(ctx core.QueryContext, lane core.LaneID, nonces core.NonceRange) ([]byte, error) {
	if nonces.Empty() {
		return nil, core.ErrRejected.Wrapf("empty nonce range %s", nonces)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	number, st, err := c.stateAt(ctx)
	if err != nil {
		return nil, err
	}
	keys := []string{outboundKey(lane)}
	for n := nonces.Begin; n <= nonces.End; n++ {
		keys = append(keys, messageKey(lane, n))
	}
	return encodeProof(st, number, keys...)
}

func (c *Chain) ProveInboundLane(ctx core.QueryContext, lane core.LaneID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	number, st, err := c.stateAt(ctx)
	if err != nil {
		return nil, err
	}
	return encodeProof(st, number, inboundKey(lane))
}

// SendMessage enqueues a message on the outbound lane
func (c *Chain) SendMessage(ctx context.Context, lane core.LaneID, payload []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.advance(ctx); err != nil {
		return 0, err
	}
	out := c.pending.outbound(lane)
	out.LatestGeneratedNonce++
	out.Messages[out.LatestGeneratedNonce] = payload
	c.dirty = true
	return out.LatestGeneratedNonce, nil
}
