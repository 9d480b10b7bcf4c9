package mock

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/crypto/tmhash"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer/local"
)

const inclusionPollInterval = 50 * time.Millisecond

// transaction is a payload signed by the relayer
type transaction struct {
	Payload   json.RawMessage `json:"payload"`
	PubKey    []byte          `json:"pub_key"`
	Signature []byte          `json:"signature"`
}

type txHandle string

func (h txHandle) ID() string {
	return string(h)
}

func encodeProof(st *chainState, number uint64, keys ...string) ([]byte, error) {
	proof, err := st.prove(number, keys...)
	if err != nil {
		return nil, err
	}
	return json.Marshal(proof)
}

func (c *Chain) signTx(ctx context.Context, payload *core.Payload) (*transaction, string, error) {
	bz, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	digest := tmhash.Sum(bz)
	sig, err := c.signer.Sign(ctx, digest)
	if err != nil {
		return nil, "", core.ErrSigner.Wrap(err.Error())
	}
	return &transaction{Payload: bz, PubKey: c.relayerKey, Signature: sig}, hex.EncodeToString(digest), nil
}

// Submit signs the payload and executes it on the block being built.
// Invalid transactions are refused immediately and never included.
func (c *Chain) Submit(ctx context.Context, payload *core.Payload) (core.SubmissionHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil, core.ErrInvalidConfig.Wrapf("%s is not initialized", c.ChainID())
	}
	if err := c.advance(ctx); err != nil {
		return nil, core.ErrTransient.Wrap(err.Error())
	}

	tx, txID, err := c.signTx(ctx, payload)
	if err != nil {
		return nil, err
	}
	if slices.Contains(c.pendingTxs, txID) {
		return nil, core.ErrStale.Wrapf("transaction %s is already pending", txID)
	}

	next, err := c.pending.clone()
	if err != nil {
		return nil, err
	}
	if err := c.execute(ctx, next, tx); err != nil {
		if c.debug {
			c.logger().Debug("transaction refused", "tx", txID, "payload", payload.String(), "error", err.Error())
		}
		return nil, err
	}
	c.pending = next
	c.pendingTxs = append(c.pendingTxs, txID)
	c.dirty = true
	return txHandle(txID), nil
}

// execute checks the signature of tx and applies its payload to st
func (c *Chain) execute(ctx context.Context, st *chainState, tx *transaction) error {
	if !local.Verify(tx.PubKey, tmhash.Sum(tx.Payload), tx.Signature) {
		return core.ErrRejected.Wrap("bad signature")
	}
	var payload core.Payload
	if err := json.Unmarshal(tx.Payload, &payload); err != nil {
		return core.ErrRejected.Wrapf("malformed payload: %v", err)
	}
	relayer := ed25519.PubKey(tx.PubKey).Address().String()

	switch payload.Kind {
	case core.SubmissionInitBridge:
		return c.initBridge(ctx, st, &payload)
	case core.SubmissionHeaderRelay:
		return c.importHeader(ctx, st, &payload)
	case core.SubmissionMessageDelivery:
		return c.receiveMessages(st, &payload, relayer)
	case core.SubmissionReceiptConfirmation:
		return c.receiveConfirmation(st, &payload)
	default:
		return core.ErrRejected.Wrapf("unknown submission kind: %s", payload.Kind)
	}
}

func (c *Chain) initBridge(ctx context.Context, st *chainState, p *core.Payload) error {
	if best := st.bestBridged(); best != nil {
		return core.ErrStale.Wrapf("bridge with %s is already initialized at %d", c.counterparty, best.Number)
	}
	h, err := verifyHeader(ctx, c.counterparty, p.Header)
	if err != nil {
		return core.ErrRejected.Wrap(err.Error())
	}
	st.importHeader(p.Header, h)
	return nil
}

func (c *Chain) importHeader(ctx context.Context, st *chainState, p *core.Payload) error {
	best := st.bestBridged()
	if best == nil {
		return core.ErrRejected.Wrapf("bridge with %s is not initialized", c.counterparty)
	}
	if p.Header == nil {
		return core.ErrRejected.Wrap("no header")
	}
	if p.Header.Number <= best.Number {
		return core.ErrStale.Wrapf("header %d is not newer than the best imported header %d", p.Header.Number, best.Number)
	}
	h, err := verifyHeader(ctx, c.counterparty, p.Header)
	if err != nil {
		return core.ErrRejected.Wrap(err.Error())
	}
	if h.SetID != best.NextSetID {
		return core.ErrRejected.Wrapf("header %d is finalized by authority set %d, expected %d", h.Number, h.SetID, best.NextSetID)
	}
	st.importHeader(p.Header, h)
	return nil
}

func (st *chainState) importHeader(fact *core.HeaderFact, h *header) {
	st.Bridged[h.Number] = &bridgedHeader{
		Number:    h.Number,
		Hash:      fact.Hash,
		StateRoot: h.StateRoot,
		NextSetID: h.nextSetID(),
	}
	st.BestBridged = h.Number
}

// verifyStorageProof checks the proof of the payload against an imported header of the counterparty
func (c *Chain) verifyStorageProof(st *chainState, p *core.Payload) (map[string][]byte, error) {
	if p.ProofAt == nil {
		return nil, core.ErrRejected.Wrap("no proof header")
	}
	bridged, ok := st.Bridged[p.ProofAt.Number]
	if !ok || bridged.Hash != p.ProofAt.Hash {
		return nil, core.ErrRejected.Wrapf("proof header %s is not imported", p.ProofAt)
	}
	var proof storageProof
	if err := json.Unmarshal(p.Proof, &proof); err != nil {
		return nil, core.ErrRejected.Wrapf("malformed proof: %v", err)
	}
	if proof.Number != bridged.Number {
		return nil, core.ErrRejected.Wrapf("proof is built at %d, not %d", proof.Number, bridged.Number)
	}
	values, err := proof.verify(bridged.StateRoot)
	if err != nil {
		return nil, core.ErrRejected.Wrap(err.Error())
	}
	return values, nil
}

func (c *Chain) receiveMessages(st *chainState, p *core.Payload, relayer string) error {
	if p.Nonces.Empty() {
		return core.ErrRejected.Wrapf("empty nonce range %s", p.Nonces)
	}
	values, err := c.verifyStorageProof(st, p)
	if err != nil {
		return err
	}
	bz, ok := values[outboundKey(p.Lane)]
	if !ok {
		return core.ErrRejected.Wrapf("outbound lane %s is not proven", p.Lane)
	}
	outbound, err := decodeLaneStateLeaf(bz)
	if err != nil {
		return core.ErrRejected.Wrapf("malformed outbound lane state: %v", err)
	}

	in := st.inbound(p.Lane)
	if p.Nonces.End <= in.LatestReceivedNonce {
		return core.ErrStale.Wrapf("messages %s of lane %s are already received up to %d", p.Nonces, p.Lane, in.LatestReceivedNonce)
	}
	if p.Nonces.Begin > in.LatestReceivedNonce+1 {
		return core.ErrRejected.Wrapf("messages %s of lane %s skip nonce %d", p.Nonces, p.Lane, in.LatestReceivedNonce+1)
	}
	begin := max(p.Nonces.Begin, in.LatestReceivedNonce+1)
	for n := begin; n <= p.Nonces.End; n++ {
		if _, ok := values[messageKey(p.Lane, n)]; !ok {
			return core.ErrRejected.Wrapf("message %d of lane %s is not proven", n, p.Lane)
		}
	}

	// the source confirms what it has seen delivered
	confirmed := max(in.LatestConfirmedNonce, min(outbound.LatestReceivedNonce, in.LatestReceivedNonce))
	for n := range in.Relayers {
		if n <= confirmed {
			delete(in.Relayers, n)
		}
	}
	in.LatestConfirmedNonce = confirmed
	if unconfirmed := p.Nonces.End - confirmed; unconfirmed > c.config.MaxUnconfirmed {
		return core.ErrRejected.Wrapf("lane %s would hold %d unconfirmed messages, max %d", p.Lane, unconfirmed, c.config.MaxUnconfirmed)
	}
	for n := begin; n <= p.Nonces.End; n++ {
		in.Relayers[n] = relayer
	}
	in.LatestReceivedNonce = p.Nonces.End
	return nil
}

func (c *Chain) receiveConfirmation(st *chainState, p *core.Payload) error {
	values, err := c.verifyStorageProof(st, p)
	if err != nil {
		return err
	}
	bz, ok := values[inboundKey(p.Lane)]
	if !ok {
		return core.ErrRejected.Wrapf("inbound lane %s is not proven", p.Lane)
	}
	inbound, err := decodeLaneStateLeaf(bz)
	if err != nil {
		return core.ErrRejected.Wrapf("malformed inbound lane state: %v", err)
	}

	out := st.outbound(p.Lane)
	received := inbound.LatestReceivedNonce
	if received <= out.LatestReceivedNonce {
		return core.ErrStale.Wrapf("delivery of lane %s is already confirmed up to %d", p.Lane, out.LatestReceivedNonce)
	}
	if received > out.LatestGeneratedNonce {
		return core.ErrRejected.Wrapf("lane %s confirms nonce %d beyond generated %d", p.Lane, received, out.LatestGeneratedNonce)
	}
	out.LatestReceivedNonce = received
	for n := range out.Messages {
		if n <= received {
			delete(out.Messages, n)
		}
	}
	out.OldestUnprunedNonce = received + 1
	return nil
}

// AwaitInclusion polls the receipt of the transaction until it is sealed in a block
func (c *Chain) AwaitInclusion(ctx context.Context, handle core.SubmissionHandle, timeout time.Duration) (*core.InclusionResult, error) {
	if handle == nil {
		return nil, fmt.Errorf("no submission handle")
	}
	txID := handle.ID()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	interval := inclusionPollInterval
	if timeout > 0 && timeout < interval {
		interval = timeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := c.checkInclusion(ctx, txID)
		if err != nil || res != nil {
			return res, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return &core.InclusionResult{Status: core.InclusionTimedOut}, nil
		case <-ticker.C:
		}
	}
}

func (c *Chain) checkInclusion(ctx context.Context, txID string) (*core.InclusionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.advance(ctx); err != nil {
		return nil, err
	}
	r, err := c.store.receipt(txID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return &core.InclusionResult{Status: core.InclusionIncluded, Block: r.Block}, nil
	}
	if slices.Contains(c.pendingTxs, txID) {
		return nil, nil
	}
	return &core.InclusionResult{
		Status: core.InclusionRejected,
		Reason: "unknown transaction",
		Err:    core.ErrRejected.Wrapf("transaction %s is unknown to %s", txID, c.ChainID()),
	}, nil
}
