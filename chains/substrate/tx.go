package substrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/snowfork/go-substrate-rpc-client/v4/rpc/author"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// extrinsicHandle tracks an extrinsic submitted with SubmitAndWatchExtrinsic
type extrinsicHandle struct {
	id  string
	sub *author.ExtrinsicStatusSubscription
}

var _ core.SubmissionHandle = (*extrinsicHandle)(nil)

func (h *extrinsicHandle) ID() string {
	return h.id
}

// Submit signs the call carrying the payload with the relayer account and submits it
func (c *Chain) Submit(ctx context.Context, payload *core.Payload) (core.SubmissionHandle, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	name, args, err := c.buildCall(payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.nonceLoaded {
		if err := c.loadNonce(); err != nil {
			return nil, err
		}
	}
	ext, err := c.prepExtrinsic(name, args...)
	if err != nil {
		return nil, err
	}
	sub, err := c.conn.API().RPC.Author.SubmitAndWatchExtrinsic(*ext)
	if err != nil {
		// the pool may know a nonce we do not
		c.nonceLoaded = false
		return nil, classifySubmitError(err)
	}

	handle := &extrinsicHandle{
		id:  fmt.Sprintf("%s/%d", c.kp.Address, c.nonce),
		sub: sub,
	}
	c.nonce++
	c.logger().Debug("extrinsic submitted", "call", name, "handle", handle.id, "payload", payload.String())
	return handle, nil
}

func (c *Chain) buildCall(p *core.Payload) (string, []any, error) {
	switch p.Kind {
	case core.SubmissionInitBridge, core.SubmissionHeaderRelay:
		if p.Header == nil {
			return "", nil, core.ErrRejected.Wrapf("%s without header", p.Kind)
		}
		var finality grandpaFinality
		if err := types.DecodeFromBytes(p.Header.FinalityProof, &finality); err != nil {
			return "", nil, core.ErrRejected.Wrapf("malformed finality proof of %s: %v", p.Header, err)
		}
		if p.Kind == core.SubmissionInitBridge {
			return c.config.GrandpaPallet + ".initialize", []any{initializationData{
				Header:        rawEncoded(p.Header.Header),
				AuthorityList: finality.Authorities,
				SetID:         finality.SetID,
			}}, nil
		}
		// GrandpaJustification is sent as the encoded justification itself
		return c.config.GrandpaPallet + ".submit_finality_proof", []any{
			rawEncoded(p.Header.Header),
			rawEncoded(finality.Justification),
		}, nil
	case core.SubmissionMessageDelivery:
		relayer, err := c.relayerAccount()
		if err != nil {
			return "", nil, err
		}
		return c.config.MessagesPallet + ".receive_messages_proof", []any{
			relayer,
			rawEncoded(p.Proof),
			types.U32(p.Nonces.Size()),
			types.U64(c.config.DispatchWeight * p.Nonces.Size()),
		}, nil
	case core.SubmissionReceiptConfirmation:
		// the proof already carries the unrewarded relayers state argument
		return c.config.MessagesPallet + ".receive_messages_delivery_proof", []any{
			rawEncoded(p.Proof),
		}, nil
	default:
		return "", nil, core.ErrRejected.Wrapf("unsupported submission: %s", p.Kind)
	}
}

func (c *Chain) relayerAccount() ([32]byte, error) {
	var account [32]byte
	if c.config.RelayerAccount == "" {
		copy(account[:], c.kp.PublicKey)
		return account, nil
	}
	bz, err := hexutil.Decode(c.config.RelayerAccount)
	if err != nil || len(bz) != len(account) {
		return account, core.ErrInvalidConfig.Wrapf("malformed relayer account: %s", c.config.RelayerAccount)
	}
	copy(account[:], bz)
	return account, nil
}

// loadNonce must be called with c.mu held
func (c *Chain) loadNonce() error {
	key, err := types.CreateStorageKey(c.conn.Metadata(), "System", "Account", c.kp.PublicKey, nil)
	if err != nil {
		return err
	}
	var accountInfo types.AccountInfo
	ok, err := c.conn.API().RPC.State.GetStorageLatest(key, &accountInfo)
	if err != nil {
		return rpcError(err)
	}
	if !ok {
		return core.ErrSigner.Wrapf("no account info found for %s", c.kp.Address)
	}
	c.nonce = uint32(accountInfo.Nonce)
	c.nonceLoaded = true
	return nil
}

func (c *Chain) prepExtrinsic(name string, args ...any) (*types.Extrinsic, error) {
	api := c.conn.API()
	call, err := types.NewCall(c.conn.Metadata(), name, args...)
	if err != nil {
		return nil, core.ErrRejected.Wrapf("failed to build call %s: %v", name, err)
	}

	latestHash, latestHeader, err := c.conn.GetFinalizedHeader()
	if err != nil {
		return nil, rpcError(err)
	}
	rv, err := api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, rpcError(err)
	}

	ext := types.NewExtrinsic(call)
	o := types.SignatureOptions{
		BlockHash:          latestHash,
		Era:                newMortalEra(uint64(latestHeader.Number), c.config.mortalEraPeriod()),
		GenesisHash:        c.conn.GenesisHash(),
		Nonce:              types.NewUCompactFromUInt(uint64(c.nonce)),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: rv.TransactionVersion,
	}
	if err := ext.Sign(c.kp, o); err != nil {
		return nil, core.ErrSigner.Wrap(err.Error())
	}
	return &ext, nil
}

// AwaitInclusion watches the status of the extrinsic until it is included in a block
func (c *Chain) AwaitInclusion(ctx context.Context, handle core.SubmissionHandle, timeout time.Duration) (*core.InclusionResult, error) {
	h, ok := handle.(*extrinsicHandle)
	if !ok {
		return &core.InclusionResult{
			Status: core.InclusionRejected,
			Reason: fmt.Sprintf("unknown handle: %s", handle.ID()),
			Err:    core.ErrRejected,
		}, nil
	}
	defer h.sub.Unsubscribe()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	// TODO: read System.Events of the inclusion block to report calls that failed on dispatch
	for {
		select {
		case status := <-h.sub.Chan():
			switch {
			case status.IsInBlock:
				return c.included(status.AsInBlock)
			case status.IsFinalized:
				return c.included(status.AsFinalized)
			case status.IsInvalid:
				return rejected(core.ErrRejected, "invalid"), nil
			case status.IsDropped:
				return rejected(core.ErrTransient, "dropped"), nil
			case status.IsUsurped:
				return rejected(core.ErrTransient, "usurped"), nil
			case status.IsFinalityTimeout:
				return &core.InclusionResult{Status: core.InclusionTimedOut}, nil
			}
		case err := <-h.sub.Err():
			return nil, rpcError(err)
		case <-expired:
			return &core.InclusionResult{Status: core.InclusionTimedOut}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Chain) included(blockHash types.Hash) (*core.InclusionResult, error) {
	header, err := c.conn.API().RPC.Chain.GetHeader(blockHash)
	if err != nil {
		return nil, rpcError(err)
	}
	return &core.InclusionResult{
		Status: core.InclusionIncluded,
		Block:  uint64(header.Number),
	}, nil
}

func rejected(class error, reason string) *core.InclusionResult {
	return &core.InclusionResult{
		Status: core.InclusionRejected,
		Reason: "extrinsic " + reason,
		Err:    class,
	}
}

var (
	staleMessages = []string{
		"transaction is outdated",
		"already imported",
		"transaction is stale",
	}
	rejectedMessages = []string{
		"invalid transaction",
		"bad proof",
		"badorigin",
		"bad signature",
		"inability to pay",
		"custom error",
	}
)

// classifySubmitError maps the error returned by the transaction pool of a node to the relay error taxonomy
func classifySubmitError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, staleMessages):
		return core.ErrStale.Wrap(err.Error())
	case containsAny(msg, rejectedMessages):
		return core.ErrRejected.Wrap(err.Error())
	default:
		return core.ErrTransient.Wrap(err.Error())
	}
}

func rpcError(err error) error {
	return core.ErrTransient.Wrap(err.Error())
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
