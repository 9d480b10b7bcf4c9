package substrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/snowfork/go-substrate-rpc-client/v4/signature"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

// Chain is a substrate chain running a GRANDPA light client of its counterparty
// (`pallet-bridge-grandpa`) and `pallet-bridge-messages`.
type Chain struct {
	config ChainConfig

	homePath string
	timeout  time.Duration
	debug    bool

	kp           signature.KeyringPair
	conn         *Connection
	counterparty string
	lanes        []core.LaneID

	// mu serializes the submissions of the relayer account
	mu          sync.Mutex
	nonce       uint32
	nonceLoaded bool
}

var _ core.Chain = (*Chain)(nil)

func (c *Chain) ChainID() string {
	return c.config.ChainID
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

// Address returns the SS58 address of the relayer account
func (c *Chain) Address() string {
	return c.kp.Address
}

func (c *Chain) logger() *log.RelayLogger {
	return log.GetLogger().WithChain(c.config.ChainID).WithModule("substrate")
}

func (c *Chain) Init(homePath string, timeout time.Duration, debug bool) error {
	if err := c.config.Validate(); err != nil {
		return err
	}
	kp, err := signature.KeyringPairFromSecret(c.config.PrivateKey, c.config.SS58Prefix)
	if err != nil {
		return core.ErrSigner.Wrap(err.Error())
	}
	c.homePath = homePath
	c.timeout = timeout
	c.debug = debug
	c.kp = kp
	c.conn = NewConnection(c.config.Endpoint, &c.kp)
	c.counterparty = c.config.BridgedChain
	return nil
}

func (c *Chain) SetRelayInfo(counterpartyChainID string, lanes []core.LaneID) error {
	if counterpartyChainID != c.config.BridgedChain {
		return core.ErrInvalidConfig.Wrapf("%s is bridged with %s, not %s", c.ChainID(), c.config.BridgedChain, counterpartyChainID)
	}
	c.counterparty = counterpartyChainID
	c.lanes = lanes
	return nil
}

// SetupForRelay connects to the node and loads the nonce of the relayer account
func (c *Chain) SetupForRelay(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadNonce()
}

func (c *Chain) connect(ctx context.Context) error {
	if c.conn == nil {
		return core.ErrInvalidConfig.Wrapf("%s is not initialized", c.ChainID())
	}
	if err := c.conn.Connect(ctx); err != nil {
		return core.ErrTransient.Wrapf("failed to connect to %s: %v", c.config.Endpoint, err)
	}
	return nil
}

// blockAt returns the block the query context points to. Height zero is the finalized head.
func (c *Chain) blockAt(ctx core.QueryContext) (types.Hash, uint64, error) {
	if err := c.connect(ctx.Context()); err != nil {
		return types.Hash{}, 0, err
	}
	api := c.conn.API()
	if ctx.Height() == 0 {
		hash, header, err := c.conn.GetFinalizedHeader()
		if err != nil {
			return types.Hash{}, 0, rpcError(err)
		}
		return hash, uint64(header.Number), nil
	}
	hash, err := api.RPC.Chain.GetBlockHash(ctx.Height())
	if err != nil {
		return types.Hash{}, 0, rpcError(err)
	}
	return hash, ctx.Height(), nil
}

func (c *Chain) ReadFinalizedHeader(ctx context.Context) (*core.HeaderFact, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	_, header, err := c.conn.GetFinalizedHeader()
	if err != nil {
		return nil, rpcError(err)
	}
	return c.readHeaderFact(uint64(header.Number))
}

// readHeaderFact returns the header justified by the finality proof of the given block.
// The node may answer with a later header, e.g. the last block of the authority set.
func (c *Chain) readHeaderFact(number uint64) (*core.HeaderFact, error) {
	api := c.conn.API()

	var res *string
	if err := api.Client.Call(&res, "grandpa_proveFinality", number); err != nil {
		return nil, rpcError(err)
	}
	if res == nil {
		return nil, core.ErrTransient.Wrapf("no finality proof for block %d of %s", number, c.ChainID())
	}
	bz, err := hexutil.Decode(*res)
	if err != nil {
		return nil, err
	}
	var proof finalityProof
	if err := types.DecodeFromBytes(bz, &proof); err != nil {
		return nil, fmt.Errorf("failed to decode finality proof: %w", err)
	}

	header, err := api.RPC.Chain.GetHeader(proof.Block)
	if err != nil {
		return nil, rpcError(err)
	}
	headerBytes, err := types.EncodeToBytes(*header)
	if err != nil {
		return nil, err
	}

	setID, err := c.currentSetID(proof.Block)
	if err != nil {
		return nil, err
	}
	parentSetID, err := c.currentSetID(header.ParentHash)
	if err != nil {
		return nil, err
	}
	authorities, err := c.grandpaAuthorities(proof.Block)
	if err != nil {
		return nil, err
	}
	finality, err := types.EncodeToBytes(grandpaFinality{
		Justification: proof.Justification,
		SetID:         types.U64(setID),
		Authorities:   authorities,
	})
	if err != nil {
		return nil, err
	}

	return &core.HeaderFact{
		ChainID:       c.ChainID(),
		Number:        uint64(header.Number),
		Hash:          common.Hash(proof.Block),
		Header:        headerBytes,
		FinalityProof: finality,
		Mandatory:     setID != parentSetID,
	}, nil
}

func (c *Chain) currentSetID(at types.Hash) (uint64, error) {
	key, err := types.CreateStorageKey(c.conn.Metadata(), "Grandpa", "CurrentSetId", nil)
	if err != nil {
		return 0, fmt.Errorf("create storage key for CurrentSetId: %w", err)
	}
	var setID types.U64
	if _, err := c.conn.API().RPC.State.GetStorage(key, &setID, at); err != nil {
		return 0, rpcError(err)
	}
	return uint64(setID), nil
}

func (c *Chain) grandpaAuthorities(at types.Hash) ([]authority, error) {
	var res string
	if err := c.conn.API().Client.Call(&res, "state_call", "GrandpaApi_grandpa_authorities", "0x", hexutil.Encode(at[:])); err != nil {
		return nil, rpcError(err)
	}
	bz, err := hexutil.Decode(res)
	if err != nil {
		return nil, err
	}
	var authorities []authority
	if err := types.DecodeFromBytes(bz, &authorities); err != nil {
		return nil, fmt.Errorf("failed to decode grandpa authorities: %w", err)
	}
	return authorities, nil
}

// ReadBestBridgedHeader reads `BestFinalized` of the grandpa pallet at the finalized head
func (c *Chain) ReadBestBridgedHeader(ctx context.Context) (*core.HeaderFact, error) {
	hash, _, err := c.blockAt(core.NewQueryContext(ctx, 0))
	if err != nil {
		return nil, err
	}
	key, err := types.CreateStorageKey(c.conn.Metadata(), c.config.GrandpaPallet, "BestFinalized", nil)
	if err != nil {
		return nil, fmt.Errorf("create storage key for BestFinalized: %w", err)
	}
	var best headerID
	ok, err := c.conn.API().RPC.State.GetStorage(key, &best, hash)
	if err != nil {
		return nil, rpcError(err)
	}
	if !ok {
		return nil, nil
	}
	return &core.HeaderFact{
		ChainID: c.counterparty,
		Number:  uint64(best.Number),
		Hash:    common.Hash(best.Hash),
	}, nil
}

// ReadMandatoryHeaders returns the headers enacting an authority set change in [from, to]
func (c *Chain) ReadMandatoryHeaders(ctx context.Context, from, to uint64) ([]*core.HeaderFact, error) {
	_, finalized, err := c.blockAt(core.NewQueryContext(ctx, 0))
	if err != nil {
		return nil, err
	}
	if to > finalized {
		to = finalized
	}
	changes, err := findSetChanges(from, to, func(n uint64) (uint64, error) {
		hash, err := c.conn.API().RPC.Chain.GetBlockHash(n)
		if err != nil {
			return 0, rpcError(err)
		}
		return c.currentSetID(hash)
	})
	if err != nil {
		return nil, err
	}

	facts := make([]*core.HeaderFact, 0, len(changes))
	for _, n := range changes {
		fact, err := c.readHeaderFact(n)
		if err != nil {
			return nil, err
		}
		if fact.Number != n {
			return nil, core.ErrTransient.Wrapf("finality proof of block %d justifies block %d", n, fact.Number)
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// findSetChanges returns the blocks in [from, to] whose set id differs from the one of their parent.
// Set ids never decrease, so ranges with equal ids at both ends are skipped.
func findSetChanges(from, to uint64, setIDAt func(uint64) (uint64, error)) ([]uint64, error) {
	if from == 0 {
		from = 1
	}
	if from > to {
		return nil, nil
	}
	before, err := setIDAt(from - 1)
	if err != nil {
		return nil, err
	}
	last, err := setIDAt(to)
	if err != nil {
		return nil, err
	}

	var changes []uint64
	// idBefore is the set id of lo-1 and idAtHi the one of hi
	var search func(lo, hi, idBefore, idAtHi uint64) error
	search = func(lo, hi, idBefore, idAtHi uint64) error {
		if idBefore == idAtHi {
			return nil
		}
		if lo == hi {
			changes = append(changes, lo)
			return nil
		}
		mid := lo + (hi-lo)/2
		idMid, err := setIDAt(mid)
		if err != nil {
			return err
		}
		if err := search(lo, mid, idBefore, idMid); err != nil {
			return err
		}
		return search(mid+1, hi, idMid, idAtHi)
	}
	if err := search(from, to, before, last); err != nil {
		return nil, err
	}
	return changes, nil
}

func (c *Chain) ReadOutboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.OutboundLaneState, error) {
	hash, number, err := c.blockAt(ctx)
	if err != nil {
		return nil, err
	}
	data := defaultOutboundLaneData()
	if _, err := c.readLaneStorage("OutboundLanes", lane, hash, &data); err != nil {
		return nil, err
	}
	return data.toState(lane, number), nil
}

func (c *Chain) ReadInboundLaneState(ctx core.QueryContext, lane core.LaneID) (*core.InboundLaneState, error) {
	hash, number, err := c.blockAt(ctx)
	if err != nil {
		return nil, err
	}
	var data inboundLaneData
	if _, err := c.readLaneStorage("InboundLanes", lane, hash, &data); err != nil {
		return nil, err
	}
	return data.toState(lane, number), nil
}

func (c *Chain) laneStorageKey(item string, lane core.LaneID) (types.StorageKey, error) {
	key, err := types.CreateStorageKey(c.conn.Metadata(), c.config.MessagesPallet, item, lane[:])
	if err != nil {
		return nil, fmt.Errorf("create storage key for %s: %w", item, err)
	}
	return key, nil
}

func (c *Chain) readLaneStorage(item string, lane core.LaneID, at types.Hash, target any) (bool, error) {
	key, err := c.laneStorageKey(item, lane)
	if err != nil {
		return false, err
	}
	ok, err := c.conn.API().RPC.State.GetStorage(key, target, at)
	if err != nil {
		return false, rpcError(err)
	}
	return ok, nil
}

// ProveMessages proves the messages in the range together with the outbound lane data
func (c *Chain) ProveMessages(ctx core.QueryContext, lane core.LaneID, nonces core.NonceRange) ([]byte, error) {
	if nonces.Empty() {
		return nil, core.ErrRejected.Wrapf("no message to prove in %s", nonces)
	}
	hash, _, err := c.blockAt(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]types.StorageKey, 0, nonces.Size()+1)
	for n := nonces.Begin; n <= nonces.End; n++ {
		key, err := types.CreateStorageKey(c.conn.Metadata(), c.config.MessagesPallet, "OutboundMessages", messageKey(lane, n))
		if err != nil {
			return nil, fmt.Errorf("create storage key for OutboundMessages: %w", err)
		}
		keys = append(keys, key)
	}
	laneKey, err := c.laneStorageKey("OutboundLanes", lane)
	if err != nil {
		return nil, err
	}
	keys = append(keys, laneKey)

	storageProof, err := c.readProof(keys, hash)
	if err != nil {
		return nil, err
	}
	return types.EncodeToBytes(messagesProof{
		BridgedHeaderHash: hash,
		StorageProof:      storageProof,
		Lane:              lane,
		NoncesStart:       types.U64(nonces.Begin),
		NoncesEnd:         types.U64(nonces.End),
	})
}

// ProveInboundLane proves the inbound lane data and attaches the unrewarded relayers state it commits to
func (c *Chain) ProveInboundLane(ctx core.QueryContext, lane core.LaneID) ([]byte, error) {
	hash, _, err := c.blockAt(ctx)
	if err != nil {
		return nil, err
	}
	var data inboundLaneData
	if _, err := c.readLaneStorage("InboundLanes", lane, hash, &data); err != nil {
		return nil, err
	}
	key, err := c.laneStorageKey("InboundLanes", lane)
	if err != nil {
		return nil, err
	}
	storageProof, err := c.readProof([]types.StorageKey{key}, hash)
	if err != nil {
		return nil, err
	}
	return types.EncodeToBytes(deliveryConfirmation{
		Proof: messagesDeliveryProof{
			BridgedHeaderHash: hash,
			StorageProof:      storageProof,
			Lane:              lane,
		},
		RelayersState: data.relayersState(),
	})
}

type readProofResponse struct {
	At    string   `json:"at"`
	Proof []string `json:"proof"`
}

func (c *Chain) readProof(keys []types.StorageKey, at types.Hash) ([][]byte, error) {
	hexKeys := make([]string, len(keys))
	for i, key := range keys {
		hexKeys[i] = hexutil.Encode(key)
	}
	var res readProofResponse
	if err := c.conn.API().Client.Call(&res, "state_getReadProof", hexKeys, hexutil.Encode(at[:])); err != nil {
		return nil, rpcError(err)
	}
	proof := make([][]byte, len(res.Proof))
	for i, node := range res.Proof {
		bz, err := hexutil.Decode(node)
		if err != nil {
			return nil, fmt.Errorf("failed to decode read proof: %w", err)
		}
		proof[i] = bz
	}
	return proof, nil
}
