package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer/local"
)

// header is the header of a mock block. Its hash is the tmhash of its JSON encoding.
type header struct {
	ChainID    string      `json:"chain_id"`
	Number     uint64      `json:"number"`
	ParentHash common.Hash `json:"parent_hash"`
	StateRoot  []byte      `json:"state_root"`
	Time       time.Time   `json:"time"`
	// SetID is the authority set finalizing the block
	SetID uint64 `json:"set_id"`
	// Mandatory blocks hand over finality to the next authority set
	Mandatory bool `json:"mandatory"`
}

func (h *header) nextSetID() uint64 {
	if h.Mandatory {
		return h.SetID + 1
	}
	return h.SetID
}

// block is a sealed block with the finality proof of its header
type block struct {
	Number        uint64      `json:"number"`
	Hash          common.Hash `json:"hash"`
	Header        []byte      `json:"header"`
	Justification []byte      `json:"justification"`
	Time          time.Time   `json:"time"`
	Mandatory     bool        `json:"mandatory"`
}

func (b *block) fact(chainID string) *core.HeaderFact {
	return &core.HeaderFact{
		ChainID:       chainID,
		Number:        b.Number,
		Hash:          b.Hash,
		Header:        b.Header,
		FinalityProof: b.Justification,
		Mandatory:     b.Mandatory,
	}
}

func authoritySetID(number, period uint64) uint64 {
	if period == 0 || number == 0 {
		return 0
	}
	return (number - 1) / period
}

func isMandatory(number, period uint64) bool {
	return period > 0 && number > 0 && number%period == 0
}

// authority returns the key of an authority set of a chain
func authority(chainID string, setID uint64) *local.Signer {
	return local.NewSigner([]byte(fmt.Sprintf("%s/authority/%d", chainID, setID)))
}

// sealBlock builds and finalizes the block with the given state
func sealBlock(ctx context.Context, chainID string, period uint64, parent *block, st *chainState, now time.Time) (*block, error) {
	var (
		number     uint64
		parentHash common.Hash
	)
	if parent != nil {
		number = parent.Number + 1
		parentHash = parent.Hash
	}
	root, err := st.root()
	if err != nil {
		return nil, err
	}
	h := &header{
		ChainID:    chainID,
		Number:     number,
		ParentHash: parentHash,
		StateRoot:  root,
		Time:       now.UTC(),
		SetID:      authoritySetID(number, period),
		Mandatory:  isMandatory(number, period),
	}
	bz, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	hash := common.BytesToHash(tmhash.Sum(bz))
	justification, err := authority(chainID, h.SetID).Sign(ctx, hash[:])
	if err != nil {
		return nil, err
	}
	return &block{
		Number:        number,
		Hash:          hash,
		Header:        bz,
		Justification: justification,
		Time:          h.Time,
		Mandatory:     h.Mandatory,
	}, nil
}

// verifyHeader checks that the header fact is a block of chainID finalized by its authority set
func verifyHeader(ctx context.Context, chainID string, fact *core.HeaderFact) (*header, error) {
	if fact == nil {
		return nil, fmt.Errorf("no header")
	}
	if hash := common.BytesToHash(tmhash.Sum(fact.Header)); hash != fact.Hash {
		return nil, fmt.Errorf("header hash mismatch: %s != %s", hash, fact.Hash)
	}
	var h header
	if err := json.Unmarshal(fact.Header, &h); err != nil {
		return nil, fmt.Errorf("malformed header: %v", err)
	}
	if h.ChainID != chainID || h.Number != fact.Number {
		return nil, fmt.Errorf("header %s#%d does not match %s", h.ChainID, h.Number, fact)
	}
	pub, err := authority(chainID, h.SetID).GetPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	if !local.Verify(pub, fact.Hash[:], fact.FinalityProof) {
		return nil, fmt.Errorf("invalid finality proof of %s by authority set %d", fact, h.SetID)
	}
	return &h, nil
}
