package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cometbft/cometbft/crypto/merkle"
	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

type outboundLaneData struct {
	OldestUnprunedNonce  uint64 `json:"oldest_unpruned_nonce"`
	LatestReceivedNonce  uint64 `json:"latest_received_nonce"`
	LatestGeneratedNonce uint64 `json:"latest_generated_nonce"`
	// Messages holds the unpruned messages keyed by nonce
	Messages map[uint64][]byte `json:"messages"`
}

type inboundLaneData struct {
	LatestReceivedNonce  uint64 `json:"latest_received_nonce"`
	LatestConfirmedNonce uint64 `json:"latest_confirmed_nonce"`
	// Relayers records the relayer address of each delivered nonce that is not confirmed yet
	Relayers map[uint64]string `json:"relayers"`
}

// bridgedHeader is a header of the counterparty chain imported by this chain
type bridgedHeader struct {
	Number    uint64      `json:"number"`
	Hash      common.Hash `json:"hash"`
	StateRoot []byte      `json:"state_root"`
	// NextSetID is the authority set expected to finalize the next imported header
	NextSetID uint64 `json:"next_set_id"`
}

// chainState is the state of a mock chain at a block
type chainState struct {
	Outbound map[core.LaneID]*outboundLaneData `json:"outbound"`
	Inbound  map[core.LaneID]*inboundLaneData  `json:"inbound"`
	// Bridged holds the imported counterparty headers keyed by number
	Bridged map[uint64]*bridgedHeader `json:"bridged"`
	// BestBridged is the number of the best imported header, valid only if Bridged is not empty
	BestBridged uint64 `json:"best_bridged"`
}

func newChainState() *chainState {
	return &chainState{
		Outbound: make(map[core.LaneID]*outboundLaneData),
		Inbound:  make(map[core.LaneID]*inboundLaneData),
		Bridged:  make(map[uint64]*bridgedHeader),
	}
}

func (s *chainState) clone() (*chainState, error) {
	bz, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return decodeChainState(bz)
}

func decodeChainState(bz []byte) (*chainState, error) {
	s := newChainState()
	if err := json.Unmarshal(bz, s); err != nil {
		return nil, err
	}
	for _, data := range s.Outbound {
		if data.Messages == nil {
			data.Messages = make(map[uint64][]byte)
		}
	}
	for _, data := range s.Inbound {
		if data.Relayers == nil {
			data.Relayers = make(map[uint64]string)
		}
	}
	return s, nil
}

func (s *chainState) outbound(lane core.LaneID) *outboundLaneData {
	if data, ok := s.Outbound[lane]; ok {
		return data
	}
	data := &outboundLaneData{OldestUnprunedNonce: 1, Messages: make(map[uint64][]byte)}
	s.Outbound[lane] = data
	return data
}

func (s *chainState) inbound(lane core.LaneID) *inboundLaneData {
	if data, ok := s.Inbound[lane]; ok {
		return data
	}
	data := &inboundLaneData{Relayers: make(map[uint64]string)}
	s.Inbound[lane] = data
	return data
}

func (s *chainState) bestBridged() *bridgedHeader {
	if len(s.Bridged) == 0 {
		return nil
	}
	return s.Bridged[s.BestBridged]
}

// state keys committed by the state root
func outboundKey(lane core.LaneID) string {
	return fmt.Sprintf("outbound/%s", lane)
}

func inboundKey(lane core.LaneID) string {
	return fmt.Sprintf("inbound/%s", lane)
}

func messageKey(lane core.LaneID, nonce uint64) string {
	return fmt.Sprintf("message/%s/%016x", lane, nonce)
}

type laneStateLeaf struct {
	OldestUnprunedNonce  uint64 `json:"oldest_unpruned_nonce,omitempty"`
	LatestReceivedNonce  uint64 `json:"latest_received_nonce"`
	LatestGeneratedNonce uint64 `json:"latest_generated_nonce,omitempty"`
	LatestConfirmedNonce uint64 `json:"latest_confirmed_nonce,omitempty"`
}

// leaves returns the sorted key-value pairs committed by the state root
func (s *chainState) leaves() (map[string][]byte, []string, error) {
	kv := make(map[string][]byte)
	for lane, data := range s.Outbound {
		bz, err := json.Marshal(laneStateLeaf{
			OldestUnprunedNonce:  data.OldestUnprunedNonce,
			LatestReceivedNonce:  data.LatestReceivedNonce,
			LatestGeneratedNonce: data.LatestGeneratedNonce,
		})
		if err != nil {
			return nil, nil, err
		}
		kv[outboundKey(lane)] = bz
		for nonce, msg := range data.Messages {
			kv[messageKey(lane, nonce)] = msg
		}
	}
	for lane, data := range s.Inbound {
		bz, err := json.Marshal(laneStateLeaf{
			LatestReceivedNonce:  data.LatestReceivedNonce,
			LatestConfirmedNonce: data.LatestConfirmedNonce,
		})
		if err != nil {
			return nil, nil, err
		}
		kv[inboundKey(lane)] = bz
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return kv, keys, nil
}

func leafBytes(key string, value []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.Write(tmhash.Sum(value))
	return buf.Bytes()
}

func (s *chainState) items() ([][]byte, map[string]int, map[string][]byte, error) {
	kv, keys, err := s.leaves()
	if err != nil {
		return nil, nil, nil, err
	}
	items := make([][]byte, len(keys))
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		items[i] = leafBytes(k, kv[k])
		index[k] = i
	}
	return items, index, kv, nil
}

// root returns the merkle root of the state
func (s *chainState) root() ([]byte, error) {
	items, _, _, err := s.items()
	if err != nil {
		return nil, err
	}
	return merkle.HashFromByteSlices(items), nil
}

// storageProof proves key-value pairs against the state root of a block
type storageProof struct {
	Number  uint64      `json:"number"`
	Entries []proofItem `json:"entries"`
}

type proofItem struct {
	Key   string        `json:"key"`
	Value []byte        `json:"value"`
	Proof *merkle.Proof `json:"proof"`
}

// prove builds a proof of the given keys at block `number`
func (s *chainState) prove(number uint64, keys ...string) (*storageProof, error) {
	items, index, kv, err := s.items()
	if err != nil {
		return nil, err
	}
	_, proofs := merkle.ProofsFromByteSlices(items)
	proof := &storageProof{Number: number}
	for _, k := range keys {
		i, ok := index[k]
		if !ok {
			return nil, fmt.Errorf("key not found in state at %d: %s", number, k)
		}
		proof.Entries = append(proof.Entries, proofItem{Key: k, Value: kv[k], Proof: proofs[i]})
	}
	return proof, nil
}

// verify checks every entry against the root and returns the proven values by key
func (p *storageProof) verify(root []byte) (map[string][]byte, error) {
	values := make(map[string][]byte, len(p.Entries))
	for _, e := range p.Entries {
		if e.Proof == nil {
			return nil, fmt.Errorf("missing proof of %s", e.Key)
		}
		if err := e.Proof.Verify(root, leafBytes(e.Key, e.Value)); err != nil {
			return nil, fmt.Errorf("invalid proof of %s: %v", e.Key, err)
		}
		values[e.Key] = e.Value
	}
	return values, nil
}

func decodeLaneStateLeaf(bz []byte) (*laneStateLeaf, error) {
	var leaf laneStateLeaf
	if err := json.Unmarshal(bz, &leaf); err != nil {
		return nil, err
	}
	return &leaf, nil
}
