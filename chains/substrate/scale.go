package substrate

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/snowfork/go-substrate-rpc-client/v4/scale"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// rawEncoded is a value that is already SCALE encoded. It is written as is into a call.
type rawEncoded []byte

func (r rawEncoded) Encode(encoder scale.Encoder) error {
	return encoder.Write(r)
}

// headerID is `HeaderId(number, hash)` of the bridged chain
type headerID struct {
	Number types.U32
	Hash   types.Hash
}

type outboundLaneData struct {
	OldestUnprunedNonce  types.U64
	LatestReceivedNonce  types.U64
	LatestGeneratedNonce types.U64
}

func defaultOutboundLaneData() outboundLaneData {
	return outboundLaneData{OldestUnprunedNonce: 1}
}

func (d outboundLaneData) toState(lane core.LaneID, at uint64) *core.OutboundLaneState {
	return &core.OutboundLaneState{
		Lane:                 lane,
		OldestUnprunedNonce:  uint64(d.OldestUnprunedNonce),
		LatestReceivedNonce:  uint64(d.LatestReceivedNonce),
		LatestGeneratedNonce: uint64(d.LatestGeneratedNonce),
		AtBlock:              at,
	}
}

// bitVec is a `BitVec<u8, Msb0>`
type bitVec struct {
	Len   uint64
	Bytes []byte
}

func (b bitVec) Encode(encoder scale.Encoder) error {
	if err := encoder.EncodeUintCompact(*new(big.Int).SetUint64(b.Len)); err != nil {
		return err
	}
	return encoder.Write(b.Bytes)
}

func (b *bitVec) Decode(decoder scale.Decoder) error {
	n, err := decoder.DecodeUintCompact()
	if err != nil {
		return err
	}
	if !n.IsUint64() {
		return fmt.Errorf("bitvec length overflows: %s", n)
	}
	b.Len = n.Uint64()
	b.Bytes = make([]byte, (b.Len+7)/8)
	return decoder.Read(b.Bytes)
}

// Bit returns the i-th bit, most significant bit first
func (b bitVec) Bit(i uint64) bool {
	if i >= b.Len {
		return false
	}
	return b.Bytes[i/8]&(0x80>>(i%8)) != 0
}

type deliveredMessages struct {
	Begin           types.U64
	End             types.U64
	DispatchResults bitVec
}

type unrewardedRelayer struct {
	Relayer  [32]byte
	Messages deliveredMessages
}

type inboundLaneData struct {
	Relayers           []unrewardedRelayer
	LastConfirmedNonce types.U64
}

// lastDeliveredNonce is the end of the newest relayer entry, or the last confirmed nonce when all entries are pruned
func (d inboundLaneData) lastDeliveredNonce() uint64 {
	if len(d.Relayers) == 0 {
		return uint64(d.LastConfirmedNonce)
	}
	return uint64(d.Relayers[len(d.Relayers)-1].Messages.End)
}

func (d inboundLaneData) toState(lane core.LaneID, at uint64) *core.InboundLaneState {
	return &core.InboundLaneState{
		Lane:                 lane,
		LatestReceivedNonce:  d.lastDeliveredNonce(),
		LatestConfirmedNonce: uint64(d.LastConfirmedNonce),
		AtBlock:              at,
	}
}

type unrewardedRelayersState struct {
	UnrewardedRelayerEntries types.U64
	MessagesInOldestEntry    types.U64
	TotalMessages            types.U64
	LastDeliveredNonce       types.U64
}

func (d inboundLaneData) relayersState() unrewardedRelayersState {
	s := unrewardedRelayersState{
		UnrewardedRelayerEntries: types.U64(len(d.Relayers)),
		LastDeliveredNonce:       types.U64(d.lastDeliveredNonce()),
	}
	if len(d.Relayers) > 0 {
		oldest := d.Relayers[0].Messages
		newest := d.Relayers[len(d.Relayers)-1].Messages
		s.MessagesInOldestEntry = oldest.End - oldest.Begin + 1
		s.TotalMessages = newest.End - oldest.Begin + 1
	}
	return s
}

// messageKey is the key of `OutboundMessages`
func messageKey(lane core.LaneID, nonce uint64) []byte {
	bz := make([]byte, 0, 12)
	bz = append(bz, lane[:]...)
	return binary.LittleEndian.AppendUint64(bz, nonce)
}

// messagesProof is `FromBridgedChainMessagesProof`
type messagesProof struct {
	BridgedHeaderHash types.Hash
	StorageProof      [][]byte
	Lane              [4]byte
	NoncesStart       types.U64
	NoncesEnd         types.U64
}

// messagesDeliveryProof is `FromBridgedChainMessagesDeliveryProof`
type messagesDeliveryProof struct {
	BridgedHeaderHash types.Hash
	StorageProof      [][]byte
	Lane              [4]byte
}

// deliveryConfirmation holds the arguments of `receive_messages_delivery_proof`
type deliveryConfirmation struct {
	Proof         messagesDeliveryProof
	RelayersState unrewardedRelayersState
}

// finalityProof is the result of `grandpa_proveFinality`
type finalityProof struct {
	Block          types.Hash
	Justification  types.Bytes
	UnknownHeaders []types.Header
}

type authority struct {
	ID     [32]byte
	Weight types.U64
}

// grandpaFinality is the finality proof of a header fact.
// The authority set is carried so that the fact can also initialize a bridge.
type grandpaFinality struct {
	Justification types.Bytes
	SetID         types.U64
	Authorities   []authority
}

// initializationData is the argument of `initialize` of the grandpa pallet
type initializationData struct {
	Header        rawEncoded
	AuthorityList []authority
	SetID         types.U64
	// OperatingMode 0 is `Normal`
	OperatingMode types.U8
}
