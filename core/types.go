package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LaneID identifies a message lane between two bridged chains.
type LaneID [4]byte

// ParseLaneID parses a hex-encoded lane id with or without the `0x` prefix.
func ParseLaneID(s string) (LaneID, error) {
	var id LaneID
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	bz, err := hexutil.Decode(s)
	if err != nil {
		return id, ErrInvalidConfig.Wrapf("invalid lane id %q: %v", s, err)
	}
	if len(bz) != len(id) {
		return id, ErrInvalidConfig.Wrapf("invalid lane id %q: expected %d bytes, got %d", s, len(id), len(bz))
	}
	copy(id[:], bz)
	return id, nil
}

// MustParseLaneID is like ParseLaneID but panics on error.
func MustParseLaneID(s string) LaneID {
	id, err := ParseLaneID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id LaneID) String() string {
	return strings.TrimPrefix(hexutil.Encode(id[:]), "0x")
}

func (id LaneID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *LaneID) UnmarshalText(text []byte) error {
	parsed, err := ParseLaneID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// HeaderFact represents a finalized header of a chain together with the proof of its finality.
type HeaderFact struct {
	ChainID       string      `json:"chain_id"`
	Number        uint64      `json:"number"`
	Hash          common.Hash `json:"hash"`
	Header        []byte      `json:"header,omitempty"`
	FinalityProof []byte      `json:"finality_proof,omitempty"`
	// Mandatory is set for headers that the bridged light client cannot skip,
	// e.g. headers enacting an authority set change.
	Mandatory bool `json:"mandatory,omitempty"`
}

// NewerThan reports whether h has a higher number than other. A nil header is older than any header.
func (h *HeaderFact) NewerThan(other *HeaderFact) bool {
	if h == nil {
		return false
	}
	return other == nil || h.Number > other.Number
}

func (h *HeaderFact) String() string {
	if h == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d(%s)", h.ChainID, h.Number, h.Hash.TerminalString())
}

// headerNumber returns the number of h, or zero if h is nil
func headerNumber(h *HeaderFact) uint64 {
	if h == nil {
		return 0
	}
	return h.Number
}

// NonceRange is an inclusive range of message nonces.
type NonceRange struct {
	Begin uint64 `json:"begin"`
	End   uint64 `json:"end"`
}

func (r NonceRange) Empty() bool {
	return r.Begin == 0 || r.End < r.Begin
}

func (r NonceRange) Size() uint64 {
	if r.Empty() {
		return 0
	}
	return r.End - r.Begin + 1
}

func (r NonceRange) Contains(nonce uint64) bool {
	return !r.Empty() && r.Begin <= nonce && nonce <= r.End
}

func (r NonceRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Begin, r.End)
}

// OutboundLaneState is the state of a lane on the sending chain.
type OutboundLaneState struct {
	Lane LaneID `json:"lane"`
	// OldestUnprunedNonce is the nonce of the oldest message that is still kept in storage
	OldestUnprunedNonce uint64 `json:"oldest_unpruned_nonce"`
	// LatestReceivedNonce is the highest nonce the sending chain knows to be delivered
	LatestReceivedNonce uint64 `json:"latest_received_nonce"`
	// LatestGeneratedNonce is the highest nonce ever enqueued
	LatestGeneratedNonce uint64 `json:"latest_generated_nonce"`
	// AtBlock is the number of the block at which this snapshot has been read
	AtBlock uint64 `json:"at_block"`
}

func (s *OutboundLaneState) Validate() error {
	if s.LatestReceivedNonce > s.LatestGeneratedNonce {
		return ErrInvariant.Wrapf("lane %s: outbound latest_received_nonce(%d) > latest_generated_nonce(%d)",
			s.Lane, s.LatestReceivedNonce, s.LatestGeneratedNonce)
	}
	if s.OldestUnprunedNonce > s.LatestReceivedNonce+1 {
		return ErrInvariant.Wrapf("lane %s: outbound oldest_unpruned_nonce(%d) > latest_received_nonce(%d)+1",
			s.Lane, s.OldestUnprunedNonce, s.LatestReceivedNonce)
	}
	return nil
}

// InboundLaneState is the state of a lane on the receiving chain.
type InboundLaneState struct {
	Lane LaneID `json:"lane"`
	// LatestReceivedNonce is the highest nonce delivered to the receiving chain
	LatestReceivedNonce uint64 `json:"latest_received_nonce"`
	// LatestConfirmedNonce is the highest nonce whose delivery has been confirmed back to the sending chain
	LatestConfirmedNonce uint64 `json:"latest_confirmed_nonce"`
	AtBlock              uint64 `json:"at_block"`
}

func (s *InboundLaneState) Validate() error {
	if s.LatestConfirmedNonce > s.LatestReceivedNonce {
		return ErrInvariant.Wrapf("lane %s: inbound latest_confirmed_nonce(%d) > latest_received_nonce(%d)",
			s.Lane, s.LatestConfirmedNonce, s.LatestReceivedNonce)
	}
	return nil
}

// RelayProgress summarizes the header relay progress of a direction.
type RelayProgress struct {
	BestRelayed   *HeaderFact `json:"best_relayed"`
	BestAvailable *HeaderFact `json:"best_available"`
}

// SubmissionKind is the kind of a transaction submitted by the relayer.
type SubmissionKind int

const (
	SubmissionHeaderRelay SubmissionKind = iota
	SubmissionMessageDelivery
	SubmissionReceiptConfirmation
	SubmissionInitBridge
)

func (k SubmissionKind) String() string {
	switch k {
	case SubmissionHeaderRelay:
		return "header_relay"
	case SubmissionMessageDelivery:
		return "message_delivery"
	case SubmissionReceiptConfirmation:
		return "receipt_confirmation"
	case SubmissionInitBridge:
		return "init_bridge"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Payload is the chain-agnostic content of a transaction. Chain implementations encode and sign it.
type Payload struct {
	Kind SubmissionKind `json:"kind"`

	// Header is set for SubmissionHeaderRelay and SubmissionInitBridge
	Header *HeaderFact `json:"header,omitempty"`

	Lane LaneID `json:"lane"`
	// Nonces is set for SubmissionMessageDelivery
	Nonces NonceRange `json:"nonces"`
	// UpToNonce is set for SubmissionReceiptConfirmation
	UpToNonce uint64 `json:"up_to_nonce,omitempty"`

	// ProofAt is the header of the proving chain at which Proof has been built
	ProofAt *HeaderFact `json:"proof_at,omitempty"`
	Proof   []byte      `json:"proof,omitempty"`
}

func (p *Payload) String() string {
	switch p.Kind {
	case SubmissionHeaderRelay, SubmissionInitBridge:
		return fmt.Sprintf("%s{header=%s}", p.Kind, p.Header)
	case SubmissionMessageDelivery:
		return fmt.Sprintf("%s{lane=%s, nonces=%s}", p.Kind, p.Lane, p.Nonces)
	case SubmissionReceiptConfirmation:
		return fmt.Sprintf("%s{lane=%s, up_to=%d}", p.Kind, p.Lane, p.UpToNonce)
	default:
		return p.Kind.String()
	}
}

// SubmissionHandle identifies a submitted transaction until its inclusion is resolved.
type SubmissionHandle interface {
	ID() string
}

// PendingSubmission tracks a payload through one submit-confirm cycle.
type PendingSubmission struct {
	Payload          *Payload
	AttemptCount     uint
	FirstAttemptTime time.Time
	Handle           SubmissionHandle
}

// InclusionStatus is the outcome of waiting for a submitted transaction.
type InclusionStatus int

const (
	InclusionIncluded InclusionStatus = iota
	InclusionTimedOut
	InclusionRejected
)

func (s InclusionStatus) String() string {
	switch s {
	case InclusionIncluded:
		return "included"
	case InclusionTimedOut:
		return "timed_out"
	case InclusionRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// InclusionResult is returned by Chain.AwaitInclusion.
type InclusionResult struct {
	Status InclusionStatus
	// Block is the number of the block that includes the transaction
	Block uint64
	// Reason describes a rejection
	Reason string
	// Err classifies a rejection with the errors of this package (ErrStale, ErrRejected, ...)
	Err error
}
