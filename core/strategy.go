package core

import (
	"bytes"
	"fmt"
	"slices"
)

// RelayActionKind is the kind of a message relay action
type RelayActionKind int

const (
	ActionIdle RelayActionKind = iota
	ActionDeliverMessages
	ActionConfirmReceipts
)

func (k RelayActionKind) String() string {
	switch k {
	case ActionIdle:
		return "idle"
	case ActionDeliverMessages:
		return "deliver_messages"
	case ActionConfirmReceipts:
		return "confirm_receipts"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RelayAction is the next step decided by MessageRelayStrategy
type RelayAction struct {
	Kind RelayActionKind
	Lane LaneID
	// Nonces is set for ActionDeliverMessages
	Nonces NonceRange
	// UpToNonce is set for ActionConfirmReceipts
	UpToNonce uint64
}

func IdleAction() RelayAction {
	return RelayAction{Kind: ActionIdle}
}

func DeliverMessagesAction(lane LaneID, nonces NonceRange) RelayAction {
	return RelayAction{Kind: ActionDeliverMessages, Lane: lane, Nonces: nonces}
}

func ConfirmReceiptsAction(lane LaneID, upTo uint64) RelayAction {
	return RelayAction{Kind: ActionConfirmReceipts, Lane: lane, UpToNonce: upTo}
}

func (a RelayAction) String() string {
	switch a.Kind {
	case ActionDeliverMessages:
		return fmt.Sprintf("DeliverMessages{lane=%s, nonces=%s}", a.Lane, a.Nonces)
	case ActionConfirmReceipts:
		return fmt.Sprintf("ConfirmReceipts{lane=%s, up_to=%d}", a.Lane, a.UpToNonce)
	default:
		return "Idle"
	}
}

// LanePriority decides which lane is served first when several lanes need an action
type LanePriority string

const (
	// PriorityLaneID serves the lane with the lowest id first
	PriorityLaneID LanePriority = "lane-id"
	// PriorityConfirmationsFirst serves lanes needing a confirmation before lanes needing a delivery
	PriorityConfirmationsFirst LanePriority = "confirmations-first"
)

func (p LanePriority) Validate() error {
	switch p {
	case PriorityLaneID, PriorityConfirmationsFirst:
		return nil
	default:
		return ErrInvalidConfig.Wrapf("unknown lane priority: %q", p)
	}
}

// MessageRelayStrategy decides which messages to deliver and when to confirm receipts
type MessageRelayStrategy struct {
	maxUnconfirmed uint64
	batchSize      uint64
	priority       LanePriority
}

func NewMessageRelayStrategy(maxUnconfirmed, batchSize uint64, priority LanePriority) *MessageRelayStrategy {
	if priority == "" {
		priority = PriorityLaneID
	}
	return &MessageRelayStrategy{
		maxUnconfirmed: maxUnconfirmed,
		batchSize:      batchSize,
		priority:       priority,
	}
}

// Plan returns the next action over all lanes. `relayedSource` is the best source header
// verified by the target chain; deliveries are planned only for snapshots it can prove.
func (st *MessageRelayStrategy) Plan(lanes []*LaneState, relayedSource *HeaderFact) RelayAction {
	sorted := slices.Clone(lanes)
	slices.SortFunc(sorted, func(a, b *LaneState) int {
		return bytes.Compare(a.lane[:], b.lane[:])
	})

	var firstDelivery *RelayAction
	for _, ls := range sorted {
		action := st.PlanLane(ls, relayedSource)
		switch action.Kind {
		case ActionIdle:
			continue
		case ActionConfirmReceipts:
			return action
		case ActionDeliverMessages:
			if st.priority != PriorityConfirmationsFirst {
				return action
			}
			if firstDelivery == nil {
				firstDelivery = &action
			}
		}
	}
	if firstDelivery != nil {
		return *firstDelivery
	}
	return IdleAction()
}

// PlanLane returns the next action for a single lane
func (st *MessageRelayStrategy) PlanLane(ls *LaneState, relayedSource *HeaderFact) RelayAction {
	unconfirmed := ls.UnconfirmedCount()
	if unconfirmed >= st.maxUnconfirmed {
		if upTo, ok := ls.ConfirmableNonce(); ok {
			return ConfirmReceiptsAction(ls.lane, upTo)
		}
		return IdleAction()
	}

	if undelivered, ok := ls.UndeliveredRange(); ok && st.provable(ls, relayedSource) {
		size := min(undelivered.Size(), st.batchSize, st.maxUnconfirmed-unconfirmed)
		if size == 0 {
			return IdleAction()
		}
		return DeliverMessagesAction(ls.lane, NonceRange{
			Begin: undelivered.Begin,
			End:   undelivered.Begin + size - 1,
		})
	}

	if ls.NeedsConfirmation() {
		if upTo, ok := ls.ConfirmableNonce(); ok {
			return ConfirmReceiptsAction(ls.lane, upTo)
		}
	}
	return IdleAction()
}

// provable reports whether the target chain knows the source header the outbound snapshot was read at
func (st *MessageRelayStrategy) provable(ls *LaneState, relayedSource *HeaderFact) bool {
	return relayedSource != nil && ls.outbound.AtBlock <= relayedSource.Number
}
