package core

// LaneState is the bookkeeping of one lane in one relay direction.
// It is derived from chain reads on every poll and never acts as a source of truth.
type LaneState struct {
	lane           LaneID
	maxUnconfirmed uint64
	lowWater       uint64

	outbound OutboundLaneState
	inbound  InboundLaneState
	// confirmable is the inbound state at the target header that the source chain can verify
	confirmable *InboundLaneState
}

// LaneBacklog is a snapshot of the amount of work left on a lane
type LaneBacklog struct {
	Lane        LaneID `json:"lane"`
	Undelivered uint64 `json:"undelivered"`
	Unconfirmed uint64 `json:"unconfirmed"`
	// Unpruned is the number of messages still stored on the source chain
	Unpruned uint64 `json:"unpruned"`
}

func NewLaneState(lane LaneID, maxUnconfirmed, lowWater uint64) *LaneState {
	return &LaneState{
		lane:           lane,
		maxUnconfirmed: maxUnconfirmed,
		lowWater:       lowWater,
		outbound:       OutboundLaneState{Lane: lane},
		inbound:        InboundLaneState{Lane: lane},
	}
}

func (ls *LaneState) Lane() LaneID {
	return ls.lane
}

// Refresh replaces the state with fresh reads of both chains
func (ls *LaneState) Refresh(outbound *OutboundLaneState, inbound *InboundLaneState) error {
	if outbound.Lane != ls.lane || inbound.Lane != ls.lane {
		return ErrInvariant.Wrapf("lane %s: refreshed with states of lanes %s/%s", ls.lane, outbound.Lane, inbound.Lane)
	}
	if err := outbound.Validate(); err != nil {
		return err
	}
	if err := inbound.Validate(); err != nil {
		return err
	}
	ls.outbound = *outbound
	ls.inbound = *inbound
	ls.confirmable = nil
	return nil
}

// RefreshConfirmable records the inbound state read at the target header known to the source chain.
// Without it, confirmations are planned from the latest inbound state.
func (ls *LaneState) RefreshConfirmable(inbound *InboundLaneState) error {
	if inbound.Lane != ls.lane {
		return ErrInvariant.Wrapf("lane %s: refreshed with state of lane %s", ls.lane, inbound.Lane)
	}
	if err := inbound.Validate(); err != nil {
		return err
	}
	c := *inbound
	ls.confirmable = &c
	return nil
}

func (ls *LaneState) Outbound() OutboundLaneState {
	return ls.outbound
}

func (ls *LaneState) Inbound() InboundLaneState {
	return ls.inbound
}

// UndeliveredRange returns the messages generated on the source chain but not yet delivered to the target chain
func (ls *LaneState) UndeliveredRange() (NonceRange, bool) {
	if ls.outbound.LatestGeneratedNonce <= ls.inbound.LatestReceivedNonce {
		return NonceRange{}, false
	}
	return NonceRange{
		Begin: ls.inbound.LatestReceivedNonce + 1,
		End:   ls.outbound.LatestGeneratedNonce,
	}, true
}

// confirmedNonce returns the highest nonce whose delivery the source chain has learned.
// Either side may be the first to record it.
func (ls *LaneState) confirmedNonce() uint64 {
	confirmed := ls.inbound.LatestConfirmedNonce
	if ls.outbound.LatestReceivedNonce > confirmed {
		confirmed = ls.outbound.LatestReceivedNonce
	}
	if confirmed > ls.inbound.LatestReceivedNonce {
		confirmed = ls.inbound.LatestReceivedNonce
	}
	return confirmed
}

// UnconfirmedCount returns the number of messages delivered but not yet confirmed
func (ls *LaneState) UnconfirmedCount() uint64 {
	return ls.inbound.LatestReceivedNonce - ls.confirmedNonce()
}

// NeedsConfirmation reports whether the unconfirmed messages exceed the low-water mark or reach the cap
func (ls *LaneState) NeedsConfirmation() bool {
	unconfirmed := ls.UnconfirmedCount()
	return unconfirmed > 0 && (unconfirmed > ls.lowWater || unconfirmed >= ls.maxUnconfirmed)
}

// ConfirmationBlocking reports whether delivery is blocked until a confirmation is relayed
func (ls *LaneState) ConfirmationBlocking() bool {
	return ls.UnconfirmedCount() >= ls.maxUnconfirmed
}

// ConfirmableNonce returns the highest received nonce that can be proven to the source chain
// and that the source chain does not know yet.
func (ls *LaneState) ConfirmableNonce() (uint64, bool) {
	snapshot := &ls.inbound
	if ls.confirmable != nil {
		snapshot = ls.confirmable
	}
	if snapshot.LatestReceivedNonce <= ls.outbound.LatestReceivedNonce {
		return 0, false
	}
	return snapshot.LatestReceivedNonce, true
}

func (ls *LaneState) Backlog() LaneBacklog {
	backlog := LaneBacklog{
		Lane:        ls.lane,
		Unconfirmed: ls.UnconfirmedCount(),
	}
	if r, ok := ls.UndeliveredRange(); ok {
		backlog.Undelivered = r.Size()
	}
	if oldest := ls.outbound.OldestUnprunedNonce; oldest > 0 && ls.outbound.LatestGeneratedNonce >= oldest {
		backlog.Unpruned = ls.outbound.LatestGeneratedNonce - oldest + 1
	}
	return backlog
}
