package core

import (
	"sort"
)

// FinalityTracker tracks which finalized headers of the source chain the target chain has verified
// and chooses the next header to relay.
//
// The target chain's own record is the source of truth. Update ingests fresh reads every poll and
// never lowers BestRelayed, so a lagging read cannot make the tracker relay an older header.
type FinalityTracker struct {
	onlyMandatory bool

	available *HeaderFact
	relayed   *HeaderFact
	// submitted is the header included by this relayer since the last Update
	submitted *HeaderFact
	mandatory []*HeaderFact
	// required is the header number that lanes need relayed in only-mandatory mode
	required uint64
}

// NewFinalityTracker returns a tracker. With onlyMandatory, non-mandatory headers are relayed
// only when RequireHeader asks for them.
func NewFinalityTracker(onlyMandatory bool) *FinalityTracker {
	return &FinalityTracker{onlyMandatory: onlyMandatory}
}

// Update reconciles the tracker with the latest reads of both chains.
// `mandatory` lists the mandatory headers of the source chain after the relayed header.
func (ft *FinalityTracker) Update(available, relayed *HeaderFact, mandatory []*HeaderFact) {
	if available.NewerThan(ft.available) {
		ft.available = available
	}
	if relayed.NewerThan(ft.relayed) {
		ft.relayed = relayed
	}
	ft.submitted = nil

	ft.mandatory = ft.mandatory[:0]
	for _, h := range mandatory {
		if h.NewerThan(ft.relayed) && !h.NewerThan(ft.available) {
			ft.mandatory = append(ft.mandatory, h)
		}
	}
	sort.Slice(ft.mandatory, func(i, j int) bool {
		return ft.mandatory[i].Number < ft.mandatory[j].Number
	})

	if ft.required <= headerNumber(ft.relayed) {
		ft.required = 0
	}
}

// BestAvailable returns the latest finalized header observed on the source chain
func (ft *FinalityTracker) BestAvailable() *HeaderFact {
	return ft.available
}

// BestRelayed returns the best source header known to be verified by the target chain
func (ft *FinalityTracker) BestRelayed() *HeaderFact {
	return ft.relayed
}

// Progress returns the relay progress. BestAvailable is never lower than BestRelayed.
func (ft *FinalityTracker) Progress() RelayProgress {
	available := ft.available
	if ft.relayed.NewerThan(available) {
		available = ft.relayed
	}
	return RelayProgress{
		BestRelayed:   ft.relayed,
		BestAvailable: available,
	}
}

// RequireHeader asks the tracker to relay a header not older than `number` even in only-mandatory mode
func (ft *FinalityTracker) RequireHeader(number uint64) {
	if number > ft.required {
		ft.required = number
	}
}

// NextToRelay returns the next header to submit to the target chain, or nil when caught up.
// Pending mandatory headers come first, lowest number first.
func (ft *FinalityTracker) NextToRelay() *HeaderFact {
	if ft.relayed == nil {
		// the bridge has to be initialized before headers can be relayed
		return nil
	}
	floor := ft.relayed
	if ft.submitted.NewerThan(floor) {
		floor = ft.submitted
	}
	for _, h := range ft.mandatory {
		if h.NewerThan(floor) {
			return h
		}
	}
	if !ft.available.NewerThan(floor) {
		return nil
	}
	if ft.onlyMandatory && ft.required <= floor.Number {
		return nil
	}
	return ft.available
}

// MarkSubmitted records that a header relay has been included.
// The mark only holds until the next Update.
func (ft *FinalityTracker) MarkSubmitted(h *HeaderFact) {
	if h.NewerThan(ft.submitted) {
		ft.submitted = h
	}
}
