package core_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func laneWith(t *testing.T, lane core.LaneID, max uint64, out core.OutboundLaneState, in core.InboundLaneState) *core.LaneState {
	t.Helper()
	out.Lane = lane
	in.Lane = lane
	ls := core.NewLaneState(lane, max, 0)
	require.NoError(t, ls.Refresh(&out, &in))
	return ls
}

func TestPlan(t *testing.T) {
	relayed := header(100)
	type testCase struct {
		max       uint64
		batchSize uint64
		out       core.OutboundLaneState
		in        core.InboundLaneState
		relayed   *core.HeaderFact
		want      core.RelayAction
	}
	cases := map[string]testCase{
		"deliver capped by max unconfirmed": {
			max: 10, batchSize: 64,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 50, AtBlock: 100},
			relayed: relayed,
			want:    core.DeliverMessagesAction(testLane, core.NonceRange{Begin: 1, End: 10}),
		},
		"deliver capped by batch size": {
			max: 1024, batchSize: 8,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 50, AtBlock: 100},
			relayed: relayed,
			want:    core.DeliverMessagesAction(testLane, core.NonceRange{Begin: 1, End: 8}),
		},
		"deliver the rest of the window": {
			max: 10, batchSize: 64,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 50, AtBlock: 100},
			in:      core.InboundLaneState{LatestReceivedNonce: 6},
			relayed: relayed,
			want:    core.DeliverMessagesAction(testLane, core.NonceRange{Begin: 7, End: 10}),
		},
		"confirm when the cap is reached": {
			max: 1024, batchSize: 64,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 2000, AtBlock: 100},
			in:      core.InboundLaneState{LatestReceivedNonce: 1024},
			relayed: relayed,
			want:    core.ConfirmReceiptsAction(testLane, 1024),
		},
		"confirm when nothing to deliver": {
			max: 1024, batchSize: 64,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 20, AtBlock: 100},
			in:      core.InboundLaneState{LatestReceivedNonce: 20},
			relayed: relayed,
			want:    core.ConfirmReceiptsAction(testLane, 20),
		},
		"idle when everything is confirmed": {
			max: 1024, batchSize: 64,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 21, LatestReceivedNonce: 20, LatestGeneratedNonce: 20, AtBlock: 100},
			in:      core.InboundLaneState{LatestReceivedNonce: 20, LatestConfirmedNonce: 20},
			relayed: relayed,
			want:    core.IdleAction(),
		},
		"idle when the bridge is not initialized": {
			max: 1024, batchSize: 64,
			out:  core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 20},
			want: core.IdleAction(),
		},
		"idle when the snapshot is not provable yet": {
			max: 1024, batchSize: 64,
			out:     core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 20, AtBlock: 101},
			relayed: relayed,
			want:    core.IdleAction(),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			st := core.NewMessageRelayStrategy(tc.max, tc.batchSize, core.PriorityLaneID)
			ls := laneWith(t, testLane, tc.max, tc.out, tc.in)
			got := st.Plan([]*core.LaneState{ls}, tc.relayed)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanBackPressure(t *testing.T) {
	const max = 16
	st := core.NewMessageRelayStrategy(max, 4, core.PriorityLaneID)
	for received := uint64(0); received <= 40; received++ {
		for confirmed := uint64(0); confirmed <= received; confirmed++ {
			ls := laneWith(t, testLane, max,
				core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 64},
				core.InboundLaneState{LatestReceivedNonce: received, LatestConfirmedNonce: confirmed},
			)
			action := st.Plan([]*core.LaneState{ls}, header(0))
			if action.Kind != core.ActionDeliverMessages {
				continue
			}
			unconfirmed := ls.UnconfirmedCount()
			require.Less(t, unconfirmed, uint64(max), "delivery planned under back-pressure")
			require.LessOrEqual(t, unconfirmed+action.Nonces.Size(), uint64(max), "delivery exceeds the cap")
			require.Equal(t, received+1, action.Nonces.Begin, "delivery includes a received nonce")
		}
	}
}

func TestPlanIsIdempotentAcrossRestarts(t *testing.T) {
	out := core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 30, AtBlock: 5}
	in := core.InboundLaneState{LatestReceivedNonce: 12, LatestConfirmedNonce: 3}

	plan := func() core.RelayAction {
		st := core.NewMessageRelayStrategy(64, 10, core.PriorityLaneID)
		return st.Plan([]*core.LaneState{laneWith(t, testLane, 64, out, in)}, header(5))
	}
	before := plan()
	after := plan()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("plan changed after restart (-before +after):\n%s", diff)
	}
}

func TestPlanLanePriority(t *testing.T) {
	lane0 := core.MustParseLaneID("00000000")
	lane1 := core.MustParseLaneID("00000001")
	newLanes := func() []*core.LaneState {
		return []*core.LaneState{
			// lane 1 needs a confirmation
			laneWith(t, lane1, 10,
				core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 20},
				core.InboundLaneState{LatestReceivedNonce: 10},
			),
			// lane 0 has messages to deliver
			laneWith(t, lane0, 10,
				core.OutboundLaneState{OldestUnprunedNonce: 1, LatestGeneratedNonce: 5},
				core.InboundLaneState{},
			),
		}
	}

	byID := core.NewMessageRelayStrategy(10, 64, core.PriorityLaneID)
	require.Equal(t, core.DeliverMessagesAction(lane0, core.NonceRange{Begin: 1, End: 5}), byID.Plan(newLanes(), header(0)))

	confirmationsFirst := core.NewMessageRelayStrategy(10, 64, core.PriorityConfirmationsFirst)
	require.Equal(t, core.ConfirmReceiptsAction(lane1, 10), confirmationsFirst.Plan(newLanes(), header(0)))
}

func TestLanePriorityValidate(t *testing.T) {
	require.NoError(t, core.PriorityLaneID.Validate())
	require.NoError(t, core.PriorityConfirmationsFirst.Validate())
	require.ErrorIs(t, core.LanePriority("round-robin").Validate(), core.ErrInvalidConfig)
}
