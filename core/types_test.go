package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func TestParseLaneID(t *testing.T) {
	type testCase struct {
		input   string
		want    core.LaneID
		wantErr bool
	}
	cases := map[string]testCase{
		"without prefix": {input: "00000001", want: core.LaneID{0, 0, 0, 1}},
		"with prefix":    {input: "0x01020304", want: core.LaneID{1, 2, 3, 4}},
		"too short":      {input: "0102", wantErr: true},
		"too long":       {input: "0102030405", wantErr: true},
		"not hex":        {input: "zzzzzzzz", wantErr: true},
		"empty":          {input: "", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := core.ParseLaneID(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, core.ErrInvalidConfig)
				require.Equal(t, core.ClassFatal, core.Classify(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLaneIDText(t *testing.T) {
	id := core.MustParseLaneID("0xdeadbeef")
	require.Equal(t, "deadbeef", id.String())

	text, err := id.MarshalText()
	require.NoError(t, err)

	var parsed core.LaneID
	require.NoError(t, parsed.UnmarshalText(text))
	require.Equal(t, id, parsed)
}

func TestNonceRange(t *testing.T) {
	r := core.NonceRange{Begin: 3, End: 7}
	require.False(t, r.Empty())
	require.EqualValues(t, 5, r.Size())
	require.True(t, r.Contains(3))
	require.True(t, r.Contains(7))
	require.False(t, r.Contains(8))
	require.Equal(t, "[3,7]", r.String())

	for _, empty := range []core.NonceRange{{}, {Begin: 5, End: 4}, {Begin: 0, End: 3}} {
		require.True(t, empty.Empty(), empty.String())
		require.Zero(t, empty.Size())
		require.False(t, empty.Contains(empty.Begin))
	}
}

func TestHeaderFactNewerThan(t *testing.T) {
	var none *core.HeaderFact
	h10 := &core.HeaderFact{Number: 10}
	h11 := &core.HeaderFact{Number: 11}

	require.True(t, h10.NewerThan(none))
	require.True(t, h11.NewerThan(h10))
	require.False(t, h10.NewerThan(h10))
	require.False(t, h10.NewerThan(h11))
	require.False(t, none.NewerThan(h10))
	require.Equal(t, "<none>", none.String())
}

func TestLaneStateValidate(t *testing.T) {
	lane := core.MustParseLaneID("00000000")

	require.NoError(t, (&core.OutboundLaneState{Lane: lane, OldestUnprunedNonce: 1}).Validate())
	require.NoError(t, (&core.OutboundLaneState{Lane: lane, OldestUnprunedNonce: 4, LatestReceivedNonce: 3, LatestGeneratedNonce: 9}).Validate())
	require.ErrorIs(t, (&core.OutboundLaneState{Lane: lane, LatestReceivedNonce: 4, LatestGeneratedNonce: 3}).Validate(), core.ErrInvariant)
	require.ErrorIs(t, (&core.OutboundLaneState{Lane: lane, OldestUnprunedNonce: 5, LatestReceivedNonce: 3, LatestGeneratedNonce: 9}).Validate(), core.ErrInvariant)

	require.NoError(t, (&core.InboundLaneState{Lane: lane, LatestReceivedNonce: 3, LatestConfirmedNonce: 3}).Validate())
	require.ErrorIs(t, (&core.InboundLaneState{Lane: lane, LatestReceivedNonce: 3, LatestConfirmedNonce: 4}).Validate(), core.ErrInvariant)
}
