package substrate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func TestFindSetChanges(t *testing.T) {
	cases := map[string]struct {
		// setIDs[n] is the set id at block n
		setIDs    []uint64
		from, to  uint64
		want      []uint64
		maxQueues int
	}{
		"no change": {
			setIDs: []uint64{0, 0, 0, 0, 0, 0, 0, 0},
			from:   1, to: 7,
			want:      nil,
			maxQueues: 2,
		},
		"single change": {
			setIDs: []uint64{0, 0, 0, 1, 1, 1, 1, 1},
			from:   1, to: 7,
			want:      []uint64{3},
			maxQueues: 6,
		},
		"several changes": {
			setIDs: []uint64{0, 0, 1, 1, 1, 2, 2, 3, 3},
			from:   0, to: 8,
			want: []uint64{2, 5, 7},
		},
		"change at the lower bound": {
			setIDs: []uint64{0, 0, 1, 1},
			from:   2, to: 3,
			want: []uint64{2},
		},
		"change before the range": {
			setIDs: []uint64{0, 1, 1, 1},
			from:   2, to: 3,
			want: nil,
		},
		"empty range": {
			setIDs: []uint64{0, 1},
			from:   2, to: 1,
			want: nil,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			queries := 0
			got, err := findSetChanges(tc.from, tc.to, func(n uint64) (uint64, error) {
				queries++
				return tc.setIDs[n], nil
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			if tc.maxQueues > 0 {
				assert.LessOrEqual(t, queries, tc.maxQueues)
			}
		})
	}
}

func TestFindSetChangesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := findSetChanges(1, 10, func(n uint64) (uint64, error) {
		if n == 5 {
			return 0, boom
		}
		return n / 8, nil
	})
	require.ErrorIs(t, err, boom)
}

func TestClassifySubmitError(t *testing.T) {
	cases := map[string]struct {
		msg  string
		want core.ErrorClass
	}{
		"outdated":          {"1010: Invalid Transaction: Transaction is outdated", core.ClassStale},
		"already imported":  {"1013: Transaction Already Imported", core.ClassStale},
		"stale":             {"Invalid Transaction: Transaction is stale", core.ClassStale},
		"bad proof":         {"1010: Invalid Transaction: Transaction has a bad signature", core.ClassRejected},
		"custom error":      {"1010: Invalid Transaction: Custom error: 3", core.ClassRejected},
		"cannot pay":        {"1010: Invalid Transaction: Inability to pay some fees", core.ClassRejected},
		"banned":            {"1012: Transaction is temporarily banned", core.ClassTransient},
		"priority too low":  {"1014: Priority is too low: (100 vs 100)", core.ClassTransient},
		"connection failed": {"websocket: close 1006", core.ClassTransient},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, core.Classify(classifySubmitError(errors.New(tc.msg))))
		})
	}
}

func TestNewMortalEra(t *testing.T) {
	cases := map[string]struct {
		block, period uint64
		first, second byte
	}{
		"genesis":     {0, 64, 0x05, 0x00},
		"phase 36":    {100, 64, 0x45, 0x02},
		"short era":   {5, 4, 0x11, 0x00},
		"longest era": {65537, 65536, 0x0f, 0x00},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			era := newMortalEra(tc.block, tc.period)
			require.True(t, era.IsMortalEra)
			assert.Equal(t, tc.first, era.AsMortalEra.First)
			assert.Equal(t, tc.second, era.AsMortalEra.Second)
		})
	}
}
