package debug_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/debug"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

type decoderFunc func(raw map[string]any) (core.ChainConfig, error)

func (f decoderFunc) Decode(raw map[string]any) (core.ChainConfig, error) {
	return f(raw)
}

type originConfig struct {
	chain core.Chain
}

func (c originConfig) Build() (core.Chain, error) { return c.chain, nil }
func (c originConfig) Validate() error { return nil }

type testHandle string

func (h testHandle) ID() string { return string(h) }

func newDebugChain(t *testing.T, origin core.Chain) core.Chain {
	t.Helper()
	cfg := debug.NewChainConfig(decoderFunc(func(raw map[string]any) (core.ChainConfig, error) {
		assert.Equal(t, "mock", raw["type"])
		return originConfig{chain: origin}, nil
	}))
	cfg.OriginChain = map[string]any{"type": "mock"}
	require.NoError(t, cfg.Validate())
	chain, err := cfg.Build()
	require.NoError(t, err)
	return chain
}

func TestConfigWithoutOrigin(t *testing.T) {
	cfg := debug.NewChainConfig(decoderFunc(func(map[string]any) (core.ChainConfig, error) {
		return nil, errors.New("unreachable")
	}))
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestMissingState(t *testing.T) {
	lane := core.MustParseLaneID("00000000")

	cases := map[string]struct {
		depth   string
		height  uint64
		wantErr bool
	}{
		"unset":                {height: 10},
		"latest is never lost": {depth: "5", height: 0},
		"within depth":         {depth: "5", height: 95},
		"older than depth":     {depth: "5", height: 94, wantErr: true},
		"malformed depth":      {depth: "five", height: 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			origin := core.NewMockChain(ctrl)
			origin.EXPECT().ChainID().Return("left").AnyTimes()
			origin.EXPECT().ReadFinalizedHeader(gomock.Any()).Return(&core.HeaderFact{ChainID: "left", Number: 100}, nil).AnyTimes()
			if !tc.wantErr {
				origin.EXPECT().ReadOutboundLaneState(gomock.Any(), lane).Return(&core.OutboundLaneState{Lane: lane}, nil)
			}
			if tc.depth != "" {
				t.Setenv("DEBUG_RELAYER_MISSING_STATE_DEPTH_left", tc.depth)
			}

			chain := newDebugChain(t, origin)
			_, err := chain.ReadOutboundLaneState(core.NewQueryContext(context.Background(), tc.height), lane)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, core.ClassTransient, core.Classify(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSubmitError(t *testing.T) {
	cases := map[string]struct {
		value     string
		wantClass core.ErrorClass
		submitted bool
	}{
		"stale":     {value: "stale", wantClass: core.ClassStale},
		"rejected":  {value: "Rejected", wantClass: core.ClassRejected},
		"transient": {value: "transient", wantClass: core.ClassTransient},
		"malformed": {value: "boom", submitted: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			origin := core.NewMockChain(ctrl)
			origin.EXPECT().ChainID().Return("right").AnyTimes()
			handle := testHandle("right/1")
			if tc.submitted {
				origin.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(handle, nil)
			}
			t.Setenv("DEBUG_RELAYER_SUBMIT_ERROR_right", tc.value)

			chain := newDebugChain(t, origin)
			got, err := chain.Submit(context.Background(), &core.Payload{Kind: core.SubmissionHeaderRelay})
			if tc.submitted {
				require.NoError(t, err)
				assert.Equal(t, handle, got)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantClass, core.Classify(err))
		})
	}
}
