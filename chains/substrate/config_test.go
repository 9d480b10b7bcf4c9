package substrate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/chains/substrate"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func validConfig() substrate.ChainConfig {
	return substrate.ChainConfig{
		ChainID:        "rialto",
		Endpoint:       "ws://127.0.0.1:9944",
		PrivateKey:     "//Alice",
		SS58Prefix:     substrate.DefaultSS58Prefix,
		MessagesPallet: "BridgeMillauMessages",
		GrandpaPallet:  "BridgeMillauGrandpa",
		BridgedChain:   "millau",
		DispatchWeight: 1_000_000_000,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]struct {
		modify func(*substrate.ChainConfig)
		valid  bool
	}{
		"valid":               {func(*substrate.ChainConfig) {}, true},
		"no endpoint":         {func(c *substrate.ChainConfig) { c.Endpoint = " " }, false},
		"no messages pallet":  {func(c *substrate.ChainConfig) { c.MessagesPallet = "" }, false},
		"no bridged chain":    {func(c *substrate.ChainConfig) { c.BridgedChain = "" }, false},
		"relayer account":     {func(c *substrate.ChainConfig) { c.RelayerAccount = "0x" + strings.Repeat("ab", 32) }, true},
		"short account":       {func(c *substrate.ChainConfig) { c.RelayerAccount = "0xabcd" }, false},
		"era period":          {func(c *substrate.ChainConfig) { c.MortalEraPeriod = 128 }, true},
		"era not power of 2":  {func(c *substrate.ChainConfig) { c.MortalEraPeriod = 100 }, false},
		"era period too long": {func(c *substrate.ChainConfig) { c.MortalEraPeriod = 1 << 17 }, false},
		"polkadot prefix":     {func(c *substrate.ChainConfig) { c.SS58Prefix = 0 }, true},
		"two byte prefix":     {func(c *substrate.ChainConfig) { c.SS58Prefix = 64 }, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			tc.modify(&c)
			err := c.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, core.ErrInvalidConfig)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// well-known addresses of //Alice
	cases := map[string]struct {
		prefix  uint8
		address string
	}{
		"substrate": {substrate.DefaultSS58Prefix, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"},
		"polkadot":  {0, "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			c.SS58Prefix = tc.prefix
			chain, err := c.Build()
			require.NoError(t, err)
			require.NoError(t, chain.Init(t.TempDir(), 0, false))
			assert.Equal(t, "rialto", chain.ChainID())
			assert.Equal(t, tc.address, chain.(*substrate.Chain).Address())

			require.NoError(t, chain.SetRelayInfo("millau", []core.LaneID{core.MustParseLaneID("00000000")}))
			require.ErrorIs(t, chain.SetRelayInfo("other", nil), core.ErrInvalidConfig)
		})
	}
}

func TestInitRejectsTwoBytePrefix(t *testing.T) {
	c := validConfig()
	c.SS58Prefix = 64
	chain, err := c.Build()
	require.NoError(t, err)
	require.ErrorIs(t, chain.Init(t.TempDir(), 0, false), core.ErrInvalidConfig)
}

func TestInitRejectsMalformedKey(t *testing.T) {
	c := validConfig()
	c.PrivateKey = "0xnothex"
	chain, err := c.Build()
	require.NoError(t, err)
	require.ErrorIs(t, chain.Init(t.TempDir(), 0, false), core.ErrSigner)
}

func TestSetupForRelayUnreachableNode(t *testing.T) {
	c := validConfig()
	c.Endpoint = "ws://127.0.0.1:1"
	chain, err := c.Build()
	require.NoError(t, err)
	require.NoError(t, chain.Init(t.TempDir(), 0, false))

	err = chain.SetupForRelay(context.Background())
	require.ErrorIs(t, err, core.ErrTransient)
	assert.Equal(t, core.ClassTransient, core.Classify(err))
}
