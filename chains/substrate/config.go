package substrate

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

const (
	// ChainType is the `type` of substrate chains in the config file
	ChainType = "substrate"

	DefaultSS58Prefix      = uint8(42)
	// maxSS58Prefix is the highest network prefix of the one byte address format
	maxSS58Prefix          = 63
	DefaultMortalEraPeriod = uint64(64)
)

var _ core.ChainConfig = (*ChainConfig)(nil)

// ChainConfig is the config of a substrate chain running the bridge pallets
type ChainConfig struct {
	ChainID  string `mapstructure:"chain-id" yaml:"chain-id" json:"chain-id"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	// PrivateKey is a secret seed or a mnemonic of the sr25519 relayer account
	PrivateKey string `mapstructure:"private-key" yaml:"private-key" json:"private-key"`
	SS58Prefix uint8  `mapstructure:"ss58-prefix" yaml:"ss58-prefix" json:"ss58-prefix"`

	// MessagesPallet is the pallet receiving messages from the bridged chain, e.g. `BridgeRialtoMessages`
	MessagesPallet string `mapstructure:"messages-pallet" yaml:"messages-pallet" json:"messages-pallet"`
	// GrandpaPallet is the light client of the bridged chain, e.g. `BridgeRialtoGrandpa`
	GrandpaPallet string `mapstructure:"grandpa-pallet" yaml:"grandpa-pallet" json:"grandpa-pallet"`
	// BridgedChain is the chain-id of the counterparty
	BridgedChain string `mapstructure:"bridged-chain" yaml:"bridged-chain" json:"bridged-chain"`
	// RelayerAccount is the hex encoded account of the relayer on the bridged chain.
	// It defaults to the public key of PrivateKey.
	RelayerAccount string `mapstructure:"relayer-account" yaml:"relayer-account,omitempty" json:"relayer-account,omitempty"`
	// DispatchWeight is the weight declared for the dispatch of each delivered message
	DispatchWeight uint64 `mapstructure:"dispatch-weight" yaml:"dispatch-weight" json:"dispatch-weight"`
	// MortalEraPeriod must be a power of two between 4 and 65536
	MortalEraPeriod uint64 `mapstructure:"mortal-era-period" yaml:"mortal-era-period,omitempty" json:"mortal-era-period,omitempty"`
}

func (c ChainConfig) Build() (core.Chain, error) {
	return &Chain{
		config: c,
	}, nil
}

func (c ChainConfig) Validate() error {
	isEmpty := func(s string) bool {
		return strings.TrimSpace(s) == ""
	}

	var errs []string
	if isEmpty(c.ChainID) {
		errs = append(errs, "config attribute \"chain-id\" is empty")
	}
	if isEmpty(c.Endpoint) {
		errs = append(errs, "config attribute \"endpoint\" is empty")
	}
	if isEmpty(c.PrivateKey) {
		errs = append(errs, "config attribute \"private-key\" is empty")
	}
	if isEmpty(c.MessagesPallet) {
		errs = append(errs, "config attribute \"messages-pallet\" is empty")
	}
	if isEmpty(c.GrandpaPallet) {
		errs = append(errs, "config attribute \"grandpa-pallet\" is empty")
	}
	if isEmpty(c.BridgedChain) {
		errs = append(errs, "config attribute \"bridged-chain\" is empty")
	}
	if c.SS58Prefix > maxSS58Prefix {
		errs = append(errs, fmt.Sprintf("config attribute \"ss58-prefix\" must be at most %d: %d", maxSS58Prefix, c.SS58Prefix))
	}
	if c.RelayerAccount != "" {
		if bz, err := hexutil.Decode(c.RelayerAccount); err != nil || len(bz) != 32 {
			errs = append(errs, fmt.Sprintf("config attribute \"relayer-account\" must be a 0x-prefixed 32 byte account: %s", c.RelayerAccount))
		}
	}
	if p := c.MortalEraPeriod; p != 0 && (p < 4 || p > 65536 || p&(p-1) != 0) {
		errs = append(errs, fmt.Sprintf("config attribute \"mortal-era-period\" must be a power of two between 4 and 65536: %d", p))
	}

	if len(errs) > 0 {
		return core.ErrInvalidConfig.Wrap(strings.Join(errs, "; "))
	}
	return nil
}

func (c ChainConfig) mortalEraPeriod() uint64 {
	if c.MortalEraPeriod == 0 {
		return DefaultMortalEraPeriod
	}
	return c.MortalEraPeriod
}
