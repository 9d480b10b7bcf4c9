package debug

import (
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

const ChainType = "debug"

// ChainConfigDecoder decodes the config of the wrapped chain
type ChainConfigDecoder interface {
	Decode(raw map[string]any) (core.ChainConfig, error)
}

// ChainConfig wraps the config of another chain.
// The wrapped config is a regular chain config with its own `type` key.
type ChainConfig struct {
	OriginChain map[string]any `mapstructure:"origin-chain" yaml:"origin-chain" json:"origin-chain"`

	decoder ChainConfigDecoder
}

var _ core.ChainConfig = (*ChainConfig)(nil)

func NewChainConfig(decoder ChainConfigDecoder) *ChainConfig {
	return &ChainConfig{decoder: decoder}
}

func (c ChainConfig) origin() (core.ChainConfig, error) {
	if c.OriginChain == nil {
		return nil, core.ErrInvalidConfig.Wrap("origin-chain must be set")
	}
	if c.decoder == nil {
		return nil, core.ErrInvalidConfig.Wrap("no decoder for origin-chain")
	}
	return c.decoder.Decode(c.OriginChain)
}

func (c ChainConfig) Build() (core.Chain, error) {
	origin, err := c.origin()
	if err != nil {
		return nil, err
	}
	originChain, err := origin.Build()
	if err != nil {
		return nil, err
	}
	return &Chain{
		config:      c,
		OriginChain: originChain,
	}, nil
}

func (c ChainConfig) Validate() error {
	_, err := c.origin()
	return err
}
