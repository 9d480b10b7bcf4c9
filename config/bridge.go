package config

import (
	"fmt"
	"sort"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// Bridge connects two chains with a set of lanes
type Bridge struct {
	Left  string           `mapstructure:"left" yaml:"left" json:"left"`
	Right string           `mapstructure:"right" yaml:"right" json:"right"`
	Relay core.RelayConfig `mapstructure:"relay" yaml:"relay" json:"relay"`
}

// NewBridge returns a bridge with the default relay config
func NewBridge(left, right string) *Bridge {
	return &Bridge{
		Left:  left,
		Right: right,
		Relay: core.DefaultRelayConfig(),
	}
}

func (b *Bridge) Validate() error {
	if b.Left == "" || b.Right == "" {
		return core.ErrInvalidConfig.Wrap("both chains of a bridge are required")
	}
	if b.Left == b.Right {
		return core.ErrInvalidConfig.Wrapf("a bridge must connect two different chains: %s", b.Left)
	}
	return b.Relay.Validate()
}

// Counterparty returns the other chain of the bridge
func (b *Bridge) Counterparty(chainID string) (string, error) {
	switch chainID {
	case b.Left:
		return b.Right, nil
	case b.Right:
		return b.Left, nil
	default:
		return "", fmt.Errorf("chain %s is not a part of the bridge %s<->%s", chainID, b.Left, b.Right)
	}
}

// Bridges is a named collection of bridges
type Bridges map[string]*Bridge

// Get returns the bridge with the given name
func (bs Bridges) Get(name string) (*Bridge, error) {
	if b, ok := bs[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("bridge with name %s does not exist", name)
}

// Add validates and adds a bridge
func (bs Bridges) Add(name string, bridge *Bridge) error {
	if _, ok := bs[name]; ok {
		return fmt.Errorf("bridge with name %s already exists", name)
	}
	if err := bridge.Validate(); err != nil {
		return err
	}
	bs[name] = bridge
	return nil
}

// Names returns the sorted names of the bridges
func (bs Bridges) Names() []string {
	names := make([]string, 0, len(bs))
	for name := range bs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
