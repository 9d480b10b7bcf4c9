package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v2"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/otelcore"
)

const (
	tracerName = "github.com/hyperledger-labs/yui-bridge-relayer/otelcore"

	DefaultTimeout   = "10s"
	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stderr"
)

type Config struct {
	Global  GlobalConfig     `mapstructure:"global" yaml:"global" json:"global"`
	Chains  []map[string]any `mapstructure:"chains" yaml:"chains" json:"chains"`
	Bridges Bridges          `mapstructure:"bridges" yaml:"bridges" json:"bridges"`

	// cache
	chains Chains `mapstructure:"-" yaml:"-" json:"-"`

	ConfigPath string `mapstructure:"-" yaml:"-" json:"-"`
}

// GlobalConfig holds the settings shared by all chains and bridges
type GlobalConfig struct {
	Timeout string       `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Logger  LoggerConfig `mapstructure:"logger" yaml:"logger" json:"logger"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	Output string `mapstructure:"output" yaml:"output" json:"output"`
}

func DefaultConfig(configPath string) Config {
	return Config{
		Global:     newDefaultGlobalConfig(),
		Chains:     []map[string]any{},
		Bridges:    Bridges{},
		ConfigPath: configPath,
	}
}

// newDefaultGlobalConfig returns a global config with defaults set
func newDefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Timeout: DefaultTimeout,
		Logger: LoggerConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
	}
}

func (c *Config) GetChain(chainID string) (core.Chain, error) {
	return c.chains.Get(chainID)
}

// ListChains returns the initialized chains in the order of the config file
func (c *Config) ListChains() []core.Chain {
	return append([]core.Chain{}, c.chains...)
}

// AddChain decodes a raw chain config and adds it to the config
func (c *Config) AddChain(registry ChainConfigRegistry, raw map[string]any) (core.ChainConfig, error) {
	cfg, err := registry.Decode(raw)
	if err != nil {
		return nil, err
	}
	chain, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if _, err := c.GetChain(chain.ChainID()); err == nil {
		return nil, fmt.Errorf("chain with ID %s already exists in config", chain.ChainID())
	}
	c.Chains = append(c.Chains, raw)
	c.chains = append(c.chains, chain)
	return cfg, nil
}

// AddBridge adds an additional bridge to the config
func (c *Config) AddBridge(name string, bridge *Bridge) error {
	for _, chainID := range []string{bridge.Left, bridge.Right} {
		if _, err := c.GetChain(chainID); err != nil {
			return err
		}
	}
	if c.Bridges == nil {
		c.Bridges = Bridges{}
	}
	return c.Bridges.Add(name, bridge)
}

// ChainsFromBridge takes the bridge name and returns its chains, the left one first
func (c *Config) ChainsFromBridge(name string) (*Bridge, core.Chain, core.Chain, error) {
	bridge, err := c.Bridges.Get(name)
	if err != nil {
		return nil, nil, nil, err
	}
	chains, err := c.chains.Gets(bridge.Left, bridge.Right)
	if err != nil {
		return nil, nil, nil, err
	}
	return bridge, chains[bridge.Left], chains[bridge.Right], nil
}

// InitChains builds and initializes the chains of the config
func InitChains(ctx *Context, homePath string, debug bool) error {
	c := ctx.Config
	to, err := time.ParseDuration(c.Global.Timeout)
	if err != nil {
		return fmt.Errorf("did you remember to run 'ybrly config init' error:%w", err)
	}

	tracer := otel.Tracer(tracerName)
	c.chains = nil
	for i, raw := range c.Chains {
		cfg, err := ctx.Registry.Decode(raw)
		if err != nil {
			return fmt.Errorf("chains[%d]: %w", i, err)
		}
		chain, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("chains[%d]: %w", i, err)
		}
		if err := chain.Init(homePath, to, debug); err != nil {
			return fmt.Errorf("failed to initialize chain %s: %w", chain.ChainID(), err)
		}
		c.chains = append(c.chains, otelcore.NewChain(chain, tracer))
	}
	return nil
}

// Save writes the config to its ConfigPath
func (c *Config) Save() error {
	out, err := MarshalYAML(*c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath, out, 0o600)
}

func MarshalYAML(config Config) ([]byte, error) {
	return yaml.Marshal(config)
}
