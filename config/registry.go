package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// ChainTypeKey is the key of the chain type in a raw chain config
const ChainTypeKey = "type"

// ChainConfigRegistry maps a chain type to a factory of its config
type ChainConfigRegistry map[string]func() core.ChainConfig

// Register adds a chain type. It panics if the type is already registered.
func (r ChainConfigRegistry) Register(chainType string, factory func() core.ChainConfig) {
	if _, ok := r[chainType]; ok {
		panic(fmt.Sprintf("chain type %s is already registered", chainType))
	}
	r[chainType] = factory
}

// Types returns the registered chain types
func (r ChainConfigRegistry) Types() []string {
	types := make([]string, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	return types
}

// Decode builds and validates the chain config selected by the `type` key of raw
func (r ChainConfigRegistry) Decode(raw map[string]any) (core.ChainConfig, error) {
	v, ok := raw[ChainTypeKey]
	if !ok {
		return nil, core.ErrInvalidConfig.Wrapf("chain config has no %q", ChainTypeKey)
	}
	chainType, ok := v.(string)
	if !ok {
		return nil, core.ErrInvalidConfig.Wrapf("chain type must be a string: %v", v)
	}
	factory, ok := r[chainType]
	if !ok {
		return nil, core.ErrInvalidConfig.Wrapf("unknown chain type: %s", chainType)
	}

	cfg := factory()
	body := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != ChainTypeKey {
			body[k] = v
		}
	}
	if err := Decode(body, cfg); err != nil {
		return nil, core.ErrInvalidConfig.Wrapf("failed to decode %s chain config: %v", chainType, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, core.ErrInvalidConfig.Wrap(err.Error())
	}
	return cfg, nil
}

// Decode decodes a raw config into the struct pointed by out. Unknown keys are errors.
func Decode(raw any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  DecodeHook(),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// DecodeHook parses durations and the types implementing encoding.TextUnmarshaler, e.g. core.LaneID
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		stringerHookFunc(),
	)
}

// stringerHookFunc turns the keys written by yaml.v2 (map[interface{}]interface{}) into strings
func stringerHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		m, ok := data.(map[any]any)
		if !ok {
			return data, nil
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	}
}
