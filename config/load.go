package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding the global settings, e.g. YBRLY_GLOBAL_TIMEOUT
const EnvPrefix = "YBRLY"

// LoadConfig reads the config file at configPath.
// Keys missing in the file take their default values.
func LoadConfig(v *viper.Viper, configPath string) (*Config, error) {
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := newDefaultGlobalConfig()
	v.SetDefault("global.timeout", def.Timeout)
	v.SetDefault("global.logger.level", def.Logger.Level)
	v.SetDefault("global.logger.format", def.Logger.Format)
	v.SetDefault("global.logger.output", def.Logger.Output)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	cfg := DefaultConfig(configPath)
	cfg.Global = GlobalConfig{
		Timeout: v.GetString("global.timeout"),
		Logger: LoggerConfig{
			Level:  v.GetString("global.logger.level"),
			Format: v.GetString("global.logger.format"),
			Output: v.GetString("global.logger.output"),
		},
	}
	if raw := v.Get("chains"); raw != nil {
		if err := Decode(raw, &cfg.Chains); err != nil {
			return nil, fmt.Errorf("failed to decode chains: %w", err)
		}
	}
	for name, raw := range v.GetStringMap("bridges") {
		bridge := NewBridge("", "")
		if err := Decode(raw, bridge); err != nil {
			return nil, fmt.Errorf("failed to decode bridge %s: %w", name, err)
		}
		if err := cfg.Bridges.Add(name, bridge); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
