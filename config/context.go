package config

type Context struct {
	Modules  []ModuleI
	Registry ChainConfigRegistry
	Config   *Config
}

// NewContext registers the chain configs of the modules
func NewContext(config *Config, modules ...ModuleI) *Context {
	registry := ChainConfigRegistry{}
	for _, m := range modules {
		m.RegisterChainConfigs(registry)
	}
	return &Context{
		Modules:  modules,
		Registry: registry,
		Config:   config,
	}
}
