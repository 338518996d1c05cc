package model

// RegistryConfig is the serialized form of a registry, embedded in the
// application config under model.registry.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Endpoints    map[string]*EndpointConfig   `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	Default      string                       `json:"default,omitempty" yaml:"default,omitempty"`
}

// NewRegistryFromConfig builds a registry from its serialized form.
func NewRegistryFromConfig(cfg *RegistryConfig) *Registry {
	r := NewRegistry(nil, nil)
	r.MergeFromConfig(cfg)
	return r
}

// ToConfig converts a Registry to a RegistryConfig for serialization.
func (r *Registry) ToConfig() *RegistryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*CapabilityConfig, len(r.capabilities))
	for k, v := range r.capabilities {
		caps[string(k)] = v
	}
	endpoints := make(map[string]*EndpointConfig, len(r.endpoints))
	for k, v := range r.endpoints {
		endpoints[k] = v
	}

	return &RegistryConfig{
		Capabilities: caps,
		Endpoints:    endpoints,
		Default:      r.defaultModel,
	}
}

// MergeFromConfig overlays cfg onto the registry. Unknown capability names
// are kept verbatim so Validate can report them alongside other problems.
func (r *Registry) MergeFromConfig(cfg *RegistryConfig) {
	if cfg == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range cfg.Capabilities {
		r.capabilities[Capability(k)] = v
	}
	for k, v := range cfg.Endpoints {
		r.endpoints[k] = v
	}
	if cfg.Default != "" {
		r.defaultModel = cfg.Default
	}
}
