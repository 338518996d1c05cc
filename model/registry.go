package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Groq serves both the chat and vision models through an OpenAI-compatible API.
const (
	GroqURL         = "https://api.groq.com/openai/v1"
	GroqChatModel   = "llama-3.3-70b-versatile"
	GroqVisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	OllamaURL       = "http://localhost:11434/v1"
)

// Registry maps capabilities to endpoints with an ordered fallback chain and
// tracks endpoint health so failing endpoints are skipped for a while.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaultModel string
	health       *healthState
}

// CapabilityConfig defines model preferences for a capability.
type CapabilityConfig struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Preferred lists endpoints in order of preference.
	Preferred []string `json:"preferred" yaml:"preferred"`

	// Fallback lists endpoints tried after every preferred one failed.
	Fallback []string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider selects the wire format (groq, openai, ollama, anthropic).
	Provider string `json:"provider" yaml:"provider"`

	// URL is the API base URL. Anthropic ignores it.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the identifier sent to the provider.
	Model string `json:"model" yaml:"model"`

	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// NewRegistry creates a registry from explicit capability and endpoint tables.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	if caps == nil {
		caps = make(map[Capability]*CapabilityConfig)
	}
	if endpoints == nil {
		endpoints = make(map[string]*EndpointConfig)
	}
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		defaultModel: "default",
		health:       newHealthState(DefaultHealthConfig()),
	}
}

// NewDefaultRegistry creates a registry pointing at Groq with a local Ollama fallback.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityAdvisory: {
				Description: "Structured agronomy reports grounded in search results",
				Preferred:   []string{"groq-llama"},
				Fallback:    []string{"llama3.2"},
			},
			CapabilityNegotiation: {
				Description: "Short in-character negotiation replies",
				Preferred:   []string{"groq-llama"},
				Fallback:    []string{"llama3.2"},
			},
			CapabilityVision: {
				Description: "Crop image grading and practice audits",
				Preferred:   []string{"groq-scout"},
			},
		},
		map[string]*EndpointConfig{
			"groq-llama": {
				Provider:  "groq",
				URL:       GroqURL,
				Model:     GroqChatModel,
				MaxTokens: 131072,
			},
			"groq-scout": {
				Provider:  "groq",
				URL:       GroqURL,
				Model:     GroqVisionModel,
				MaxTokens: 131072,
			},
			"llama3.2": {
				Provider:  "ollama",
				URL:       OllamaURL,
				Model:     "llama3.2",
				MaxTokens: 128000,
			},
		},
	)
	r.defaultModel = "groq-llama"
	return r
}

// Resolve returns the first preferred endpoint for a capability, or the default.
func (r *Registry) Resolve(cap Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[cap]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaultModel
}

// GetFallbackChain returns all endpoints for a capability in order of preference.
func (r *Registry) GetFallbackChain(cap Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[cap]; ok {
		chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
		chain = append(chain, cfg.Preferred...)
		chain = append(chain, cfg.Fallback...)
		return chain
	}
	return []string{r.defaultModel}
}

// GetEndpoint returns the endpoint configuration for a name, or nil.
func (r *Registry) GetEndpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.endpoints[name]
}

// SetCapability updates or adds a capability configuration.
func (r *Registry) SetCapability(cap Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[cap] = cfg
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = cfg
}

// SetDefault sets the endpoint used for unknown capabilities.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = name
}

// Default returns the endpoint used for unknown capabilities.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// ListCapabilities returns all configured capabilities, sorted.
func (r *Registry) ListCapabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]Capability, 0, len(r.capabilities))
	for cap := range r.capabilities {
		caps = append(caps, cap)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// ListEndpoints returns all configured endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every referenced endpoint exists.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for cap, cfg := range r.capabilities {
		for _, name := range cfg.Preferred {
			if _, ok := r.endpoints[name]; !ok {
				errs = append(errs, fmt.Errorf("capability %s: preferred model %q not found", cap, name))
			}
		}
		for _, name := range cfg.Fallback {
			if _, ok := r.endpoints[name]; !ok {
				errs = append(errs, fmt.Errorf("capability %s: fallback model %q not found", cap, name))
			}
		}
	}
	if _, ok := r.endpoints[r.defaultModel]; !ok {
		errs = append(errs, fmt.Errorf("default model %q not found", r.defaultModel))
	}
	return errors.Join(errs...)
}
