package model

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewRegistryFromConfigYAML(t *testing.T) {
	data := []byte(`
capabilities:
  negotiation:
    preferred: [fast]
    fallback: [local]
endpoints:
  fast:
    provider: groq
    url: https://api.groq.com/openai/v1
    model: llama-3.1-8b-instant
  local:
    provider: ollama
    url: http://localhost:11434/v1
    model: llama3.2
default: fast
`)

	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	r := NewRegistryFromConfig(&cfg)
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	chain := r.GetFallbackChain(CapabilityNegotiation)
	if len(chain) != 2 || chain[0] != "fast" || chain[1] != "local" {
		t.Errorf("unexpected chain: %v", chain)
	}
	if ep := r.GetEndpoint("fast"); ep == nil || ep.Model != "llama-3.1-8b-instant" {
		t.Errorf("unexpected endpoint: %+v", ep)
	}
}

func TestRegistryToConfig(t *testing.T) {
	r := NewDefaultRegistry()
	cfg := r.ToConfig()

	if len(cfg.Capabilities) != 3 {
		t.Errorf("expected 3 capabilities, got %d", len(cfg.Capabilities))
	}
	if cfg.Default != "groq-llama" {
		t.Errorf("expected default groq-llama, got %q", cfg.Default)
	}

	rebuilt := NewRegistryFromConfig(cfg)
	if got := rebuilt.Resolve(CapabilityVision); got != "groq-scout" {
		t.Errorf("expected groq-scout, got %q", got)
	}
}

func TestMergeFromConfig(t *testing.T) {
	r := NewDefaultRegistry()

	r.MergeFromConfig(&RegistryConfig{
		Capabilities: map[string]*CapabilityConfig{
			"advisory": {Preferred: []string{"llama3.2"}},
		},
		Endpoints: map[string]*EndpointConfig{
			"llama3.2": {Provider: "ollama", URL: "http://farm-box:11434/v1", Model: "llama3.2"},
		},
	})

	if got := r.Resolve(CapabilityAdvisory); got != "llama3.2" {
		t.Errorf("expected llama3.2, got %q", got)
	}
	if got := r.Resolve(CapabilityNegotiation); got != "groq-llama" {
		t.Errorf("negotiation should be untouched, got %q", got)
	}
	if ep := r.GetEndpoint("llama3.2"); ep.URL != "http://farm-box:11434/v1" {
		t.Errorf("expected overridden URL, got %q", ep.URL)
	}
	if r.Default() != "groq-llama" {
		t.Errorf("empty default should not override, got %q", r.Default())
	}

	r.MergeFromConfig(nil)
}
