package model

import (
	"strings"
	"testing"
)

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	caps := r.ListCapabilities()
	if len(caps) != 3 {
		t.Errorf("expected 3 capabilities, got %d", len(caps))
	}

	endpoints := r.ListEndpoints()
	if len(endpoints) != 3 {
		t.Errorf("expected 3 endpoints, got %d", len(endpoints))
	}

	if err := r.Validate(); err != nil {
		t.Errorf("default registry should validate: %v", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		capability Capability
		expected   string
	}{
		{CapabilityAdvisory, "groq-llama"},
		{CapabilityNegotiation, "groq-llama"},
		{CapabilityVision, "groq-scout"},
		{Capability("unknown"), "groq-llama"},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			got := r.Resolve(tt.capability)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.capability, got, tt.expected)
			}
		})
	}
}

func TestRegistryGetFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()

	chain := r.GetFallbackChain(CapabilityNegotiation)
	if len(chain) != 2 {
		t.Fatalf("expected 2 models in chain, got %v", chain)
	}
	if chain[0] != "groq-llama" || chain[1] != "llama3.2" {
		t.Errorf("unexpected chain order: %v", chain)
	}

	unknown := r.GetFallbackChain(Capability("unknown"))
	if len(unknown) != 1 || unknown[0] != "groq-llama" {
		t.Errorf("unknown capability should fall back to default, got %v", unknown)
	}
}

func TestRegistryGetEndpoint(t *testing.T) {
	r := NewDefaultRegistry()

	ep := r.GetEndpoint("groq-scout")
	if ep == nil {
		t.Fatal("expected groq-scout endpoint")
	}
	if ep.Model != GroqVisionModel {
		t.Errorf("expected %s, got %s", GroqVisionModel, ep.Model)
	}
	if ep.Provider != "groq" {
		t.Errorf("expected groq provider, got %s", ep.Provider)
	}

	if r.GetEndpoint("missing") != nil {
		t.Error("expected nil for unknown endpoint")
	}
}

func TestRegistrySetters(t *testing.T) {
	r := NewRegistry(nil, nil)

	r.SetEndpoint("local", &EndpointConfig{Provider: "ollama", URL: OllamaURL, Model: "mistral"})
	r.SetCapability(CapabilityAdvisory, &CapabilityConfig{Preferred: []string{"local"}})
	r.SetDefault("local")

	if got := r.Resolve(CapabilityAdvisory); got != "local" {
		t.Errorf("expected local, got %q", got)
	}
	if got := r.Default(); got != "local" {
		t.Errorf("expected default local, got %q", got)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name     string
		registry func() *Registry
		errorMsg string
	}{
		{
			name: "missing preferred model",
			registry: func() *Registry {
				r := NewRegistry(
					map[Capability]*CapabilityConfig{
						CapabilityAdvisory: {Preferred: []string{"missing-model"}},
					},
					map[string]*EndpointConfig{"existing": {Provider: "groq", Model: "x"}},
				)
				r.SetDefault("existing")
				return r
			},
			errorMsg: `preferred model "missing-model" not found`,
		},
		{
			name: "missing fallback model",
			registry: func() *Registry {
				r := NewRegistry(
					map[Capability]*CapabilityConfig{
						CapabilityVision: {Preferred: []string{"valid"}, Fallback: []string{"missing-fallback"}},
					},
					map[string]*EndpointConfig{"valid": {Provider: "groq", Model: "x"}},
				)
				r.SetDefault("valid")
				return r
			},
			errorMsg: `fallback model "missing-fallback" not found`,
		},
		{
			name: "missing default model",
			registry: func() *Registry {
				r := NewRegistry(nil, map[string]*EndpointConfig{"existing": {Provider: "groq", Model: "x"}})
				r.SetDefault("nonexistent")
				return r
			},
			errorMsg: `default model "nonexistent" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.registry().Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error message should contain %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}
