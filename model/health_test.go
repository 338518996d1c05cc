package model

import (
	"testing"
	"time"
)

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	if !r.IsEndpointAvailable("groq-llama") {
		t.Error("expected groq-llama to be available initially")
	}
	if r.GetEndpointHealth("groq-llama") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("groq-llama")

	health := r.GetEndpointHealth("groq-llama")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available || health.FailureCount != 0 {
		t.Errorf("unexpected health after success: %+v", health)
	}
	if health.LastSuccess.IsZero() {
		t.Error("expected last success to be set")
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	r.MarkEndpointFailure("groq-llama")
	if !r.IsEndpointAvailable("groq-llama") {
		t.Error("expected endpoint to be available after 1 failure")
	}

	r.MarkEndpointFailure("groq-llama")
	if r.IsEndpointAvailable("groq-llama") {
		t.Error("expected endpoint to be unavailable after circuit opens")
	}

	health := r.GetEndpointHealth("groq-llama")
	if health == nil || !health.CircuitOpen || health.FailureCount != 2 {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: 30 * time.Second})

	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	r.health.now = func() time.Time { return now }

	r.MarkEndpointFailure("groq-llama")
	if r.IsEndpointAvailable("groq-llama") {
		t.Fatal("expected circuit to be open")
	}

	now = now.Add(31 * time.Second)
	if !r.IsEndpointAvailable("groq-llama") {
		t.Error("expected endpoint to be half-open after recovery timeout")
	}

	r.MarkEndpointSuccess("groq-llama")
	health := r.GetEndpointHealth("groq-llama")
	if health.CircuitOpen {
		t.Error("expected success to close the circuit")
	}
}

func TestGetAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	r.MarkEndpointFailure("groq-llama")

	chain := r.GetAvailableFallbackChain(CapabilityAdvisory)
	if len(chain) != 1 || chain[0] != "llama3.2" {
		t.Errorf("expected only llama3.2, got %v", chain)
	}
}

func TestGetAvailableFallbackChainAllUnavailable(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	r.MarkEndpointFailure("groq-llama")
	r.MarkEndpointFailure("llama3.2")

	chain := r.GetAvailableFallbackChain(CapabilityAdvisory)
	if len(chain) != 2 {
		t.Errorf("expected full chain when all unavailable, got %v", chain)
	}
}

func TestResetEndpointHealth(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	r.MarkEndpointFailure("groq-scout")
	if r.IsEndpointAvailable("groq-scout") {
		t.Fatal("expected circuit to be open")
	}

	r.ResetEndpointHealth("groq-scout")
	if !r.IsEndpointAvailable("groq-scout") {
		t.Error("expected endpoint available after reset")
	}
	if r.GetEndpointHealth("groq-scout") != nil {
		t.Error("expected health info cleared")
	}
}

func TestDefaultHealthConfig(t *testing.T) {
	cfg := DefaultHealthConfig()
	if cfg.FailureThreshold != 3 {
		t.Errorf("expected threshold 3, got %d", cfg.FailureThreshold)
	}
	if cfg.RecoveryTimeout != 30*time.Second {
		t.Errorf("expected 30s recovery, got %v", cfg.RecoveryTimeout)
	}
}
