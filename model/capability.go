// Package model provides capability-based model selection for the agent pipelines.
// Pipelines ask for a capability (advisory, negotiation, vision) and the registry
// resolves it to a configured endpoint with a fallback chain.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityAdvisory is for factual, structured field reports.
	CapabilityAdvisory Capability = "advisory"

	// CapabilityNegotiation is for short conversational persona replies.
	CapabilityNegotiation Capability = "negotiation"

	// CapabilityVision is for image grading and field audits.
	CapabilityVision Capability = "vision"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityAdvisory, CapabilityNegotiation, CapabilityVision:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
