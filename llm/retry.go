package llm

import (
	"math/rand/v2"
	"time"
)

// RetryConfig controls how often one endpoint is tried before the client
// falls back to the next endpoint for the capability.
type RetryConfig struct {
	// MaxAttempts per endpoint; values below 1 are treated as 1.
	MaxAttempts int

	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig returns a single attempt per endpoint. Pipeline nodes make
// exactly one completion call, so a failing provider hands over to the
// fallback chain straight away. Raise model.max_attempts to retry in place.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// Backoff returns the wait after the given failed attempt (1-based): base
// times multiplier^(attempt-1), capped at MaxBackoff, with +/-25% jitter.
func (r RetryConfig) Backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= r.BackoffMultiplier
	}

	backoff := time.Duration(float64(r.BackoffBase) * multiplier)
	if r.MaxBackoff > 0 && backoff > r.MaxBackoff {
		backoff = r.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
