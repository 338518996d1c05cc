package agent

import (
	"log/slog"
	"time"
)

type nodeConfig struct {
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Researcher, Synthesizer or Pipeline.
type Option func(*nodeConfig)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *nodeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records lookups, generations and node timings.
func WithMetrics(m *Metrics) Option {
	return func(c *nodeConfig) {
		c.metrics = m
	}
}

// WithClock overrides time.Now, used for the year in query templates.
func WithClock(now func() time.Time) Option {
	return func(c *nodeConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newNodeConfig(opts []Option) nodeConfig {
	cfg := nodeConfig{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
