// Package advisory produces a one-shot field report for a diagnosed crop:
// live treatment and price research followed by a structured write-up.
package advisory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veriyield/neuralchain/agent"
)

// Pipeline is the name used in logs and metrics.
const Pipeline = "advisory"

const (
	DefaultCrop     = "Crop"
	DefaultDisease  = "Unknown Issue"
	DefaultLocation = "Nashik"
)

// Config holds the advisory settings.
type Config struct {
	Location    string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns the demo settings.
func DefaultConfig() Config {
	return Config{
		Location:    DefaultLocation,
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

// Advisor runs the advisory pipeline. It keeps no history and no cache.
type Advisor struct {
	pipeline *agent.Pipeline
	location string
}

// NewAdvisor builds the advisory pipeline over the given capabilities.
func NewAdvisor(searcher agent.Searcher, completer agent.Completer, cfg Config, opts ...agent.Option) *Advisor {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}

	research := agent.NewResearcher(Pipeline, searcher, Queries(cfg.Location), opts...)
	synthesis := agent.NewSynthesizer(Pipeline, completer, Prompt(cfg.Location), agent.Params{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, opts...)

	return &Advisor{
		pipeline: agent.NewPipeline(Pipeline, research.Node(), synthesis.Node(), opts...),
		location: cfg.Location,
	}
}

// Invoke runs research then synthesis over initial.
func (a *Advisor) Invoke(ctx context.Context, initial agent.State) agent.State {
	return a.pipeline.Invoke(ctx, initial)
}

// Advise returns the field report for attrs.
func (a *Advisor) Advise(ctx context.Context, attrs agent.Attributes) string {
	return a.Invoke(ctx, agent.NewState(attrs, nil)).ResultText
}

// Queries returns the disease treatment and market price lookups. A search
// term suggested by image classification replaces the treatment template.
func Queries(location string) []agent.Query {
	return []agent.Query{
		{
			Label: "WEB SEARCH - DISEASE TREATMENT",
			Build: func(attrs agent.Attributes, now time.Time) string {
				if term := attrs.Get(agent.AttrSearchTerm, ""); term != "" {
					return term
				}
				return fmt.Sprintf("%s treatment %s fungicides India %d",
					attrs.Get(agent.AttrDisease, DefaultDisease), attrs.Get(agent.AttrCrop, DefaultCrop), now.Year())
			},
		},
		{
			Label: "WEB SEARCH - MARKET DATA",
			Build: func(attrs agent.Attributes, _ time.Time) string {
				return fmt.Sprintf("Current market price %s %s APMC mandis today",
					attrs.Get(agent.AttrCrop, DefaultCrop), attrs.Get(agent.AttrLocation, location))
			},
		},
	}
}

// Report section headings, in order.
const (
	HeadingTreatment  = "### 🛡️ Immediate Treatment Plan"
	HeadingMarket     = "### 💰 Market Pulse"
	HeadingPrevention = "### ⚠️ Prevention & Strategy"
)

// Prompt returns the field report prompt builder.
func Prompt(location string) agent.PromptBuilder {
	return func(st agent.State) string {
		loc := st.Attributes.Get(agent.AttrLocation, location)
		var b strings.Builder
		b.WriteString("You are VeriYield's Senior Agricultural Advisor.\n\n")
		b.WriteString("CONTEXT:\n")
		fmt.Fprintf(&b, "- Crop: %s\n", st.Attributes.Get(agent.AttrCrop, DefaultCrop))
		fmt.Fprintf(&b, "- Disease: %s\n", st.Attributes.Get(agent.AttrDisease, DefaultDisease))
		fmt.Fprintf(&b, "- Location: %s\n\n", loc)
		b.WriteString("LATEST WEB DATA:\n")
		b.WriteString(st.ResearchText)
		b.WriteString("\n\nTASK:\nGenerate a concise, actionable Field Report.\nStructure it exactly like this:\n\n")
		b.WriteString(HeadingTreatment + "\n")
		b.WriteString("(List 2-3 specific chemicals/organic methods mentioned in the search results).\n\n")
		fmt.Fprintf(&b, "%s (%s)\n", HeadingMarket, loc)
		b.WriteString("(Summarize the price trends found in the search. Should the farmer sell now or hold?)\n\n")
		b.WriteString(HeadingPrevention + "\n")
		b.WriteString("(One bullet point on preventing recurrence).\n\n")
		b.WriteString("Keep it professional, empathetic, and strictly based on the search data provided.\n")
		return b.String()
	}
}
