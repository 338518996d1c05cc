// Package market implements the negotiation flow: a broker persona that
// haggles over the farmer's produce using live mandi prices.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/veriyield/neuralchain/agent"
)

// Pipeline is the name used in logs and metrics.
const Pipeline = "negotiation"

const (
	// Name is the broker persona.
	Name = "Raju Bhai"

	DefaultCrop     = "Tomato"
	DefaultGrade    = "Grade B"
	DefaultLocation = "Nashik"
)

// QuickActions are canned farmer prompts offered by chat front ends.
var QuickActions = []QuickAction{
	{Label: "📈 Market Trend?", Message: "What is the market trend?"},
	{Label: "🚚 Arrivals?", Message: "How many trucks arrived today?"},
	{Label: "💰 Best Price?", Message: "Give me your best final rate."},
	{Label: "🛑 Should I hold?", Message: "Should I sell now or wait?"},
}

// QuickAction is a labelled canned message.
type QuickAction struct {
	Label   string
	Message string
}

// Config holds the negotiation settings.
type Config struct {
	Location    string
	Temperature float64
	MaxTokens   int
	// CacheSize bounds the number of crops whose research is remembered.
	CacheSize int
}

// DefaultConfig returns the demo settings.
func DefaultConfig() Config {
	return Config{
		Location:    DefaultLocation,
		Temperature: 0.7,
		MaxTokens:   256,
		CacheSize:   1024,
	}
}

// Broker wraps the negotiation pipeline with a per-crop research cache.
// Turn never modifies the caller's transcript.
type Broker struct {
	pipeline *agent.Pipeline
	cache    *lru.Cache[string, string]
}

// NewBroker builds the negotiation pipeline over the given capabilities.
func NewBroker(searcher agent.Searcher, completer agent.Completer, cfg Config, opts ...agent.Option) (*Broker, error) {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}

	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("research cache: %w", err)
	}

	research := agent.NewResearcher(Pipeline, searcher, Queries(cfg.Location), opts...)
	synthesis := agent.NewSynthesizer(Pipeline, completer, Prompt(cfg.Location), agent.Params{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		WithHistory: true,
	}, opts...)

	b := &Broker{
		pipeline: agent.NewPipeline(Pipeline, research.Node(), synthesis.Node(), opts...),
		cache:    cache,
	}
	return b, nil
}

// Turn answers one farmer message. The transcript is the conversation so far;
// the caller appends message and the reply to its own copy afterwards. Role
// labels are normalized here, so "assistant" or "bot" turns reach the model as
// agent turns.
func (b *Broker) Turn(ctx context.Context, transcript []agent.Turn, attrs agent.Attributes, message string) string {
	key := TopicKey(attrs)

	conversation := make([]agent.Turn, 0, len(transcript)+1)
	for _, t := range transcript {
		conversation = append(conversation, agent.NewTurn(string(t.Role), t.Content))
	}
	conversation = append(conversation, agent.Turn{Role: agent.RoleUser, Content: message})

	st := agent.NewState(attrs, conversation)
	if cached, ok := b.cache.Get(key); ok {
		st.ResearchText = cached
		st.Researched = true
	}

	final := b.pipeline.Invoke(ctx, st)
	b.cache.Add(key, final.ResearchText)
	return final.ResultText
}

// Research returns the cached research for a topic key.
func (b *Broker) Research(key string) (string, bool) {
	return b.cache.Get(key)
}

// TopicKey is the crop name, or DefaultCrop when absent. Different lots of
// the same crop share one cache entry.
func TopicKey(attrs agent.Attributes) string {
	return attrs.Get(agent.AttrCrop, DefaultCrop)
}

// Greeting is the broker's opening line for a crop.
func Greeting(attrs agent.Attributes) string {
	return fmt.Sprintf("Ram Ram Sir ji! I see you have some %s. Market is busy today. What is your expected rate (Bhaav)?",
		attrs.Get(agent.AttrCrop, DefaultCrop))
}

// Queries returns the single mandi price lookup.
func Queries(location string) []agent.Query {
	return []agent.Query{{
		Label: "WEB SEARCH - MARKET DATA",
		Build: func(attrs agent.Attributes, now time.Time) string {
			return fmt.Sprintf("current market price %s %s Mandi today %d",
				attrs.Get(agent.AttrCrop, DefaultCrop), attrs.Get(agent.AttrLocation, location), now.Year())
		},
	}}
}

// Prompt returns the persona prompt builder.
func Prompt(location string) agent.PromptBuilder {
	return func(st agent.State) string {
		loc := st.Attributes.Get(agent.AttrLocation, location)
		var b strings.Builder
		fmt.Fprintf(&b, "You are '%s', a smart and respected Commission Agent (Adatya) at %s Mandi.\n\n", Name, loc)
		b.WriteString("CONTEXT:\n")
		fmt.Fprintf(&b, "- User is selling: %s\n", st.Attributes.Get(agent.AttrCrop, DefaultCrop))
		fmt.Fprintf(&b, "- Quality Grade: %s\n", st.Attributes.Get(agent.AttrGrade, DefaultGrade))
		fmt.Fprintf(&b, "- REAL MARKET DATA (From Web): %s\n\n", st.ResearchText)
		b.WriteString("YOUR GOAL:\nNegotiate a price for the crop.\n\n")
		b.WriteString("BEHAVIOR:\n")
		b.WriteString("1. Use the real data: if the web says the price is ₹25, don't offer ₹50. Quote the real trends.\n")
		b.WriteString("2. Hinglish persona: use words like \"Bhaav\", \"Mandi\", \"Sir ji\", \"Maal (Produce)\".\n")
		b.WriteString("3. Negotiation strategy: for Grade A offer a premium over the web price; for Grade B lowball slightly and cite \"Market Down\".\n")
		b.WriteString("4. Short and conversational: talk like a human on WhatsApp. Max 2 sentences.\n\n")
		b.WriteString("Example:\n\"Sir ji, market is tight today. Online rates show ₹22/kg, but for your Grade A maal, I can give ₹24.\"\n")
		return b.String()
	}
}
