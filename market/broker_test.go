package market_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/llm"
	"github.com/veriyield/neuralchain/market"
)

type topicSearcher struct {
	mu      sync.Mutex
	byCrop  map[string]string
	err     error
	queries []string
}

func (s *topicSearcher) Search(_ context.Context, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return "", s.err
	}
	for crop, text := range s.byCrop {
		if strings.Contains(query, crop) {
			return text, nil
		}
	}
	return "generic mandi report", nil
}

type historyCompleter struct {
	seen []agent.Completion
	err  error
}

func (c *historyCompleter) Complete(_ context.Context, req agent.Completion) (string, error) {
	c.seen = append(c.seen, req)
	if c.err != nil {
		return "", c.err
	}
	return "Sir ji, ₹24 final.", nil
}

func newBroker(t *testing.T, s agent.Searcher, c agent.Completer) *market.Broker {
	t.Helper()
	b, err := market.NewBroker(s, c, market.DefaultConfig(),
		agent.WithClock(func() time.Time { return time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	return b
}

func TestBroker_FirstTurnHistory(t *testing.T) {
	c := &historyCompleter{}
	b := newBroker(t, &topicSearcher{}, c)

	reply := b.Turn(context.Background(), nil, agent.Attributes{agent.AttrCrop: "Tomato"}, "hello")

	assert.Equal(t, "Sir ji, ₹24 final.", reply)
	require.Len(t, c.seen, 1)
	assert.Equal(t, []agent.Turn{{Role: agent.RoleUser, Content: "hello"}}, c.seen[0].History)
	assert.InDelta(t, 0.7, c.seen[0].Temperature, 1e-9)
}

func TestBroker_SecondTurnUsesCache(t *testing.T) {
	s := &topicSearcher{byCrop: map[string]string{"Tomato": "Tomato ₹22/kg"}}
	b := newBroker(t, s, &historyCompleter{})
	attrs := agent.Attributes{agent.AttrCrop: "Tomato", agent.AttrGrade: "Grade A"}

	b.Turn(context.Background(), nil, attrs, "hello")
	require.Len(t, s.queries, 1)
	assert.Equal(t, "current market price Tomato Nashik Mandi today 2025", s.queries[0])

	transcript := []agent.Turn{
		{Role: agent.RoleUser, Content: "hello"},
		{Role: agent.RoleAgent, Content: "Sir ji, ₹24 final."},
	}
	b.Turn(context.Background(), transcript, attrs, "Give me your best final rate.")

	assert.Len(t, s.queries, 1, "second turn must not search again")
}

func TestBroker_CacheIsolation(t *testing.T) {
	s := &topicSearcher{byCrop: map[string]string{
		"Tomato": "Tomato arrivals heavy, ₹18/kg",
		"Onion":  "Onion steady at ₹30/kg",
	}}
	b := newBroker(t, s, &historyCompleter{})

	b.Turn(context.Background(), nil, agent.Attributes{agent.AttrCrop: "Tomato"}, "hi")
	b.Turn(context.Background(), nil, agent.Attributes{agent.AttrCrop: "Onion"}, "hi")

	tomato, ok := b.Research("Tomato")
	require.True(t, ok)
	onion, ok := b.Research("Onion")
	require.True(t, ok)

	assert.NotEqual(t, tomato, onion)
	assert.Equal(t, "Tomato arrivals heavy, ₹18/kg", tomato)
	assert.Equal(t, "Onion steady at ₹30/kg", onion)
}

func TestBroker_DoesNotMutateTranscript(t *testing.T) {
	b := newBroker(t, &topicSearcher{}, &historyCompleter{})
	transcript := make([]agent.Turn, 1, 4)
	transcript[0] = agent.Turn{Role: agent.RoleAgent, Content: "Ram Ram Sir ji!"}

	b.Turn(context.Background(), transcript, nil, "What is the market trend?")

	assert.Len(t, transcript, 1)
	assert.Equal(t, "Ram Ram Sir ji!", transcript[0].Content)
	assert.Empty(t, transcript[:cap(transcript)][1].Content)
}

func TestBroker_NormalizesTranscriptRoles(t *testing.T) {
	c := &historyCompleter{}
	b := newBroker(t, &topicSearcher{}, c)
	transcript := []agent.Turn{
		{Role: "assistant", Content: "Ram Ram Sir ji!"},
		{Role: "Farmer", Content: "Tomato lot ready"},
	}

	b.Turn(context.Background(), transcript, nil, "hello")

	require.Len(t, c.seen, 1)
	history := c.seen[0].History
	require.Len(t, history, 3)
	assert.Equal(t, agent.RoleAgent, history[0].Role)
	assert.Equal(t, agent.RoleUser, history[1].Role)
	assert.Equal(t, agent.RoleUser, history[2].Role)
	assert.Equal(t, agent.Role("assistant"), transcript[0].Role)

	msgs := agent.Messages(c.seen[0].Prompt, history)
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, llm.RoleUser, msgs[2].Role)
}

func TestBroker_DefaultTopicKey(t *testing.T) {
	s := &topicSearcher{}
	b := newBroker(t, s, &historyCompleter{})

	b.Turn(context.Background(), nil, nil, "hello")

	_, ok := b.Research(market.DefaultCrop)
	assert.True(t, ok)
	assert.Contains(t, s.queries[0], "Tomato")
}

func TestBroker_DegradesWhenEverythingFails(t *testing.T) {
	boom := errors.New("offline")
	c := &historyCompleter{err: boom}
	b := newBroker(t, &topicSearcher{err: boom}, c)

	reply := b.Turn(context.Background(), nil, agent.Attributes{agent.AttrCrop: "Grapes"}, "hello")

	assert.Equal(t, agent.Fallback, reply)
	research, _ := b.Research("Grapes")
	assert.Equal(t, agent.Placeholder, research)
	assert.Contains(t, c.seen[0].Prompt, agent.Placeholder)
}

func TestPromptCarriesContext(t *testing.T) {
	prompt := market.Prompt("Nashik")(agent.State{
		Attributes:   agent.Attributes{agent.AttrCrop: "Onion", agent.AttrGrade: "Grade A", agent.AttrLocation: "Lasalgaon"},
		ResearchText: "Onion ₹30/kg",
	})

	assert.Contains(t, prompt, "Raju Bhai")
	assert.Contains(t, prompt, "Lasalgaon Mandi")
	assert.Contains(t, prompt, "User is selling: Onion")
	assert.Contains(t, prompt, "Quality Grade: Grade A")
	assert.Contains(t, prompt, "Onion ₹30/kg")
}

func TestGreeting(t *testing.T) {
	assert.Equal(t,
		"Ram Ram Sir ji! I see you have some Potato. Market is busy today. What is your expected rate (Bhaav)?",
		market.Greeting(agent.Attributes{agent.AttrCrop: "Potato"}))
	assert.Contains(t, market.Greeting(nil), "some Tomato.")
}

func TestQuickActions(t *testing.T) {
	require.Len(t, market.QuickActions, 4)
	assert.Equal(t, "Give me your best final rate.", market.QuickActions[2].Message)
}
