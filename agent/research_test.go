package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veriyield/neuralchain/agent"
)

var fixedNow = func() time.Time { return time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC) }

func twoQueries() []agent.Query {
	return []agent.Query{
		{Label: "WEB SEARCH - DISEASE TREATMENT", Build: func(a agent.Attributes, now time.Time) string {
			return a.Get(agent.AttrDisease, "") + " treatment " + a.Get(agent.AttrCrop, "") + " " + now.Format("2006")
		}},
		{Label: "WEB SEARCH - MARKET DATA", Build: func(a agent.Attributes, _ time.Time) string {
			return "market price " + a.Get(agent.AttrCrop, "")
		}},
	}
}

func TestResearcher_LabelsSections(t *testing.T) {
	s := &countingSearcher{text: "Use copper fungicide"}
	r := agent.NewResearcher("advisory", s, twoQueries(), agent.WithClock(fixedNow))

	st := r.Run(context.Background(), agent.NewState(agent.Attributes{
		agent.AttrCrop:    "Tomato",
		agent.AttrDisease: "Early Blight",
	}, nil))

	require.Equal(t, []string{"Early Blight treatment Tomato 2025", "market price Tomato"}, s.queries)
	assert.Equal(t,
		"[WEB SEARCH - DISEASE TREATMENT]\nUse copper fungicide\n\n[WEB SEARCH - MARKET DATA]\nUse copper fungicide",
		st.ResearchText)
	assert.True(t, st.Researched)
}

func TestResearcher_SingleQueryStoresRawText(t *testing.T) {
	s := &countingSearcher{text: "  Tomato ₹24/kg at Nashik  "}
	r := agent.NewResearcher("negotiation", s, twoQueries()[1:])

	st := r.Run(context.Background(), agent.NewState(agent.Attributes{agent.AttrCrop: "Tomato"}, nil))

	assert.Equal(t, "Tomato ₹24/kg at Nashik", st.ResearchText)
}

func TestResearcher_AllFailuresYieldPlaceholder(t *testing.T) {
	s := &countingSearcher{err: errDown}
	r := agent.NewResearcher("advisory", s, twoQueries())

	st := r.Run(context.Background(), agent.NewState(agent.Attributes{agent.AttrCrop: "Tomato"}, nil))

	assert.Equal(t, agent.Placeholder, st.ResearchText)
	assert.Equal(t, 2, s.calls())
}

func TestResearcher_PartialFailure(t *testing.T) {
	calls := 0
	s := agent.SearchFunc(func(_ context.Context, q string) (string, error) {
		calls++
		if calls == 1 {
			return "", errDown
		}
		return "Lasalgaon onion 18/kg", nil
	})
	r := agent.NewResearcher("advisory", s, twoQueries())

	st := r.Run(context.Background(), agent.NewState(agent.Attributes{agent.AttrCrop: "Onion"}, nil))

	assert.Equal(t,
		"[WEB SEARCH - DISEASE TREATMENT]\n"+agent.Placeholder+"\n\n[WEB SEARCH - MARKET DATA]\nLasalgaon onion 18/kg",
		st.ResearchText)
}

func TestResearcher_EmptyResultCountsAsFailure(t *testing.T) {
	s := &countingSearcher{text: "   "}
	r := agent.NewResearcher("negotiation", s, twoQueries()[1:])

	st := r.Run(context.Background(), agent.NewState(nil, nil))

	assert.Equal(t, agent.Placeholder, st.ResearchText)
}

func TestResearcher_NilSearcher(t *testing.T) {
	r := agent.NewResearcher("negotiation", nil, twoQueries()[1:])

	st := r.Run(context.Background(), agent.NewState(nil, nil))

	assert.Equal(t, agent.Placeholder, st.ResearchText)
}

func TestResearcher_SkipsSeededResearch(t *testing.T) {
	tests := []struct {
		name  string
		state agent.State
	}{
		{"long seeded text", agent.State{ResearchText: "Mandi arrivals heavy, rates 18-22/kg"}},
		{"short text with flag", agent.State{ResearchText: "₹20/kg", Researched: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingSearcher{text: "fresh"}
			r := agent.NewResearcher("negotiation", s, twoQueries())

			st := r.Run(context.Background(), tt.state)

			assert.Zero(t, s.calls())
			assert.Equal(t, tt.state.ResearchText, st.ResearchText)
		})
	}
}

func TestResearcher_ShortUnflaggedTextIsRefreshed(t *testing.T) {
	s := &countingSearcher{text: "fresh market data"}
	r := agent.NewResearcher("negotiation", s, twoQueries()[1:])

	st := r.Run(context.Background(), agent.State{ResearchText: "stale"})

	assert.Equal(t, 1, s.calls())
	assert.Equal(t, "fresh market data", st.ResearchText)
}
