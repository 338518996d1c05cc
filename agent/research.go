package agent

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Placeholder stands in for a query whose lookup failed or came back empty.
const Placeholder = "Live web search unavailable. Using general market knowledge."

// Query is one search issued by the research node.
type Query struct {
	// Label heads the query's section in the research text, e.g.
	// "WEB SEARCH - MARKET DATA". Ignored when the researcher has a single query.
	Label string

	// Build renders the query string from the topic attributes.
	Build func(attrs Attributes, now time.Time) string
}

// Researcher is the research node.
type Researcher struct {
	pipeline string
	searcher Searcher
	queries  []Query
	cfg      nodeConfig
}

// NewResearcher creates a research node issuing queries in order.
func NewResearcher(pipeline string, searcher Searcher, queries []Query, opts ...Option) *Researcher {
	return &Researcher{
		pipeline: pipeline,
		searcher: searcher,
		queries:  queries,
		cfg:      newNodeConfig(opts),
	}
}

// Node returns the researcher as a pipeline node.
func (r *Researcher) Node() Node {
	return Node{Name: "research", Run: r.Run}
}

// Run fills ResearchText unless research is already present. It never fails:
// each failed or empty lookup contributes Placeholder, and when every lookup
// fails the research text is exactly Placeholder.
func (r *Researcher) Run(ctx context.Context, st State) State {
	logger := r.cfg.logger.With("pipeline", r.pipeline, "node", "research")

	if st.HasResearch() {
		logger.Debug("Research present, skipping lookup")
		r.cfg.metrics.researchSkipped(r.pipeline)
		st.Researched = true
		return st
	}

	now := r.cfg.now()
	sections := make([]string, 0, len(r.queries))
	failures := 0
	for _, q := range r.queries {
		query := q.Build(st.Attributes, now)
		text, err := r.lookup(ctx, query)
		if err != nil {
			failures++
			logger.Warn("Search failed, using placeholder", "query", query, "error", err)
			text = Placeholder
		}

		if len(r.queries) > 1 {
			text = "[" + q.Label + "]\n" + text
		}
		sections = append(sections, text)
	}

	if failures == len(r.queries) {
		st.ResearchText = Placeholder
	} else {
		st.ResearchText = strings.Join(sections, "\n\n")
	}
	st.Researched = true
	return st
}

func (r *Researcher) lookup(ctx context.Context, query string) (string, error) {
	if r.searcher == nil {
		r.cfg.metrics.lookup(r.pipeline, outcomeFailed)
		return "", lookupError(query, errors.New("no search capability"))
	}

	text, err := r.searcher.Search(ctx, query)
	switch {
	case err != nil:
		r.cfg.metrics.lookup(r.pipeline, outcomeFailed)
		return "", lookupError(query, err)
	case strings.TrimSpace(text) == "":
		r.cfg.metrics.lookup(r.pipeline, outcomeEmpty)
		return "", lookupError(query, errEmpty)
	}

	r.cfg.metrics.lookup(r.pipeline, outcomeOK)
	r.cfg.logger.Debug("Search returned", "pipeline", r.pipeline, "query", query, "bytes", len(text))
	return strings.TrimSpace(text), nil
}
