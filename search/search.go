// Package search provides the web search capability used by the research
// nodes: DuckDuckGo and Tavily backends, a TTL query cache, and an adapter
// that renders results as grounding text.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider runs a query against a search backend.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// ErrNoResults is returned by Text when the backend found nothing.
var ErrNoResults = errors.New("no search results")

// Text renders Provider results as plain grounding text. It satisfies the
// agent.Searcher interface.
type Text struct {
	provider Provider
	limit    int
}

// NewText wraps provider, keeping at most limit results (0 keeps all).
func NewText(provider Provider, limit int) *Text {
	return &Text{provider: provider, limit: limit}
}

// Search runs the query and formats the results.
func (t *Text) Search(ctx context.Context, query string) (string, error) {
	results, err := t.provider.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if t.limit > 0 && len(results) > t.limit {
		results = results[:t.limit]
	}
	text := Format(results)
	if text == "" {
		return "", fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	return text, nil
}

// Format joins results one per paragraph as "title: snippet (url)".
func Format(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		snippet := strings.TrimSpace(r.Snippet)
		if title == "" && snippet == "" {
			continue
		}

		var b strings.Builder
		b.WriteString(title)
		if snippet != "" {
			if title != "" {
				b.WriteString(": ")
			}
			b.WriteString(snippet)
		}
		if r.URL != "" {
			b.WriteString(" (" + r.URL + ")")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// httpStatusError is returned for non-200 responses.
type httpStatusError struct {
	backend string
	status  int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s: http %d", e.backend, e.status)
}
