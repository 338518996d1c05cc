package agent

import "context"

// Searcher looks up grounding text for a query. Implementations bound their
// own latency; a timeout is reported as an error.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SearchFunc adapts a function to Searcher.
type SearchFunc func(ctx context.Context, query string) (string, error)

// Search calls f.
func (f SearchFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Completion is one language model call.
type Completion struct {
	// Pipeline names the calling pipeline so completers can pick a model.
	Pipeline string

	Prompt string

	// History is the normalized conversation, oldest first. Empty for
	// single-shot pipelines.
	History []Turn

	Temperature float64
	MaxTokens   int
}

// Completer turns a prompt and history into reply text.
type Completer interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// CompleteFunc adapts a function to Completer.
type CompleteFunc func(ctx context.Context, c Completion) (string, error)

// Complete calls f.
func (f CompleteFunc) Complete(ctx context.Context, c Completion) (string, error) {
	return f(ctx, c)
}
