package agent_test

import (
	"context"
	"errors"
	"sync"

	"github.com/veriyield/neuralchain/agent"
)

// countingSearcher answers every query with the configured text or error.
type countingSearcher struct {
	mu      sync.Mutex
	text    string
	err     error
	queries []string
}

func (s *countingSearcher) Search(_ context.Context, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *countingSearcher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

// recordingCompleter echoes the prompt unless reply or err is set.
type recordingCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	seen  []agent.Completion
}

func (c *recordingCompleter) Complete(_ context.Context, req agent.Completion) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, req)
	if c.err != nil {
		return "", c.err
	}
	if c.reply != "" {
		return c.reply, nil
	}
	return req.Prompt, nil
}

func (c *recordingCompleter) last() agent.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[len(c.seen)-1]
}

var errDown = errors.New("connection refused")
