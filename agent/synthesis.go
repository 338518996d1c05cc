package agent

import (
	"context"
	"errors"
	"strings"
)

// Fallback is the result when the completion capability fails or returns nothing.
const Fallback = "Unable to generate response, please retry."

// PromptBuilder renders the synthesis prompt from the accumulated state.
type PromptBuilder func(st State) string

// Params are the fixed generation settings of a pipeline.
type Params struct {
	Temperature float64
	MaxTokens   int

	// WithHistory passes the conversation to the completer alongside the prompt.
	WithHistory bool
}

// Synthesizer is the synthesis node.
type Synthesizer struct {
	pipeline  string
	completer Completer
	prompt    PromptBuilder
	params    Params
	cfg       nodeConfig
}

// NewSynthesizer creates a synthesis node.
func NewSynthesizer(pipeline string, completer Completer, prompt PromptBuilder, params Params, opts ...Option) *Synthesizer {
	return &Synthesizer{
		pipeline:  pipeline,
		completer: completer,
		prompt:    prompt,
		params:    params,
		cfg:       newNodeConfig(opts),
	}
}

// Node returns the synthesizer as a pipeline node.
func (s *Synthesizer) Node() Node {
	return Node{Name: "synthesis", Run: s.Run}
}

// Run calls the completer exactly once and stores the reply in ResultText,
// or Fallback if the call fails or the reply is blank.
func (s *Synthesizer) Run(ctx context.Context, st State) State {
	req := Completion{
		Pipeline:    s.pipeline,
		Prompt:      s.prompt(st),
		Temperature: s.params.Temperature,
		MaxTokens:   s.params.MaxTokens,
	}
	if s.params.WithHistory {
		req.History = append([]Turn(nil), st.Conversation...)
	}

	text, err := s.complete(ctx, req)
	if err != nil {
		s.cfg.logger.Warn("Completion failed, using fallback",
			"pipeline", s.pipeline,
			"node", "synthesis",
			"error", err)
		st.ResultText = Fallback
		return st
	}

	st.ResultText = text
	return st
}

func (s *Synthesizer) complete(ctx context.Context, req Completion) (string, error) {
	if s.completer == nil {
		s.cfg.metrics.generation(s.pipeline, outcomeFailed)
		return "", generationError(s.pipeline, errors.New("no completion capability"))
	}

	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.cfg.metrics.generation(s.pipeline, outcomeFailed)
		return "", generationError(s.pipeline, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.cfg.metrics.generation(s.pipeline, outcomeEmpty)
		return "", generationError(s.pipeline, errEmpty)
	}

	s.cfg.metrics.generation(s.pipeline, outcomeOK)
	return text, nil
}
