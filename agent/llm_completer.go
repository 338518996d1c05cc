package agent

import (
	"context"
	"fmt"

	"github.com/veriyield/neuralchain/llm"
	"github.com/veriyield/neuralchain/model"
)

// ChatClient is the subset of *llm.Client used by LLMCompleter.
type ChatClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// LLMCompleter adapts an llm client to Completer.
//
// Without history the prompt is sent as a single user message. With history
// the prompt becomes the system message followed by the conversation, users
// as "user" and agents as "assistant".
type LLMCompleter struct {
	client     ChatClient
	capability model.Capability
}

// NewLLMCompleter creates a completer resolving models through capability.
func NewLLMCompleter(client ChatClient, capability model.Capability) *LLMCompleter {
	return &LLMCompleter{client: client, capability: capability}
}

// Complete sends the completion and returns the reply text.
func (c *LLMCompleter) Complete(ctx context.Context, comp Completion) (string, error) {
	temperature := comp.Temperature
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability:  c.capability,
		Messages:    Messages(comp.Prompt, comp.History),
		Temperature: &temperature,
		MaxTokens:   comp.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("complete %s: %w", c.capability, err)
	}
	return resp.Content, nil
}

// Messages serializes a prompt and normalized history into chat messages.
func Messages(prompt string, history []Turn) []llm.Message {
	if len(history) == 0 {
		return []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: prompt})
	for _, t := range history {
		role := llm.RoleUser
		if NormalizeRole(string(t.Role)) == RoleAgent {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}
