// Package testutil provides test doubles for code that talks to an llm.Client.
package testutil

import (
	"context"
	"sync"

	"github.com/veriyield/neuralchain/llm"
)

// MockLLMClient is a thread-safe stand-in for *llm.Client. It records every
// request and replays Responses in order.
//
//	mock := &testutil.MockLLMClient{
//	    Responses: []*llm.Response{{Content: "Ram Ram Sir ji!"}},
//	}
type MockLLMClient struct {
	mu            sync.Mutex
	Responses     []*llm.Response
	Err           error // takes precedence over Responses
	requests      []llm.Request
	responseIndex int
}

// Complete returns the next configured response, or Err when set.
// Once Responses is exhausted it returns an empty reply.
func (m *MockLLMClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}
	return &llm.Response{Model: "test-model"}, nil
}

// CallCount returns the number of Complete calls.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or the zero Request.
func (m *MockLLMClient) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests and rewinds Responses.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responseIndex = 0
}
