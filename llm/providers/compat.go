package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/veriyield/neuralchain/llm"
)

// ChatCompletions speaks the OpenAI chat completions wire format shared by
// Groq, OpenAI and Ollama. The vendors differ only in default URL and key.
type ChatCompletions struct {
	ProviderName string
	DefaultURL   string

	// KeyEnv names the environment variable holding the bearer token.
	// An unset variable sends no Authorization header.
	KeyEnv string
}

func init() {
	llm.RegisterProvider(&ChatCompletions{ProviderName: "groq", DefaultURL: "https://api.groq.com/openai/v1", KeyEnv: "GROQ_API_KEY"})
	llm.RegisterProvider(&ChatCompletions{ProviderName: "openai", DefaultURL: "https://api.openai.com/v1", KeyEnv: "OPENAI_API_KEY"})
	llm.RegisterProvider(&ChatCompletions{ProviderName: "ollama", DefaultURL: "http://localhost:11434/v1"})
}

// Name returns the provider identifier.
func (p *ChatCompletions) Name() string {
	return p.ProviderName
}

// BuildURL appends /chat/completions unless the URL already ends with it.
func (p *ChatCompletions) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = p.DefaultURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds the bearer token when one is configured.
func (p *ChatCompletions) SetHeaders(req *http.Request) {
	if p.KeyEnv == "" {
		return
	}
	if apiKey := os.Getenv(p.KeyEnv); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// BuildRequestBody creates the chat completions request body.
func (p *ChatCompletions) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	return json.Marshal(req)
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.TokenUsage `json:"usage"`
}

// ParseResponse extracts the first choice.
func (p *ChatCompletions) ParseResponse(body []byte) (*llm.Response, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.ProviderName, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}
	return &llm.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		Usage:        resp.Usage,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}
