// Package main implements an offline stand-in for the Groq chat API.
//
// It answers OpenAI-compatible /v1/chat/completions requests from fixture
// files, routing by the request's "model" field, so the advisory, negotiation
// and vision flows can be demoed and tested without network access or keys.
//
// Usage:
//
//	mock-llm -fixtures ./fixtures -port 11434
//
// Fixture files are named after the model with a .txt or .json extension,
// e.g. "llama-3.3-70b-versatile.txt". Model names containing "/" use "_"
// instead. Numbered files ("model.1.txt", "model.2.txt") are served in order
// on successive calls before the base file, which then repeats.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// --- OpenAI-compatible types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatMessage content is a string for text chats and a parts array for
// image requests.
type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// text flattens the message content, dropping image parts.
func (m chatMessage) text() string {
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// hasImage reports whether the message carries an image part.
func (m chatMessage) hasImage() bool {
	var parts []contentPart
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return false
	}
	for _, p := range parts {
		if p.Type == "image_url" {
			return true
		}
	}
	return false
}

type replyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Index        int          `json:"index"`
	Message      replyMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// --- Server ---

// capturedRequest is a served call, kept for inspection via /requests.
type capturedRequest struct {
	Model     string   `json:"model"`
	Prompts   []string `json:"prompts"`
	Images    int      `json:"images"`
	CallIndex int      `json:"call_index"`
}

type server struct {
	fixtures map[string][]string
	logger   *slog.Logger

	mu       sync.Mutex
	calls    map[string]int
	requests []capturedRequest
}

func newServer(fixtures map[string][]string, logger *slog.Logger) *server {
	return &server{
		fixtures: fixtures,
		logger:   logger,
		calls:    make(map[string]int),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/requests", s.handleRequests)
	return mux
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture replies")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "fixtures"
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		logger.Error("Failed to load fixtures", "dir", *fixtureDir, "error", err)
		os.Exit(1)
	}
	for model, seq := range fixtures {
		logger.Info("Loaded fixtures", "model", model, "count", len(seq))
	}

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Mock LLM listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: newServer(fixtures, logger).routes(), ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	seq, ok := s.fixtures[fixtureKey(req.Model)]
	if !ok {
		s.logger.Warn("No fixture for model", "model", req.Model)
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}

	callIndex := s.record(req)
	content := seq[min(callIndex, len(seq)-1)]
	s.logger.Info("Served completion", "model", req.Model, "call", callIndex+1, "messages", len(req.Messages))

	writeJSON(w, chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      replyMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 4,
		},
	})
}

// record captures req and returns its 0-based call index for the model.
func (s *server) record(req chatRequest) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls[req.Model]
	s.calls[req.Model] = idx + 1

	c := capturedRequest{Model: req.Model, CallIndex: idx + 1}
	for _, m := range req.Messages {
		c.Prompts = append(c.Prompts, m.text())
		if m.hasImage() {
			c.Images++
		}
	}
	s.requests = append(s.requests, c)
	return idx
}

func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	names := make([]string, 0, len(s.fixtures))
	for name := range s.fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]modelEntry, 0, len(names))
	for _, name := range names {
		models = append(models, modelEntry{ID: name, Object: "model", OwnedBy: "mock-llm"})
	}
	writeJSON(w, map[string]any{"object": "list", "data": models})
}

// handleRequests returns captured calls, optionally filtered by ?model=.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("model")

	s.mu.Lock()
	out := make([]capturedRequest, 0, len(s.requests))
	for _, c := range s.requests {
		if filter == "" || c.Model == filter {
			out = append(out, c)
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"requests": out})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fixtureKey maps a model name onto its fixture file stem.
func fixtureKey(model string) string {
	return strings.ReplaceAll(model, "/", "_")
}

// numberedFileRe matches "model.1.txt" or "model.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.(txt|json)$`)

// loadFixtures reads dir and returns model stem to ordered replies: numbered
// files by index, then the base file.
func loadFixtures(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir: %w", err)
	}

	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if e.IsDir() || (ext != ".txt" && ext != ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if ext == ".json" && !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", name)
		}
		content := strings.TrimRight(string(data), "\n")

		if m := numberedFileRe.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][idx] = content
			continue
		}
		base[strings.TrimSuffix(name, ext)] = content
	}

	fixtures := make(map[string][]string)
	for model, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for idx := range byIndex {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[model] = append(fixtures[model], byIndex[idx])
		}
	}
	for model, content := range base {
		fixtures[model] = append(fixtures[model], content)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
