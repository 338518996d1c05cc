// Package vision grades crop photos and audits sustainability claims with a
// multimodal model served over an OpenAI-compatible API.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/llm"
	"github.com/veriyield/neuralchain/model"
)

// ErrNoClient is reported when no API key was configured.
var ErrNoClient = errors.New("vision client unavailable")

// Config configures the vision client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultConfig targets Groq's Llama 4 Scout.
func DefaultConfig() Config {
	return Config{
		BaseURL: model.GroqURL,
		Model:   model.GroqVisionModel,
		Timeout: 60 * time.Second,
	}
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Classifier) {
		c.httpClient = hc
	}
}

// Classifier calls the vision model. Its methods never return errors; every
// failure is folded into a fallback record.
type Classifier struct {
	client     *openai.Client
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClassifier creates a classifier. With an empty API key the classifier
// still works but always returns fallback records.
func NewClassifier(cfg Config, opts ...Option) *Classifier {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	c := &Classifier{
		model:  cfg.Model,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.APIKey == "" {
		c.logger.Warn("No vision API key configured, image analysis disabled")
		return c
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if c.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.httpClient))
	}
	client := openai.NewClient(reqOpts...)
	c.client = &client
	return c
}

// Available reports whether an API client is configured.
func (c *Classifier) Available() bool {
	return c.client != nil
}

// ask sends prompt and image as one user message and returns the reply text.
func (c *Classifier) ask(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error) {
	if c.client == nil {
		return "", ErrNoClient
	}
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: DataURL(image),
				}),
			}),
		},
		Temperature: openai.Float(0.1),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// DataURL encodes image as a base64 data URL, sniffing the content type.
func DataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// Result is a graded crop sample.
type Result struct {
	CropType        string   `json:"crop_type"`
	DiseaseName     string   `json:"disease_name"`
	SearchTerm      string   `json:"search_term"`
	VisualDefects   []string `json:"visual_defects"`
	EstimatedSizeMM string   `json:"estimated_size_mm,omitempty"`
	ColorStage      string   `json:"color_stage,omitempty"`
	FCIGrade        string   `json:"fci_grade"`
	Confidence      string   `json:"confidence"`
	Explanation     string   `json:"explanation"`
}

// UnmarshalJSON accepts estimated_size_mm as a number or a string.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var wire struct {
		plain
		EstimatedSizeMM json.RawMessage `json:"estimated_size_mm"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result(wire.plain)

	raw := strings.TrimSpace(string(wire.EstimatedSizeMM))
	switch {
	case raw == "" || raw == "null":
		r.EstimatedSizeMM = ""
	case strings.HasPrefix(raw, `"`):
		if err := json.Unmarshal(wire.EstimatedSizeMM, &r.EstimatedSizeMM); err != nil {
			return err
		}
	default:
		r.EstimatedSizeMM = raw
	}
	return nil
}

// Failed reports whether r is a fallback record.
func (r Result) Failed() bool {
	return r.DiseaseName == fallbackDisease
}

// Attributes maps the record onto pipeline topic attributes.
func (r Result) Attributes(location string) agent.Attributes {
	attrs := agent.Attributes{
		agent.AttrCrop:       r.CropType,
		agent.AttrGrade:      r.FCIGrade,
		agent.AttrDisease:    r.DiseaseName,
		agent.AttrSearchTerm: r.SearchTerm,
	}
	if location != "" {
		attrs[agent.AttrLocation] = location
	}
	return attrs
}

const fallbackDisease = "Error - Analysis Failed"

// Fallback is the record returned when analysis fails.
func Fallback(reason string) Result {
	return Result{
		CropType:      "Unknown",
		DiseaseName:   fallbackDisease,
		SearchTerm:    "Sustainable farming tips India",
		VisualDefects: []string{"System Error"},
		FCIGrade:      "N/A",
		Confidence:    "Zero",
		Explanation:   "System could not process image. Reason: " + reason,
	}
}

const assayerPrompt = `You are an APEDA-certified agricultural assayer. Analyze this image based on FCI (Food Corporation of India) standards.
Return ONLY a valid JSON object.

Structure:
{
    "crop_type": "Tomato/Wheat/etc",
    "disease_name": "Specific Disease or 'Healthy'",
    "search_term": "A perfect web search query for this issue (e.g., 'Early Blight Tomato treatment India %d')",
    "visual_defects": ["List visible defects, e.g., 'Black Spots', 'Shriveled'"],
    "estimated_size_mm": "Estimate diameter in mm",
    "color_stage": "Green | Breaker | Pink | Red",
    "fci_grade": "Grade A (if size > 50mm AND defects < 5%%) | Grade B | Reject",
    "confidence": "High/Medium/Low",
    "explanation": "Technical justification citing FCI norms."
}`

// Classify grades a crop photo.
func (c *Classifier) Classify(ctx context.Context, image []byte) Result {
	reply, err := c.ask(ctx, fmt.Sprintf(assayerPrompt, time.Now().Year()), image, 500)
	if err != nil {
		c.logger.Error("Image analysis failed", "error", err)
		return Fallback(err.Error())
	}

	var res Result
	if err := llm.DecodeJSON(reply, &res); err != nil {
		c.logger.Error("Failed to parse vision reply", "error", err, "reply", reply)
		return Fallback("JSON Parse Error")
	}
	c.logger.Info("Image analysis complete", "crop", res.CropType, "disease", res.DiseaseName, "grade", res.FCIGrade)
	return res
}
