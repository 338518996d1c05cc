// Package config provides layered YAML configuration for the veriyield tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veriyield/neuralchain/model"
)

// Config represents the complete configuration.
type Config struct {
	Model       ModelConfig     `yaml:"model"`
	Search      SearchConfig    `yaml:"search"`
	Research    ResearchConfig  `yaml:"research"`
	Advisory    PipelineConfig  `yaml:"advisory"`
	Negotiation PipelineConfig  `yaml:"negotiation"`
	Insurance   InsuranceConfig `yaml:"insurance"`
	Ledger      LedgerConfig    `yaml:"ledger"`
}

// ModelConfig selects the LLM endpoints. API keys come from the environment.
type ModelConfig struct {
	// Provider is groq, openai, ollama or anthropic.
	Provider string `yaml:"provider"`
	// Endpoint is the API base URL for the provider.
	Endpoint    string        `yaml:"endpoint"`
	ChatModel   string        `yaml:"chat_model"`
	VisionModel string        `yaml:"vision_model"`
	Timeout     time.Duration `yaml:"timeout"`
	// MaxAttempts is per endpoint; pipelines expect a single attempt.
	MaxAttempts int `yaml:"max_attempts"`
	// Registry overlays the generated capability table.
	Registry *model.RegistryConfig `yaml:"registry,omitempty"`
}

// SearchConfig configures the web search capability.
type SearchConfig struct {
	// Provider is duckduckgo or tavily.
	Provider   string        `yaml:"provider"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
	// CacheTTL memoizes identical queries; 0 disables the query cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// MinInterval spaces out requests to the search backend.
	MinInterval time.Duration `yaml:"min_interval"`
}

// ResearchConfig sizes the per-topic research cache in front of negotiation.
type ResearchConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// PipelineConfig holds per-pipeline generation settings.
type PipelineConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Location    string  `yaml:"location"`
}

// InsuranceConfig configures the weather oracle.
type InsuranceConfig struct {
	WeatherURL     string  `yaml:"weather_url"`
	ModerateRainMM float64 `yaml:"moderate_rain_mm"`
	CriticalRainMM float64 `yaml:"critical_rain_mm"`
}

// LedgerConfig configures the mock chain and its history log.
type LedgerConfig struct {
	Path        string `yaml:"path"`
	Network     string `yaml:"network"`
	ExplorerURL string `yaml:"explorer_url"`
}

// DefaultConfig returns a Config with the demo defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "groq",
			Endpoint:    model.GroqURL,
			ChatModel:   model.GroqChatModel,
			VisionModel: model.GroqVisionModel,
			Timeout:     60 * time.Second,
			MaxAttempts: 1,
		},
		Search: SearchConfig{
			Provider:    "duckduckgo",
			Timeout:     15 * time.Second,
			MaxResults:  3,
			CacheTTL:    10 * time.Minute,
			MinInterval: time.Second,
		},
		Research: ResearchConfig{
			CacheSize: 1024,
		},
		Advisory: PipelineConfig{
			Temperature: 0.3,
			MaxTokens:   1024,
			Location:    "Nashik",
		},
		Negotiation: PipelineConfig{
			Temperature: 0.7,
			MaxTokens:   256,
			Location:    "Nashik",
		},
		Insurance: InsuranceConfig{
			WeatherURL:     "https://api.openweathermap.org/data/2.5/weather",
			ModerateRainMM: 50,
			CriticalRainMM: 100,
		},
		Ledger: LedgerConfig{
			Path:        "veriyield.db",
			Network:     "Polygon Amoy Testnet (Simulated)",
			ExplorerURL: "https://amoy.polygonscan.com/tx/",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Model.Provider {
	case "groq", "openai", "ollama", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not supported", c.Model.Provider))
	}
	if c.Model.ChatModel == "" {
		errs = append(errs, errors.New("model.chat_model is required"))
	}
	if c.Model.MaxAttempts < 1 {
		errs = append(errs, errors.New("model.max_attempts must be at least 1"))
	}
	switch c.Search.Provider {
	case "duckduckgo", "tavily":
	default:
		errs = append(errs, fmt.Errorf("search.provider %q is not supported", c.Search.Provider))
	}
	if c.Research.CacheSize < 1 {
		errs = append(errs, errors.New("research.cache_size must be positive"))
	}
	for name, p := range map[string]PipelineConfig{"advisory": c.Advisory, "negotiation": c.Negotiation} {
		if p.Temperature < 0 || p.Temperature > 2 {
			errs = append(errs, fmt.Errorf("%s.temperature must be between 0 and 2", name))
		}
	}
	if c.Insurance.ModerateRainMM >= c.Insurance.CriticalRainMM {
		errs = append(errs, errors.New("insurance.moderate_rain_mm must be below critical_rain_mm"))
	}
	if c.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger.path is required"))
	}
	return errors.Join(errs...)
}

// Registry builds the model registry: the default Groq table re-pointed at the
// configured provider, then the registry overlay.
func (c *Config) Registry() (*model.Registry, error) {
	r := model.NewDefaultRegistry()
	for name, m := range map[string]string{"groq-llama": c.Model.ChatModel, "groq-scout": c.Model.VisionModel} {
		ep := *r.GetEndpoint(name)
		ep.Provider = c.Model.Provider
		ep.URL = c.Model.Endpoint
		if m != "" {
			ep.Model = m
		}
		r.SetEndpoint(name, &ep)
	}
	r.MergeFromConfig(c.Model.Registry)
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("model registry: %w", err)
	}
	return r, nil
}

// LoadFromFile reads a YAML file. Keys absent from the file stay zero so the
// result can be merged over another layer.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge overlays the non-zero values of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	setString(&c.Model.Provider, other.Model.Provider)
	setString(&c.Model.Endpoint, other.Model.Endpoint)
	setString(&c.Model.ChatModel, other.Model.ChatModel)
	setString(&c.Model.VisionModel, other.Model.VisionModel)
	setNonZero(&c.Model.Timeout, other.Model.Timeout)
	setNonZero(&c.Model.MaxAttempts, other.Model.MaxAttempts)
	if other.Model.Registry != nil {
		c.Model.Registry = other.Model.Registry
	}

	setString(&c.Search.Provider, other.Search.Provider)
	setNonZero(&c.Search.Timeout, other.Search.Timeout)
	setNonZero(&c.Search.MaxResults, other.Search.MaxResults)
	setNonZero(&c.Search.CacheTTL, other.Search.CacheTTL)
	setNonZero(&c.Search.MinInterval, other.Search.MinInterval)

	setNonZero(&c.Research.CacheSize, other.Research.CacheSize)

	c.Advisory.merge(other.Advisory)
	c.Negotiation.merge(other.Negotiation)

	setString(&c.Insurance.WeatherURL, other.Insurance.WeatherURL)
	setNonZero(&c.Insurance.ModerateRainMM, other.Insurance.ModerateRainMM)
	setNonZero(&c.Insurance.CriticalRainMM, other.Insurance.CriticalRainMM)

	setString(&c.Ledger.Path, other.Ledger.Path)
	setString(&c.Ledger.Network, other.Ledger.Network)
	setString(&c.Ledger.ExplorerURL, other.Ledger.ExplorerURL)
}

func (p *PipelineConfig) merge(other PipelineConfig) {
	setNonZero(&p.Temperature, other.Temperature)
	setNonZero(&p.MaxTokens, other.MaxTokens)
	setString(&p.Location, other.Location)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNonZero[T int | float64 | time.Duration](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}
