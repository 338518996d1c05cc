package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veriyield/neuralchain/advisory"
	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/carbon"
	"github.com/veriyield/neuralchain/config"
	"github.com/veriyield/neuralchain/insurance"
	"github.com/veriyield/neuralchain/ledger"
	"github.com/veriyield/neuralchain/llm"
	"github.com/veriyield/neuralchain/market"
	"github.com/veriyield/neuralchain/model"
	"github.com/veriyield/neuralchain/search"
	"github.com/veriyield/neuralchain/vision"
)

// app holds the wired components for one command run.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *agent.Metrics

	searcher agent.Searcher
	llm      *llm.Client
	history  *ledger.History

	closers []func()
}

// newApp wires search, the LLM client and the history log. reg may be nil.
func newApp(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if reg != nil {
		a.metrics = agent.NewMetrics(reg)
	}

	searcher, closeSearch, err := buildSearcher(cfg.Search, logger)
	if err != nil {
		return nil, err
	}
	a.searcher = searcher
	a.closers = append(a.closers, closeSearch)

	registry, err := cfg.Registry()
	if err != nil {
		a.close()
		return nil, err
	}
	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Model.MaxAttempts
	a.llm = llm.NewClient(registry,
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
		llm.WithRetryConfig(retry),
		llm.WithLogger(logger))

	history, err := ledger.OpenHistory(cfg.Ledger.Path)
	if err != nil {
		a.close()
		return nil, err
	}
	a.history = history
	a.closers = append(a.closers, func() { _ = history.Close() })

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) agentOptions() []agent.Option {
	return []agent.Option{agent.WithLogger(a.logger), agent.WithMetrics(a.metrics)}
}

func (a *app) advisor() *advisory.Advisor {
	return advisory.NewAdvisor(a.searcher,
		agent.NewLLMCompleter(a.llm, model.CapabilityAdvisory),
		advisory.Config{
			Location:    a.cfg.Advisory.Location,
			Temperature: a.cfg.Advisory.Temperature,
			MaxTokens:   a.cfg.Advisory.MaxTokens,
		}, a.agentOptions()...)
}

func (a *app) broker() (*market.Broker, error) {
	return market.NewBroker(a.searcher,
		agent.NewLLMCompleter(a.llm, model.CapabilityNegotiation),
		market.Config{
			Location:    a.cfg.Negotiation.Location,
			Temperature: a.cfg.Negotiation.Temperature,
			MaxTokens:   a.cfg.Negotiation.MaxTokens,
			CacheSize:   a.cfg.Research.CacheSize,
		}, a.agentOptions()...)
}

func (a *app) classifier() *vision.Classifier {
	vc := vision.Config{
		APIKey:  visionAPIKey(a.cfg.Model.Provider),
		BaseURL: a.cfg.Model.Endpoint,
		Model:   a.cfg.Model.VisionModel,
		Timeout: a.cfg.Model.Timeout,
	}
	if a.cfg.Model.Provider == "anthropic" {
		// Image grading always goes through Groq's OpenAI-compatible API.
		vc.APIKey = os.Getenv("GROQ_API_KEY")
		vc.BaseURL = model.GroqURL
		vc.Model = model.GroqVisionModel
	}
	return vision.NewClassifier(vc, vision.WithLogger(a.logger))
}

func visionAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "ollama":
		return "ollama"
	default:
		return os.Getenv("GROQ_API_KEY")
	}
}

func (a *app) oracle() *insurance.Oracle {
	weather := insurance.NewWeather(a.cfg.Insurance.WeatherURL, os.Getenv("WEATHER_API_KEY"), nil, a.logger)
	return insurance.NewOracle(weather, a.history, insurance.Thresholds{
		Moderate: a.cfg.Insurance.ModerateRainMM,
		Critical: a.cfg.Insurance.CriticalRainMM,
	}, a.logger)
}

func (a *app) chain() *ledger.Chain {
	return ledger.NewChain(a.history, a.cfg.Ledger.Network, a.cfg.Ledger.ExplorerURL)
}

func (a *app) minter() *carbon.Minter {
	return carbon.NewMinter(a.history)
}

// buildSearcher assembles backend, query cache and text rendering.
func buildSearcher(cfg config.SearchConfig, logger *slog.Logger) (agent.Searcher, func(), error) {
	client := &http.Client{Timeout: cfg.Timeout}

	var backend search.Provider
	switch cfg.Provider {
	case "tavily":
		key := os.Getenv("TAVILY_API_KEY")
		if key == "" {
			return nil, nil, errors.New("search.provider tavily needs TAVILY_API_KEY")
		}
		backend = search.NewTavily(key, cfg.MaxResults, client)
	case "duckduckgo", "":
		backend = search.NewDuckDuckGo(
			search.WithHTTPClient(client),
			search.WithMinInterval(cfg.MinInterval),
			search.WithMaxResults(cfg.MaxResults))
	default:
		return nil, nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}

	closeFn := func() {}
	if cfg.CacheTTL > 0 {
		cached, err := search.NewCached(backend, cfg.CacheTTL, 1000)
		if err != nil {
			return nil, nil, fmt.Errorf("search cache: %w", err)
		}
		backend = cached
		closeFn = cached.Close
	}

	logger.Debug("Search configured", "provider", cfg.Provider, "cache_ttl", cfg.CacheTTL)
	return search.NewText(backend, cfg.MaxResults), closeFn, nil
}
