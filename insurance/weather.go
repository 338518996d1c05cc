// Package insurance implements the parametric crop insurance oracle: a live
// rainfall reading mapped onto tiered payouts.
package insurance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultWeatherURL is the OpenWeatherMap current-conditions endpoint.
const DefaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// Reading is a current weather observation.
type Reading struct {
	TempC     float64 `json:"temp"`
	RainMM    float64 `json:"rain_mm"`
	Condition string  `json:"condition"`
	// Live is false for the fallback reading.
	Live bool `json:"live"`
}

// FallbackReading is used whenever the weather service cannot be reached.
func FallbackReading() Reading {
	return Reading{TempC: 32, RainMM: 0, Condition: "Clear Sky (Fallback)"}
}

// WeatherSource returns the current reading for a city.
type WeatherSource interface {
	Current(ctx context.Context, city string) Reading
}

// Weather queries an OpenWeatherMap-compatible API.
type Weather struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWeather creates a weather client. An empty endpoint uses DefaultWeatherURL.
func NewWeather(endpoint, apiKey string, client *http.Client, logger *slog.Logger) *Weather {
	if endpoint == "" {
		endpoint = DefaultWeatherURL
	}
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Weather{endpoint: endpoint, apiKey: apiKey, httpClient: client, logger: logger}
}

type owmResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Current returns the live reading, or FallbackReading on any failure.
func (w *Weather) Current(ctx context.Context, city string) Reading {
	r, err := w.fetch(ctx, city)
	if err != nil {
		w.logger.Warn("Weather lookup failed, using fallback", "city", city, "error", err)
		return FallbackReading()
	}
	return r
}

func (w *Weather) fetch(ctx context.Context, city string) (Reading, error) {
	if w.apiKey == "" {
		return Reading{}, errors.New("no weather API key")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather service: http %d", resp.StatusCode)
	}

	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("decode weather: %w", err)
	}
	if len(body.Weather) == 0 {
		return Reading{}, errors.New("weather response has no conditions")
	}

	return Reading{
		TempC:     body.Main.Temp,
		RainMM:    body.Rain.OneHour,
		Condition: body.Weather[0].Main,
		Live:      true,
	}, nil
}
