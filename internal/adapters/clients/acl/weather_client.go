package acl

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// forecastPath is the Open-Meteo forecast endpoint.
const forecastPath = "/v1/forecast"

// errNoCurrentWeather is returned when the response lacks current_weather.
var errNoCurrentWeather = errors.New("response has no current_weather")

// forecastResponse is the subset of the Open-Meteo forecast payload we read.
type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// WeatherClientConfig contains configuration for the weather client.
type WeatherClientConfig struct {
	// Client is the HTTP client. Its BaseURL is the Open-Meteo host.
	Client *clients.Client

	Latitude  float64
	Longitude float64

	// Logger is the structured logger.
	Logger *slog.Logger
}

// WeatherClient reads current conditions from Open-Meteo. It implements
// ports.WeatherProvider and ports.HealthChecker.
type WeatherClient struct {
	Remote
	path   string
	logger *slog.Logger
}

// NewWeatherClient creates a weather client. Panics if Client is nil.
func NewWeatherClient(cfg WeatherClientConfig) *WeatherClient {
	if cfg.Client == nil {
		panic("WeatherClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(cfg.Longitude, 'f', -1, 64))
	q.Set("current_weather", "true")

	return &WeatherClient{
		Remote: NewRemote(cfg.Client, "open-meteo"),
		path:   forecastPath + "?" + q.Encode(),
		logger: logger.With(slog.String("component", "acl.WeatherClient")),
	}
}

// Current returns the current weather. Failures are domain.WeatherFetchError.
func (c *WeatherClient) Current(ctx context.Context) (domain.Weather, error) {
	w, err := c.current(ctx)
	if err != nil {
		return domain.Weather{}, domain.NewWeatherFetchError(c.ServiceName(), err)
	}

	logging.Trace(ctx, c.logger, "current weather",
		slog.Float64("temperature", w.Temperature),
		slog.Int("code", w.Code),
	)

	return w, nil
}

func (c *WeatherClient) current(ctx context.Context) (domain.Weather, error) {
	body, err := c.Get(ctx, c.path, "get current weather")
	if err != nil {
		return domain.Weather{}, err
	}

	resp, err := DecodeResponse[forecastResponse](body)
	if err != nil {
		return domain.Weather{}, domain.NewValidationError("body", err.Error())
	}

	if resp.CurrentWeather == nil {
		return domain.Weather{}, domain.NewValidationError("current_weather", errNoCurrentWeather.Error())
	}

	return domain.Weather{
		Temperature: resp.CurrentWeather.Temperature,
		Code:        resp.CurrentWeather.WeatherCode,
	}, nil
}

// Name implements ports.HealthChecker.
func (c *WeatherClient) Name() string {
	return "weather"
}
