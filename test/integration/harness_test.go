//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/adapters/clients/acl"
	apphttp "github.com/jsamuelsen/authorclock/internal/adapters/http"
	"github.com/jsamuelsen/authorclock/internal/adapters/http/handlers"
	"github.com/jsamuelsen/authorclock/internal/adapters/http/sse"
	"github.com/jsamuelsen/authorclock/internal/app"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/ports"
)

// datasetJSON has two records for 09:41; the first one is shown.
const datasetJSON = `[
  {"time": "09:41", "quote": "It was nine forty-one when the letter finally came, and nobody in the house wanted to be the one to open it.", "timeString": "nine forty-one", "title": "The Letter", "author": "A. Writer"},
  {"time": "09:41", "quote": "At nine forty-one the second record arrived too late.", "timeString": "nine forty-one", "title": "Second", "author": "B. Writer"},
  {"time": "12:00", "quote": "The bells began at noon and did not stop.", "timeString": "noon", "title": "Bells", "author": "C. Writer"}
]`

// fixedClock reports one instant. Its timers never fire, so only Start renders.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) After(time.Duration) <-chan time.Time { return nil }

func (c fixedClock) NewTicker(time.Duration) ports.Ticker { return idleTicker{} }

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }

func (idleTicker) Stop() {}

// at returns today's date at hhmm, in UTC.
func at(hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", hhmm, err)
	}

	y, m, d := time.Now().UTC().Date()

	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// writeDataset writes datasetJSON into dir and returns its path.
func writeDataset(dir string) (string, error) {
	path := filepath.Join(dir, "quotes.json")

	return path, os.WriteFile(path, []byte(datasetJSON), 0o600)
}

// testClientConfig returns a fast-failing client config for integration testing.
func testClientConfig(name, baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: name,
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 2,
		},
	}
}

var testMessages = config.MessagesConfig{
	Loading:            "Loading...",
	DatasetError:       "Unable to load quotes. Please try again later.",
	NoQuote:            "No quote for this minute.",
	TimeUnavailable:    "Time unavailable",
	WeatherUnavailable: "Weather unavailable",
}

var testSelectors = config.SelectorsConfig{
	Quote:       "quote",
	Attribution: "attribution",
	DateTime:    "datetime",
	Weather:     "weather",
	Error:       "error",
}

// harnessConfig selects the sources a harness is wired to.
type harnessConfig struct {
	// Dataset is a file path or an http(s) URL.
	Dataset string

	// Now is the device clock reading.
	Now time.Time

	// TimeAPI and WeatherAPI are optional base URLs.
	TimeAPI    string
	WeatherAPI string

	// Devices are extra surfaces next to the web broker.
	Devices []ports.Surface
}

// harness is a started clock behind the full HTTP router.
type harness struct {
	server   *httptest.Server
	cycle    *app.DisplayCycle
	broker   *sse.Broker
	health   *ports.DefaultHealthRegistry
	startErr error
	cancel   context.CancelFunc
}

// startHarness wires the production components around hc and starts the cycle.
// A dataset failure is kept in startErr; the harness still serves.
func startHarness(hc harnessConfig) (*harness, error) {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	health := ports.NewHealthRegistry()
	clk := fixedClock{now: hc.Now}

	loaderCfg := acl.DatasetClientConfig{Source: hc.Dataset, Logger: logger}
	if acl.IsRemoteSource(hc.Dataset) {
		client, err := clients.New(testClientConfig("dataset", hc.Dataset))
		if err != nil {
			return nil, err
		}

		loaderCfg.Client = client
	}

	loader := acl.NewDatasetClient(loaderCfg)
	if err := health.Register(loader); err != nil {
		return nil, err
	}

	timeSync := config.TimeSyncConfig{Timeout: time.Second}

	var network ports.NetworkTimeSource

	if hc.TimeAPI != "" {
		client, err := clients.New(testClientConfig("network-time", hc.TimeAPI))
		if err != nil {
			return nil, err
		}

		tc := acl.NewTimeClient(acl.TimeClientConfig{Client: client, Location: time.UTC, Logger: logger})
		if err := health.RegisterOptional(tc); err != nil {
			return nil, err
		}

		network = tc
		timeSync = config.TimeSyncConfig{
			UseWebTime:            true,
			WebTimeAPI:            hc.TimeAPI,
			MaxDiscrepancySeconds: config.DefaultMaxDiscrepancySeconds,
			FallbackToSystemTime:  true,
			Timeout:               time.Second,
		}
	}

	var weather ports.WeatherProvider

	if hc.WeatherAPI != "" {
		client, err := clients.New(testClientConfig("open-meteo", hc.WeatherAPI))
		if err != nil {
			return nil, err
		}

		wc := acl.NewWeatherClient(acl.WeatherClientConfig{Client: client, Latitude: 51.5, Longitude: -0.12, Logger: logger})
		if err := health.RegisterOptional(wc); err != nil {
			return nil, err
		}

		weather = wc
	}

	broker := sse.NewBroker(sse.BrokerConfig{Logger: logger})

	cycle := app.NewDisplayCycle(app.DisplayCycleConfig{
		Loader: loader,
		Resolver: app.NewTimeResolver(app.TimeResolverConfig{
			Clock:    clk,
			Network:  network,
			Location: time.UTC,
			Logger:   logger,
		}),
		Clock:           clk,
		Surfaces:        append([]ports.Surface{broker}, hc.Devices...),
		Weather:         weather,
		WeatherInterval: 10 * time.Minute,
		Policy:          app.TimePolicyFromConfig(timeSync),
		Location:        time.UTC,
		Settings: config.ClockConfig{
			DataURL:         hc.Dataset,
			RefreshInterval: time.Minute,
			DateLayout:      "Monday, January 2, 2006 15:04",
			CharBudget:      config.DefaultCharBudget,
			MaxLines:        config.DefaultMaxLines,
		},
		Messages: testMessages,
		FontSize: config.FontSizeConfig{
			Large:           "2.6rem",
			Medium:          "2.1rem",
			Small:           "1.7rem",
			MediumMinLength: 100,
			SmallMinLength:  200,
		},
		Logger: logger,
	})

	displayHandler := handlers.NewDisplayHandler(handlers.DisplayHandlerConfig{
		Source:    cycle,
		Events:    broker,
		Selectors: testSelectors,
		Heartbeat: 50 * time.Millisecond,
		Logger:    logger,
	})
	healthHandler := handlers.NewHealthHandler(health, handlers.NewBuildInfo("test", "test", "test"))

	engine := gin.New()
	apphttp.Routes{Logger: logger, Health: healthHandler, Display: displayHandler}.Mount(engine)

	ctx, cancel := context.WithCancel(context.Background())

	h := &harness{
		server: httptest.NewServer(engine),
		cycle:  cycle,
		broker: broker,
		health: health,
		cancel: cancel,
	}

	h.startErr = cycle.Start(ctx)
	if h.startErr == nil {
		go func() { _ = cycle.Run(ctx) }()
	}

	return h, nil
}

// Close stops the cycle and the server.
func (h *harness) Close() {
	h.cancel()
	h.broker.Close()
	h.server.Close()
}
