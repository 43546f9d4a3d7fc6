package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/adapters/clients/acl"
	"github.com/jsamuelsen/authorclock/internal/app"
	"github.com/jsamuelsen/authorclock/internal/platform/clock"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
	"github.com/jsamuelsen/authorclock/internal/platform/telemetry"
	"github.com/jsamuelsen/authorclock/internal/ports"
)

// services holds what every long-running command shares.
type services struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *telemetry.Provider
	metrics   *telemetry.ClockMetrics
	loc       *time.Location
	clock     *clock.System
	health    *ports.DefaultHealthRegistry
}

// bootstrap loads configuration and starts logging and telemetry.
// Log records go to logOut.
func bootstrap(ctx context.Context, profile string, logOut io.Writer) (*services, error) {
	// 1. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := cfg.Clock.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving timezone: %w", err)
	}

	// 2. Initialize logging
	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
		RedactOptions: logging.RedactValues(cfg.Quote0.APIKey),
	}, logOut)
	logging.SetDefault(logger)

	logger.Info("starting authorclock",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("profile", profile),
		slog.String("timezone", loc.String()),
	)

	// 3. Initialize telemetry (noop if disabled)
	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Attributes: map[string]string{
			"authorclock.profile":  profile,
			"authorclock.timezone": loc.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	metrics, err := telemetry.NewClockMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("creating clock metrics: %w", err)
	}

	return &services{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		metrics:   metrics,
		loc:       loc,
		clock:     clock.New(loc),
		health:    ports.NewHealthRegistry(),
	}, nil
}

// close flushes telemetry.
func (s *services) close(ctx context.Context) {
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Error("telemetry shutdown error", slog.Any("error", err))
	}
}

// clientConfig returns the shared downstream client settings for one service.
func (s *services) clientConfig(name, baseURL string) *clients.Config {
	return &clients.Config{
		BaseURL:     baseURL,
		ServiceName: name,
		Timeout:     s.cfg.Client.Timeout,
		Retry:       s.cfg.Client.Retry,
		Circuit:     s.cfg.Client.CircuitBreaker,
		Transport:   s.cfg.Client.Transport,
		Logger:      s.logger,
	}
}

// buildCycle wires the dataset, time and weather adapters into a display
// cycle that renders to surfaces, and registers their health checks.
// The dataset is critical; everything else only degrades readiness.
func (s *services) buildCycle(surfaces []ports.Surface) (*app.DisplayCycle, error) {
	loader, err := s.datasetLoader()
	if err != nil {
		return nil, err
	}

	if err := s.health.Register(loader); err != nil {
		return nil, fmt.Errorf("registering dataset health check: %w", err)
	}

	var network ports.NetworkTimeSource

	if s.cfg.TimeSync.UseWebTime {
		tc, err := s.timeClient()
		if err != nil {
			return nil, err
		}

		if err := s.health.RegisterOptional(tc); err != nil {
			return nil, fmt.Errorf("registering network time health check: %w", err)
		}

		network = tc
	}

	var weather ports.WeatherProvider

	if s.cfg.Weather.Enabled {
		wc, err := s.weatherClient()
		if err != nil {
			return nil, err
		}

		if err := s.health.RegisterOptional(wc); err != nil {
			return nil, fmt.Errorf("registering weather health check: %w", err)
		}

		weather = wc
	}

	resolver := app.NewTimeResolver(app.TimeResolverConfig{
		Clock:    s.clock,
		Network:  network,
		Location: s.loc,
		Metrics:  s.metrics,
		Logger:   s.logger,
	})

	return app.NewDisplayCycle(app.DisplayCycleConfig{
		Loader:          loader,
		Resolver:        resolver,
		Clock:           s.clock,
		Surfaces:        surfaces,
		Weather:         weather,
		WeatherInterval: s.cfg.Weather.UpdateInterval,
		Policy:          app.TimePolicyFromConfig(s.cfg.TimeSync),
		Location:        s.loc,
		Settings:        s.cfg.Clock,
		Messages:        s.cfg.Messages,
		FontSize:        s.cfg.FontSize,
		Metrics:         s.metrics,
		Logger:          s.logger,
	}), nil
}

// deviceSurfaces returns the configured hardware surfaces. Quote/0 is the only one.
func (s *services) deviceSurfaces() ([]ports.Surface, error) {
	if !s.cfg.Quote0.Enabled {
		return nil, nil
	}

	ccfg := s.clientConfig("quote0", s.cfg.Quote0.BaseURL)
	ccfg.Limiter = rate.NewLimiter(rate.Limit(cmp.Or(s.cfg.Quote0.RateLimit, config.DefaultQuote0RateLimit)), 1)
	ccfg.AuthFunc = acl.BearerAuth(s.cfg.Quote0.APIKey)

	client, err := clients.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("creating quote0 client: %w", err)
	}

	device := acl.NewQuote0Client(acl.Quote0ClientConfig{
		Client:   client,
		DeviceID: s.cfg.Quote0.DeviceID,
		Width:    s.cfg.Quote0.Width,
		Logger:   s.logger,
	})

	if err := s.health.RegisterOptional(device); err != nil {
		return nil, fmt.Errorf("registering quote0 health check: %w", err)
	}

	return []ports.Surface{device}, nil
}

func (s *services) datasetLoader() (*acl.DatasetClient, error) {
	cfg := acl.DatasetClientConfig{
		Source: s.cfg.Clock.DataURL,
		Logger: s.logger,
	}

	if acl.IsRemoteSource(cfg.Source) {
		client, err := clients.New(s.clientConfig("dataset", cfg.Source))
		if err != nil {
			return nil, fmt.Errorf("creating dataset client: %w", err)
		}

		cfg.Client = client
	}

	return acl.NewDatasetClient(cfg), nil
}

// timeClient makes a single attempt per refresh, bounded by time_sync.timeout.
func (s *services) timeClient() (*acl.TimeClient, error) {
	ccfg := s.clientConfig("network-time", s.cfg.TimeSync.WebTimeAPI)
	ccfg.Timeout = s.cfg.TimeSync.Timeout
	ccfg.Retry.MaxAttempts = 1

	client, err := clients.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("creating network time client: %w", err)
	}

	return acl.NewTimeClient(acl.TimeClientConfig{
		Client:   client,
		Location: s.loc,
		Logger:   s.logger,
	}), nil
}

func (s *services) weatherClient() (*acl.WeatherClient, error) {
	client, err := clients.New(s.clientConfig("open-meteo", s.cfg.Weather.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("creating weather client: %w", err)
	}

	return acl.NewWeatherClient(acl.WeatherClientConfig{
		Client:    client,
		Latitude:  s.cfg.Weather.Latitude,
		Longitude: s.cfg.Weather.Longitude,
		Logger:    s.logger,
	}), nil
}

// runCycle starts the cycle and drives it until ctx is canceled. A start
// failure leaves the failure message on every surface; it is returned only
// when exitOnFailure is set.
func runCycle(ctx context.Context, logger *slog.Logger, cycle *app.DisplayCycle, exitOnFailure bool) error {
	if err := cycle.Start(ctx); err != nil {
		logger.Error("display cycle failed to start", slog.Any("error", err))

		if exitOnFailure {
			return err
		}

		return nil
	}

	return cycle.Run(ctx)
}
