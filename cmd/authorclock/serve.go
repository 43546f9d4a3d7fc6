package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/authorclock/internal/adapters/http"
	"github.com/jsamuelsen/authorclock/internal/adapters/http/handlers"
	"github.com/jsamuelsen/authorclock/internal/adapters/http/sse"
	"github.com/jsamuelsen/authorclock/internal/ports"
)

func addServe(topLevel *cobra.Command, root *rootOptions) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the clock page, its event stream and the JSON API.",
		Example: `
authorclock serve
authorclock serve --profile prod
APP_SERVER_PORT=9090 authorclock serve
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root.profile)
		},
	}

	topLevel.AddCommand(cmd)
}

func runServe(ctx context.Context, profile string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap(ctx, profile, os.Stdout)
	if err != nil {
		return err
	}

	defer svc.close(context.WithoutCancel(ctx))

	cfg := svc.cfg

	// Surfaces: every browser tab shares one broker
	broker := sse.NewBroker(sse.BrokerConfig{Logger: svc.logger})

	devices, err := svc.deviceSurfaces()
	if err != nil {
		return err
	}

	cycle, err := svc.buildCycle(append([]ports.Surface{broker}, devices...))
	if err != nil {
		return err
	}

	// Handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(svc.health, buildInfo)
	displayHandler := handlers.NewDisplayHandler(handlers.DisplayHandlerConfig{
		Source:     cycle,
		Events:     broker,
		Selectors:  cfg.Selectors,
		Fade:       cfg.Clock.FadeOutDuration,
		CharBudget: cfg.Clock.CharBudget,
		MaxLines:   cfg.Clock.MaxLines,
		Logger:     svc.logger,
	})

	// HTTP server with all middleware and routes
	server := http.New(&cfg.Server, svc.logger)

	http.Routes{
		Logger:         svc.logger,
		ServiceName:    cfg.App.Name,
		Health:         healthHandler,
		Display:        displayHandler,
		RequestTimeout: cfg.Server.RequestTimeout,
	}.Mount(server.Engine())

	// Event streams never finish on their own.
	server.OnShutdown(broker.Close)

	// The page is served while the dataset loads, so browsers see the loading state.
	serverErr, err := server.Start()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runCycle(gctx, svc.logger, cycle, false)
	})

	g.Go(func() error {
		return waitForShutdown(gctx, svc.logger, server, serverErr, cfg.Server.ShutdownTimeout)
	})

	return g.Wait()
}

// waitForShutdown blocks until ctx is canceled or the server fails, then
// drains in-flight requests.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return nil

	case <-ctx.Done():
		logger.Info("received shutdown signal", slog.Any("cause", context.Cause(ctx)))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
