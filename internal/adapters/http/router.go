package http

import (
	"cmp"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/authorclock/internal/adapters/http/handlers"
	"github.com/jsamuelsen/authorclock/internal/adapters/http/middleware"
	"github.com/jsamuelsen/authorclock/internal/platform/telemetry"
)

const defaultRequestTimeout = 30 * time.Second

// Routes is everything the engine serves. A nil handler leaves its routes
// out.
type Routes struct {
	Logger *slog.Logger

	// ServiceName names the server spans. Defaults to "authorclock".
	ServiceName string

	Health  *handlers.HealthHandler
	Display *handlers.DisplayHandler

	// RequestTimeout bounds /api/v1 requests other than the event stream.
	// Zero means 30s.
	RequestTimeout time.Duration
}

// Mount installs the middleware chain and the routes on engine.
//
// Every request passes recovery, then the request and correlation ID
// middleware, then tracing and metrics, then the request log. Probes under
// /-/ and the event stream are not traced, and /api/v1 adds a deadline the
// event stream is exempt from.
//
//	/           the clock page
//	/-/         live, ready, build, metrics
//	/api/v1/    display, events, quotes/:time, fit
func (r Routes) Mount(engine *gin.Engine) {
	engine.Use(
		middleware.Recovery(r.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cmp.Or(r.ServiceName, "authorclock"), "/-/", handlers.EventsPath)...)
	engine.Use(middleware.Logging(r.Logger, "/favicon.ico"))

	if r.Health != nil {
		r.Health.RegisterHealthRoutes(engine)
	}

	if r.Display == nil {
		return
	}

	api := engine.Group("/api/v1", middleware.Timeout(cmp.Or(r.RequestTimeout, defaultRequestTimeout), handlers.EventsPath))
	r.Display.RegisterDisplayRoutes(engine, api)
}
