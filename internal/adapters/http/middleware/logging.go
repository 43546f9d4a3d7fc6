package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// Logging logs one line per request once the handler chain returns, at warn
// for 4xx and error for 5xx. An event stream therefore logs when its client
// leaves. Probe paths under /-/ and any skip paths are not logged.
//
// The request logger from the context is preferred so request and
// correlation IDs are included.
func Logging(logger *slog.Logger, skip ...string) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/-/") || slices.Contains(skip, path) {
			c.Next()
			return
		}

		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}

		ctx := c.Request.Context()
		log := logging.FromContextOr(ctx, logger).With(
			slog.String("method", c.Request.Method),
			slog.String("path", path),
		)

		log.Debug("request started",
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		log.Log(ctx, levelFor(status), "request completed",
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.Int64("latency_ms", elapsed.Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
