package middleware

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/authorclock/internal/adapters/http/dto"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// Timeout puts a deadline of d on each request context. A handler that
// overruns it without writing gets a 503 TIMEOUT envelope; handlers are
// expected to watch ctx.Done(). Paths in exempt, such as the event stream,
// run without a deadline, as does everything when d is not positive.
func Timeout(d time.Duration, exempt ...string) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if slices.Contains(exempt, c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}

		logging.FromContext(ctx).Warn("request deadline exceeded",
			slog.String("route", c.FullPath()),
			slog.Duration("timeout", d),
			slog.Bool("written", c.Writer.Written()),
		)

		if c.Writer.Written() {
			c.Abort()
			return
		}

		dto.Abort(c, dto.ErrorCodeTimeout, "request timeout exceeded")
	}
}
