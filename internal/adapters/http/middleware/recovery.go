package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/authorclock/internal/adapters/http/dto"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR envelope. It
// goes first in the chain so panics from every later middleware land here.
// An event stream that already sent headers is aborted without a body.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()
			trace.SpanFromContext(ctx).SetStatus(codes.Error, fmt.Sprint(r))

			logging.FromContextOr(ctx, logger).ErrorContext(ctx, "panic recovered",
				slog.Any("panic", r),
				slog.String("route", c.FullPath()),
				slog.String("method", c.Request.Method),
				slog.String("stack", string(debug.Stack())),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			dto.Abort(c, dto.ErrorCodeInternal, "an internal error occurred")
		}()

		c.Next()
	}
}
