// Package dto provides the request and response shapes of the HTTP API and
// the error envelope every endpoint uses.
package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail is the machine code, the message and any per-field messages.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeBadRequest  = "BAD_REQUEST"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeDataset     = "DATASET_UNAVAILABLE"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)

// internalMessage hides the cause of unclassified errors from clients.
const internalMessage = "an internal error occurred"

var statusByCode = map[string]int{
	ErrorCodeNotFound:    http.StatusNotFound,
	ErrorCodeValidation:  http.StatusBadRequest,
	ErrorCodeBadRequest:  http.StatusBadRequest,
	ErrorCodeUnavailable: http.StatusServiceUnavailable,
	ErrorCodeDataset:     http.StatusServiceUnavailable,
	ErrorCodeTimeout:     http.StatusServiceUnavailable,
	ErrorCodeInternal:    http.StatusInternalServerError,
}

// StatusFor returns the HTTP status an error code is sent with. Unknown codes
// are 500.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// NewErrorResponse builds an envelope without details.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// WithTraceID sets the trace ID and returns e.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// FromError classifies a domain error. Errors outside the domain taxonomy
// become INTERNAL_ERROR with a generic message.
func FromError(err error) *ErrorResponse {
	switch {
	case domain.IsNotFound(err):
		return NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var ve *domain.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			resp.Error.Details = map[string]string{ve.Field: ve.Message}
		}

		return resp

	case domain.IsDatasetLoad(err):
		return NewErrorResponse(ErrorCodeDataset, err.Error())

	case domain.IsUnavailable(err), domain.IsTimeUnavailable(err), domain.IsWeatherFetch(err):
		return NewErrorResponse(ErrorCodeUnavailable, err.Error())

	default:
		return NewErrorResponse(ErrorCodeInternal, internalMessage)
	}
}

// TraceID returns the request's trace ID: the active span's, then a
// "trace_id" gin key, then the X-Request-ID header.
func TraceID(c *gin.Context) string {
	if c.Request == nil {
		return c.GetString("trace_id")
	}

	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	if id := c.GetString("trace_id"); id != "" {
		return id
	}

	return c.Request.Header.Get("X-Request-ID")
}

// WriteError writes the envelope for a domain error. Unclassified errors are
// logged since their cause is not sent.
func WriteError(c *gin.Context, err error) {
	resp := FromError(err)

	if resp.Error.Code == ErrorCodeInternal {
		logging.FromContext(c.Request.Context()).Error("unhandled error", slog.Any("error", err))
	}

	write(c, resp)
}

// WriteCode writes an envelope for code with message.
func WriteCode(c *gin.Context, code, message string) {
	write(c, NewErrorResponse(code, message))
}

// WriteBindError writes the response for a failed BindAndValidate or
// BindURIAndValidate: per-field messages for validation failures, otherwise
// a bad request.
func WriteBindError(c *gin.Context, err error) {
	if !IsValidationError(err) {
		WriteCode(c, ErrorCodeBadRequest, "malformed request")
		return
	}

	resp := NewErrorResponse(ErrorCodeValidation, "request validation failed")
	resp.Error.Details = ValidationErrors(err)

	write(c, resp)
}

// Abort writes an envelope for code and stops the handler chain.
func Abort(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(StatusFor(code), NewErrorResponse(code, message).WithTraceID(TraceID(c)))
}

func write(c *gin.Context, resp *ErrorResponse) {
	c.JSON(StatusFor(resp.Error.Code), resp.WithTraceID(TraceID(c)))
}
