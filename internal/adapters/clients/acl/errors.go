package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/domain"
)

const problemBodyLimit = 4 << 10

// Problem is an error body from one of the downstreams. WorldTimeAPI and
// Quote/0 send {"error": "..."} or {"message": "..."}; Open-Meteo sends
// {"error": true, "reason": "..."}.
type Problem struct {
	Error   json.RawMessage `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Text returns the reason, the message or a string error, in that order.
func (p *Problem) Text() string {
	var s string

	switch {
	case p.Reason != "":
		return p.Reason
	case p.Message != "":
		return p.Message
	case json.Unmarshal(p.Error, &s) == nil:
		return s
	default:
		return ""
	}
}

// ReadProblem decodes the start of an error body. It returns "" when the
// body is missing, not JSON or carries no text.
func ReadProblem(body io.Reader) string {
	if body == nil {
		return ""
	}

	var p Problem
	if json.NewDecoder(io.LimitReader(body, problemBodyLimit)).Decode(&p) != nil {
		return ""
	}

	return p.Text()
}

// FromClientError turns a clients.Client failure into an UnavailableError.
func FromClientError(service, operation string, err error) error {
	var reason string

	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		reason = "circuit breaker open during " + operation
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		reason = "max retries exceeded during " + operation
	default:
		reason = fmt.Sprintf("%s failed: %v", operation, err)
	}

	return domain.NewUnavailableError(service, reason)
}

// FromResponse maps a non-2xx response to a domain error and returns nil for
// a 2xx. A 404 is NotFound with the operation as ID, other 4xx are
// Validation, and 5xx, 429 and rejected credentials are Unavailable since
// nothing the caller sends will fix them.
func FromResponse(service, operation string, resp *http.Response) error {
	if resp == nil {
		return domain.NewUnavailableError(service, "no response received")
	}

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	if status == http.StatusNotFound {
		return domain.NewNotFoundError(service, operation)
	}

	text := ReadProblem(resp.Body)
	if text == "" {
		text = fallbackText(status, operation)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewUnavailableError(service, "rate limit exceeded")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewUnavailableError(service, "credentials rejected: "+text)
	case status >= http.StatusInternalServerError:
		return domain.NewUnavailableError(service, text)
	default:
		return domain.NewValidationError("", text)
	}
}

var statusText = map[int]string{
	http.StatusBadRequest:         "invalid request",
	http.StatusUnauthorized:       "access denied",
	http.StatusForbidden:          "access denied",
	http.StatusServiceUnavailable: "service temporarily unavailable",
}

func fallbackText(status int, operation string) string {
	if text, ok := statusText[status]; ok {
		return text
	}

	return fmt.Sprintf("%s failed with status %d", operation, status)
}
