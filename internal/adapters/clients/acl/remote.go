package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
)

// Remote is the part every adapter shares: the instrumented client, the
// name errors carry and the mapping of failures to domain errors.
type Remote struct {
	client  *clients.Client
	service string
}

// NewRemote names the downstream service, or uses the client's name when
// service is empty.
func NewRemote(client *clients.Client, service string) Remote {
	if service == "" {
		service = client.ServiceName()
	}

	return Remote{client: client, service: service}
}

func (r *Remote) ServiceName() string { return r.service }

// Breaker returns the client's circuit breaker snapshot.
func (r *Remote) Breaker() clients.BreakerSnapshot { return r.client.Breaker() }

// Get returns the body of a 2xx or 3xx response to GET path. The caller
// closes it. operation names the call in errors.
func (r *Remote) Get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	return r.open(operation)(r.client.Get(ctx, path))
}

// Post is Get for a JSON POST.
func (r *Remote) Post(ctx context.Context, path string, body io.Reader, operation string) (io.ReadCloser, error) {
	return r.open(operation)(r.client.Post(ctx, path, body))
}

func (r *Remote) open(operation string) func(*http.Response, error) (io.ReadCloser, error) {
	return func(resp *http.Response, err error) (io.ReadCloser, error) {
		switch {
		case err != nil:
			return nil, FromClientError(r.service, operation, err)
		case resp.StatusCode >= http.StatusBadRequest:
			defer resp.Body.Close()
			return nil, FromResponse(r.service, operation, resp)
		default:
			return resp.Body, nil
		}
	}
}

// DecodeResponse decodes a JSON body into a new T and closes the body.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer body.Close()

	out := new(T)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return out, nil
}

// Translator turns one external record into a domain value or rejects it.
type Translator[E, D any] func(ext *E) (D, error)

// TranslateSlice translates every record and fails on the first rejection.
func TranslateSlice[E, D any](records []E, translate Translator[E, D]) ([]D, error) {
	out := make([]D, len(records))

	for i := range records {
		d, err := translate(&records[i])
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		out[i] = d
	}

	return out, nil
}
