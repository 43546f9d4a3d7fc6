package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/authorclock/internal/adapters/http/middleware"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/authorclock/internal/adapters/clients"

	defaultTimeout         = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second

	userAgent = "authorclock"
)

// Config configures one downstream client.
type Config struct {
	// BaseURL prefixes every path passed to Get and Post.
	BaseURL string

	// ServiceName identifies the downstream in logs, spans and errors.
	ServiceName string

	// Timeout bounds each attempt. Retries and backoff can take longer overall.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// Limiter throttles every attempt, retries included. Nil means unlimited.
	Limiter *rate.Limiter

	// AuthFunc decorates each attempt with credentials.
	AuthFunc func(*http.Request)

	Logger *slog.Logger
}

// Client is the HTTP client shared by the dataset, network time, weather and
// Quote/0 adapters. A call passes the circuit breaker, then up to MaxAttempts
// attempts with backoff between them. 5xx responses and socket failures are
// retried; a 5xx Retry-After header replaces the computed backoff.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	attempts    int
	backoff     backoff
	limiter     *rate.Limiter
	auth        func(*http.Request)

	logger  *slog.Logger
	cb      *Breaker
	tracer  trace.Tracer
	metrics *clientMetrics
}

// New builds a client. cfg is not modified.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	metrics, err := newClientMetrics(otel.Meter(instrumentationName), cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients"), slog.String("downstream", cfg.ServiceName))

	cb := NewBreaker(cfg.Circuit)
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed", slog.Any("from", from), slog.Any("to", to))
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http:        &http.Client{Timeout: timeout, Transport: newTransport(cfg.Transport)},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName: cfg.ServiceName,
		attempts:    max(cfg.Retry.MaxAttempts, 1),
		backoff:     newBackoff(cfg.Retry),
		limiter:     cfg.Limiter,
		auth:        cfg.AuthFunc,
		logger:      logger,
		cb:          cb,
		tracer:      otel.Tracer(instrumentationName),
		metrics:     metrics,
	}, nil
}

// Do sends req with the breaker, retries, tracing and ID propagation applied.
// Any response below 500 is returned as-is for the caller to interpret.
//
// Retries resend the body through req.GetBody, which Get and Post set for
// bytes and strings readers.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.serviceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.metrics.request(ctx, req.Method, 0, time.Since(start), outcomeCircuitOpen)
		logger.Warn("request skipped, circuit open")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method+" "+c.serviceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	c.decorate(ctx, req)

	resp, outcome, err := c.send(ctx, req, logger)
	elapsed := time.Since(start)

	if err != nil {
		c.cb.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.request(ctx, req.Method, 0, elapsed, outcome)
		logger.Error("request failed", slog.Duration("duration", elapsed), slog.Any("error", err))

		return nil, err
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	c.metrics.request(ctx, req.Method, resp.StatusCode, elapsed, outcome)
	logger.Debug("request completed", slog.Int("status", resp.StatusCode), slog.Duration("duration", elapsed))

	return resp, nil
}

// send runs the attempt loop. The outcome labels the metrics for the call.
func (c *Client) send(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, string, error) {
	var (
		lastErr error
		hint    time.Duration
	)

	for attempt := range c.attempts {
		if attempt > 0 {
			wait := c.backoff.after(attempt-1, hint)
			logger.Debug("retrying request", slog.Int("attempt", attempt+1), slog.Duration("backoff", wait))
			c.metrics.retry(ctx, req.Method)

			if err := sleep(ctx, wait); err != nil {
				return nil, outcomeCanceled, err
			}

			// Credentials may have rotated since the first attempt.
			if c.auth != nil {
				c.auth(req)
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, outcomeRateLimited, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		attemptReq, err := rewind(ctx, req, attempt)
		if err != nil {
			return nil, outcomeError, err
		}

		resp, err := c.http.Do(attemptReq)
		if err != nil {
			lastErr = err
			hint = 0

			if !retryable(err) {
				break
			}

			logger.Debug("attempt failed", slog.Int("attempt", attempt+1), slog.Any("error", err))

			continue
		}

		if resp.StatusCode < http.StatusInternalServerError {
			return resp, statusOutcome(resp.StatusCode), nil
		}

		hint, _ = retryAfter(resp.Header.Get("Retry-After"), time.Now())
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		logger.Debug("attempt failed", slog.Int("attempt", attempt+1), slog.Int("status", resp.StatusCode))
		discard(resp.Body)
	}

	return nil, outcomeError, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

// Get sends a GET for path relative to the base URL.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.request(ctx, http.MethodGet, path, http.NoBody)
}

// Post sends a JSON POST for path relative to the base URL.
func (c *Client) Post(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Do(ctx, req)
}

// Breaker returns a snapshot of the breaker.
func (c *Client) Breaker() BreakerSnapshot {
	return c.cb.Snapshot()
}

// ServiceName returns the downstream name used in logs and errors.
func (c *Client) ServiceName() string {
	return c.serviceName
}

// decorate sets the ID, trace and identity headers and applies auth.
func (c *Client) decorate(ctx context.Context, req *http.Request) {
	for header, id := range map[string]string{
		middleware.HeaderRequestID:     logging.RequestID(ctx),
		middleware.HeaderCorrelationID: logging.CorrelationID(ctx),
	} {
		if id != "" {
			req.Header.Set(header, id)
		}
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.auth != nil {
		c.auth(req)
	}
}

// buildURL joins path onto the base URL. An empty path is the base URL.
func (c *Client) buildURL(path string) string {
	if path == "" {
		return c.baseURL
	}

	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// rewind returns the request for an attempt with a fresh body.
func rewind(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	out := req.WithContext(ctx)
	if attempt == 0 || req.GetBody == nil {
		return out, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}

	out.Body = body

	return out, nil
}

// discard drains and closes a body so the connection can be reused.
func discard(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}

// newTransport builds the pooled transport, filling unset values from the
// config defaults.
func newTransport(cfg config.TransportConfig) *http.Transport {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = config.DefaultTransportMaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = config.DefaultTransportMaxIdleConnsPerHost
	}

	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = defaultIdleConnTimeout
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
}
