package clients

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request outcomes recorded on the client metrics.
const (
	outcomeCircuitOpen = "circuit_open"
	outcomeRateLimited = "rate_limited"
	outcomeCanceled    = "context_canceled"
	outcomeError       = "error"
)

// clientMetrics are the per-downstream request instruments.
type clientMetrics struct {
	service  attribute.KeyValue
	duration metric.Float64Histogram
	total    metric.Int64Counter
	retries  metric.Int64Counter
}

func newClientMetrics(meter metric.Meter, service string) (*clientMetrics, error) {
	duration, err := meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("Duration of downstream requests, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	total, err := meter.Int64Counter("http.client.request.total",
		metric.WithDescription("Downstream requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	retries, err := meter.Int64Counter("http.client.retry.total",
		metric.WithDescription("Downstream request retries"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry counter: %w", err)
	}

	return &clientMetrics{
		service:  attribute.String("peer.service", service),
		duration: duration,
		total:    total,
		retries:  retries,
	}, nil
}

// request records one finished call. A zero status means no response.
func (m *clientMetrics) request(ctx context.Context, method string, status int, elapsed time.Duration, outcome string) {
	attrs := []attribute.KeyValue{
		m.service,
		attribute.String("http.request.method", method),
		attribute.String("outcome", outcome),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	m.duration.Record(ctx, elapsed.Seconds(), set)
	m.total.Add(ctx, 1, set)
}

func (m *clientMetrics) retry(ctx context.Context, method string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(m.service, attribute.String("http.request.method", method)))
}

// statusOutcome buckets a status code as 2xx, 4xx and so on.
func statusOutcome(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
