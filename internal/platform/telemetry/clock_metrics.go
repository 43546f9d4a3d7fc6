package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ClockMetrics records display cycle activity.
// Counters and histograms go through the OpenTelemetry meter; the gauges the
// /-/metrics endpoint scrapes are Prometheus collectors.
type ClockMetrics struct {
	refreshTotal    metric.Int64Counter
	resolutionTotal metric.Int64Counter
	renderDuration  metric.Float64Histogram

	datasetQuotes prometheus.Gauge
	lastRefresh   prometheus.Gauge
}

// NewClockMetrics creates the display cycle instruments and registers the
// gauges with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewClockMetrics(reg prometheus.Registerer) (*ClockMetrics, error) {
	meter := otel.Meter(instrumentationName)

	refreshTotal, err := meter.Int64Counter(
		"authorclock.refresh.total",
		metric.WithDescription("Display refreshes by outcome"),
	)
	if err != nil {
		return nil, err
	}

	resolutionTotal, err := meter.Int64Counter(
		"authorclock.time.resolution.total",
		metric.WithDescription("Time resolutions by source and result kind"),
	)
	if err != nil {
		return nil, err
	}

	renderDuration, err := meter.Float64Histogram(
		"authorclock.render.duration",
		metric.WithDescription("Time to render one frame on one surface"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	datasetQuotes, err := registerGauge(reg, prometheus.GaugeOpts{
		Name: "authorclock_dataset_quotes",
		Help: "Number of quote records loaded at startup.",
	})
	if err != nil {
		return nil, err
	}

	lastRefresh, err := registerGauge(reg, prometheus.GaugeOpts{
		Name: "authorclock_last_refresh_timestamp_seconds",
		Help: "Unix time of the last completed display refresh.",
	})
	if err != nil {
		return nil, err
	}

	return &ClockMetrics{
		refreshTotal:    refreshTotal,
		resolutionTotal: resolutionTotal,
		renderDuration:  renderDuration,
		datasetQuotes:   datasetQuotes,
		lastRefresh:     lastRefresh,
	}, nil
}

// registerGauge registers a gauge, or returns the one already registered
// under the same name so a second ClockMetrics shares it.
func registerGauge(reg prometheus.Registerer, opts prometheus.GaugeOpts) (prometheus.Gauge, error) {
	g := prometheus.NewGauge(opts)

	err := reg.Register(g)
	if err == nil {
		return g, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
			return existing, nil
		}
	}

	return nil, err
}

// DatasetLoaded records the number of records loaded.
func (m *ClockMetrics) DatasetLoaded(n int) {
	if m == nil {
		return
	}

	m.datasetQuotes.Set(float64(n))
}

// Refreshed counts one refresh. outcome is "quote", "no_quote" or "time_unavailable".
func (m *ClockMetrics) Refreshed(ctx context.Context, outcome string, at time.Time) {
	if m == nil {
		return
	}

	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.lastRefresh.Set(float64(at.Unix()))
}

// TimeResolved counts one time resolution.
func (m *ClockMetrics) TimeResolved(ctx context.Context, source, kind string) {
	if m == nil {
		return
	}

	m.resolutionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("result", kind),
	))
}

// Rendered records how long a surface took to render.
func (m *ClockMetrics) Rendered(ctx context.Context, surface string, d time.Duration, err error) {
	if m == nil {
		return
	}

	m.renderDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("surface", surface),
		attribute.Bool("error", err != nil),
	))
}
