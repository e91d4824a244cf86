package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "finitefield.org/wheel-of-life"

// Metrics holds the application counters. A nil *Metrics records nothing.
type Metrics struct {
	reports        metric.Int64Counter
	rasterFailures metric.Int64Counter
	storeFallbacks metric.Int64Counter
}

// NewMetrics registers the counters on meter; nil uses the global provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	reports, err := meter.Int64Counter("wheel.reports.generated",
		metric.WithDescription("PDF reports generated"))
	if err != nil {
		return nil, err
	}
	raster, err := meter.Int64Counter("wheel.chart.raster_failures",
		metric.WithDescription("Chart rasterisations that failed and were skipped"))
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter("wheel.state.fallbacks",
		metric.WithDescription("State loads that fell back to defaults"))
	if err != nil {
		return nil, err
	}
	return &Metrics{reports: reports, rasterFailures: raster, storeFallbacks: fallbacks}, nil
}

// ReportGenerated counts a finished report.
func (m *Metrics) ReportGenerated(ctx context.Context, withChart bool) {
	if m == nil {
		return
	}
	m.reports.Add(ctx, 1, metric.WithAttributes(attribute.Bool("chart", withChart)))
}

// RasterFailed counts a chart that could not be rasterised.
func (m *Metrics) RasterFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.rasterFailures.Add(ctx, 1)
}

// StoreFallback counts a state load that returned defaults.
func (m *Metrics) StoreFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.storeFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
