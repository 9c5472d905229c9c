package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ghuser/circulation/lending"

// LendingMetrics records borrow and return outcomes.
type LendingMetrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewLendingMetrics registers the lending instruments on the global meter
// provider. Call after Setup so they are exported.
func NewLendingMetrics() (*LendingMetrics, error) {
	return NewLendingMetricsWithMeter(otel.Meter(meterName))
}

// NewLendingMetricsWithMeter registers the lending instruments on meter.
func NewLendingMetricsWithMeter(meter metric.Meter) (*LendingMetrics, error) {
	ops, err := meter.Int64Counter("circulation.lending.operations",
		metric.WithDescription("Borrow and return requests by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	dur, err := meter.Float64Histogram("circulation.lending.duration",
		metric.WithDescription("Borrow and return latency including lock wait"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &LendingMetrics{operations: ops, duration: dur}, nil
}

// Record counts one operation and its latency. A nil receiver is a no-op.
func (m *LendingMetrics) Record(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
