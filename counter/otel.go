package counter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelSink wraps another Sink and mirrors every increment to an
// OpenTelemetry counter instrument tagged with the counter name. Totals
// are served by the wrapped sink.
type OTelSink struct {
	next      Sink
	increment metric.Int64Counter
}

// NewOTelSink creates a sink that records increments both in next and on
// the given meter.
func NewOTelSink(meter metric.Meter, next Sink) (*OTelSink, error) {
	increment, err := meter.Int64Counter(
		"engineops.counter.increments",
		metric.WithDescription("Named usage counter increments"),
		metric.WithUnit("{increment}"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelSink{
		next:      next,
		increment: increment,
	}, nil
}

// Increment adds amount to the named counter and emits it as a metric.
func (s *OTelSink) Increment(ctx context.Context, name string, amount int64) {
	s.next.Increment(ctx, name, amount)
	s.increment.Add(ctx, amount, metric.WithAttributes(
		attribute.String("counter.name", name),
	))
}

// Total returns the accumulated value from the wrapped sink.
func (s *OTelSink) Total(ctx context.Context, name string) (int64, error) {
	return s.next.Total(ctx, name)
}

// Ensure OTelSink implements Sink
var _ Sink = (*OTelSink)(nil)
