package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"tg-otp-relay/backend/internal/telemetry"
	"tg-otp-relay/backend/internal/telemetry/domain"
)

// NewCountingEmitter returns an EventEmitter that counts events in the relay.events counter,
// tagged by event_type, source and outcome. Tenant ids are left out to bound cardinality.
func NewCountingEmitter(mp metric.MeterProvider) (telemetry.EventEmitter, error) {
	c, err := mp.Meter("tg-otp-relay").Int64Counter("relay.events",
		metric.WithDescription("Lifecycle events emitted by the relay"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &countingEmitter{counter: c}, nil
}

type countingEmitter struct {
	counter metric.Int64Counter
}

func (e *countingEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	e.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", event.EventType),
		attribute.String("source", event.Source),
		attribute.String("outcome", event.Outcome),
	))
	return nil
}
