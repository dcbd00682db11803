package event

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
)

var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Otel carries W3C trace context and baggage across a message boundary.
type Otel struct {
	Carrier map[string]string `json:"otel,omitempty"`
}

func (o *Otel) Propagate(ctx context.Context) {
	if o.Carrier == nil {
		o.Carrier = make(map[string]string)
	}
	propagator.Inject(ctx, propagation.MapCarrier(o.Carrier))
}

// Extract returns ctx enriched with the carried trace context.
func (o *Otel) Extract(ctx context.Context) context.Context {
	if len(o.Carrier) == 0 {
		return ctx
	}
	return propagator.Extract(ctx, propagation.MapCarrier(o.Carrier))
}
