package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

// OutboxPublisher appends CodeIssued events to a watermill stream. With the
// SQL publisher the stream is a Postgres table the notifier polls.
type OutboxPublisher struct {
	tracer trace.Tracer
	bus    *cqrs.EventBus
}

func NewOutboxPublisher(bus *cqrs.EventBus, t trace.Tracer) *OutboxPublisher {
	if bus == nil {
		panic("event bus cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	return &OutboxPublisher{tracer: t, bus: bus}
}

func (p *OutboxPublisher) Publish(ctx context.Context, email, code string) error {
	const op = "notify.OutboxPublisher.Publish"
	ctx, span := p.tracer.Start(ctx, "OutboxPublisher.Publish", trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
		attribute.String("stream", verification.EventStreamName),
	))
	defer span.End()

	if err := p.bus.Publish(ctx, verification.NewCodeIssued(ctx, email, code)); err != nil {
		otelx.RecordSpanError(span, err, "failed to publish event")
		return errorx.Wrap(err, op)
	}
	return nil
}
