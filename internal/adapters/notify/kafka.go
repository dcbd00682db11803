package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

const DefaultKafkaTopic = "verification-codes"

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer that keys messages by email, so every code
// for one address lands on the same partition in issue order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

type KafkaPublisher struct {
	tracer trace.Tracer
	writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter, t trace.Tracer) *KafkaPublisher {
	if w == nil {
		panic("kafka writer cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	return &KafkaPublisher{tracer: t, writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, email, code string) error {
	const op = "notify.KafkaPublisher.Publish"
	ctx, span := p.tracer.Start(ctx, "KafkaPublisher.Publish", trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
	))
	defer span.End()

	evt := verification.NewCodeIssued(ctx, email, code)
	payload, err := json.Marshal(evt)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to marshal event")
		return errorx.Wrap(err, op)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(email),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID.String())},
		},
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to write kafka message")
		return errorx.Wrap(err, op)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
