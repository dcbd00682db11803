package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

var (
	tracer = otel.Tracer("codeauth/internal/ports/kafka")
	logger = logging.Named("codeauth/internal/ports/kafka")
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CodeIssuedHandler interface {
	HandleCodeIssued(ctx context.Context, e *verification.CodeIssued) error
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})
}

// Consumer feeds CodeIssued messages to a handler, committing each offset
// after the handler returns. Undecodable messages are logged and committed.
type Consumer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	reader  MessageReader
	handler CodeIssuedHandler
}

type ConsumerArgs struct {
	Tracer  trace.Tracer
	Logger  *slog.Logger
	Reader  MessageReader
	Handler CodeIssuedHandler
}

func NewConsumer(args ConsumerArgs) *Consumer {
	if args.Reader == nil || args.Handler == nil {
		panic("kafka consumer needs a reader and a handler")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &Consumer{
		tracer:  args.Tracer,
		logger:  args.Logger,
		reader:  args.Reader,
		handler: args.Handler,
	}
}

// Run blocks until ctx is done or the reader fails. A handler error stops the
// loop without committing, so the message is redelivered after restart.
func (c *Consumer) Run(ctx context.Context) error {
	const op = "kafka.Consumer.Run"

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errorx.Wrap(err, op)
		}

		if err := c.handle(ctx, msg); err != nil {
			return errorx.Wrap(err, op)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errorx.Wrap(err, op)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := c.tracer.Start(ctx, "Consumer.handle", trace.WithSpanKind(trace.SpanKindConsumer), trace.WithAttributes(
		attribute.String("messaging.kafka.topic", msg.Topic),
		attribute.Int("messaging.kafka.partition", msg.Partition),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	))
	defer span.End()

	var evt verification.CodeIssued
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		otelx.RecordSpanError(span, err, "failed to decode message")
		c.logger.WarnContext(ctx, "skipping undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err),
		)
		return nil
	}

	if err := c.handler.HandleCodeIssued(ctx, &evt); err != nil {
		otelx.RecordSpanError(span, err, "handler failed")
		return err
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
