package notification

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

var (
	tracer = otel.Tracer("codeauth/internal/application/notification")
	logger = logging.Named("codeauth/internal/application/notification")
)

// Handler delivers issued codes. Delivery is a log line standing in for an
// email provider.
type Handler struct {
	tracer trace.Tracer
	logger *slog.Logger
}

type HandlerArgs struct {
	Tracer trace.Tracer
	Logger *slog.Logger
}

func NewHandler(args HandlerArgs) *Handler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &Handler{
		tracer: args.Tracer,
		logger: args.Logger,
	}
}

// HandleCodeIssued never fails: a malformed event is logged and dropped so
// it cannot block the stream behind it.
func (h *Handler) HandleCodeIssued(ctx context.Context, e *verification.CodeIssued) error {
	if e == nil {
		return nil
	}

	ctx, span := h.tracer.Start(
		ctx,
		"Handler.HandleCodeIssued",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(e.Extract(context.Background()))),
		trace.WithAttributes(
			attribute.String("event.id", e.ID.String()),
			attribute.String("event.email", logging.RedactEmail(e.Email)),
		),
	)
	defer span.End()

	l := h.logger.With(slog.String("event", "CodeIssued"), slog.String("event.id", e.ID.String()))

	if err := e.Validate(); err != nil {
		otelx.RecordSpanError(span, err, "validation failed")
		l.WarnContext(ctx, "dropping malformed event", slog.Any("error", err))
		return nil
	}

	l.InfoContext(ctx, "verification code delivered",
		slog.String("email", e.Email),
		slog.String("code", e.Code),
	)
	return nil
}
