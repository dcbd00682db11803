package watermillx

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// SlogAdapter routes watermill logs into slog. A record is emitted when
// either the slog handler or the global OpenTelemetry logger wants its level.
type SlogAdapter struct {
	logger     *slog.Logger
	otelLogger log.Logger
}

func NewSlogAdapter(logger *slog.Logger) watermill.LoggerAdapter {
	return &SlogAdapter{
		logger:     logger,
		otelLogger: global.GetLoggerProvider().Logger("watermill"),
	}
}

func severity(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	case level >= slog.LevelDebug:
		return log.SeverityDebug
	default:
		return log.SeverityTrace
	}
}

func (l *SlogAdapter) enabled(level slog.Level) bool {
	ctx := context.Background()
	if l.logger.Enabled(ctx, level) {
		return true
	}
	return l.otelLogger.Enabled(ctx, log.EnabledParameters{Severity: severity(level)})
}

func (l *SlogAdapter) log(level slog.Level, msg string, fields watermill.LogFields, extra ...slog.Attr) {
	if !l.enabled(level) {
		return
	}
	l.logger.Log(context.Background(), level, msg, fieldsToArgs(fields, extra...)...)
}

func (l *SlogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.log(slog.LevelError, msg, fields, slog.Any("error", err))
}

func (l *SlogAdapter) Info(msg string, fields watermill.LogFields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *SlogAdapter) Debug(msg string, fields watermill.LogFields) {
	l.log(slog.LevelDebug, msg, fields)
}

// Trace is emitted one step below debug.
func (l *SlogAdapter) Trace(msg string, fields watermill.LogFields) {
	l.log(slog.LevelDebug-4, msg, fields)
}

func (l *SlogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &SlogAdapter{
		logger:     l.logger.With(fieldsToArgs(fields)...),
		otelLogger: l.otelLogger,
	}
}

func fieldsToArgs(fields watermill.LogFields, extra ...slog.Attr) []any {
	args := make([]any, 0, len(fields)+len(extra))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	for _, attr := range extra {
		args = append(args, attr)
	}
	return args
}
