package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"gitlab.com/codeauth/codeauth-backend/pkg/env"
)

const instrumentationName = "gitlab.com/codeauth/codeauth-backend"

// Setup installs the process wide default logger. Records go to w (text in
// non-prod modes, JSON in prod) and to the global OpenTelemetry logger provider.
func Setup(mode env.Mode, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: mode.SlogLevel()}

	var out slog.Handler
	if mode == env.Prod {
		out = slog.NewJSONHandler(w, opts)
	} else {
		out = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(Tee(out, otelslog.NewHandler(instrumentationName)))
	slog.SetDefault(logger)
	return logger
}

// Named returns a logger tagged with the component name. It resolves
// slog.Default() on every record, so package level loggers created before
// Setup still follow it.
func Named(name string) *slog.Logger {
	return slog.New(lazyDefault{}).With(slog.String("logger", name))
}

type lazyDefault struct {
	ops []func(slog.Handler) slog.Handler
}

func (h lazyDefault) resolve() slog.Handler {
	handler := slog.Default().Handler()
	for _, op := range h.ops {
		handler = op(handler)
	}
	return handler
}

func (h lazyDefault) Enabled(ctx context.Context, level slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, level)
}

func (h lazyDefault) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h lazyDefault) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h lazyDefault) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h lazyDefault) with(op func(slog.Handler) slog.Handler) lazyDefault {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return lazyDefault{ops: append(ops, op)}
}

// Tee fans every record out to all handlers that are enabled for its level.
func Tee(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		errs = errors.Join(errs, h.Handle(ctx, r.Clone()))
	}
	return errs
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
