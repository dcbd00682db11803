package authapp

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

type Register struct {
	Email string
}

// Register finds or creates the user for cmd.Email and issues a new
// verification code for it, subject to the per-email rate limit. The code is
// published only after it is committed, and a failed publish does not fail
// the call.
func (a *App) Register(ctx context.Context, cmd Register) (*user.User, error) {
	const op = "authapp.App.Register"
	ctx, span := a.tracer.Start(ctx, "App.Register", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(cmd.Email)),
	))
	defer span.End()

	if err := user.ValidateEmail(cmd.Email, a.mode); err != nil {
		otelx.RecordSpanError(span, err, "invalid email")
		return nil, errorx.Wrap(err, op)
	}

	if err := a.rateGuard.Check(ctx, cmd.Email); err != nil {
		if errorx.IsCode(err, errorx.CodeRateLimitExceeded) {
			a.metrics.rateLimited.Add(ctx, 1)
		}
		otelx.RecordSpanError(span, err, "rate guard rejected register")
		return nil, errorx.Wrap(err, op)
	}

	var (
		u    *user.User
		code *verification.Code
	)
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = a.findOrCreateUser(ctx, cmd.Email)
		if err != nil {
			return err
		}

		code, err = a.issuer.Issue(cmd.Email)
		if err != nil {
			return err
		}

		return a.codes.SaveVerificationCode(ctx, code)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to register")
		return nil, errorx.Wrap(err, op)
	}

	a.metrics.codesIssued.Add(ctx, 1)
	span.SetAttributes(attribute.String("user.id", u.ID().String()))

	if err := a.notifier.Publish(ctx, code.Email(), code.Code()); err != nil {
		a.metrics.notifyFailures.Add(ctx, 1)
		span.AddEvent("publish failed")
		a.logger.WarnContext(ctx, "failed to publish verification code",
			slog.String("email", logging.RedactEmail(cmd.Email)),
			slog.String("error", err.Error()),
		)
	}

	return u, nil
}

// findOrCreateUser returns the user owning email, creating it when absent.
// Losing a creation race to a concurrent register reuses the winner's row.
func (a *App) findOrCreateUser(ctx context.Context, email string) (*user.User, error) {
	u, err := a.users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errorx.IsNotFound(err) {
		return nil, err
	}

	u, err = user.NewUser(email, a.mode, a.now())
	if err != nil {
		return nil, err
	}

	err = a.users.SaveUser(ctx, u)
	if err == nil {
		return u, nil
	}
	if !errorx.IsDuplicateEntry(err) {
		return nil, err
	}

	trace.SpanFromContext(ctx).AddEvent("user created concurrently, reusing")
	return a.users.GetUserByEmail(ctx, email)
}
