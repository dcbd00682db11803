package authapp

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

type Verify struct {
	Email string
	Code  string
}

// Verify consumes a matching unused code, marks its user verified and returns
// a session token. Consumption and the user update commit together; at most
// one concurrent caller can consume a given code.
func (a *App) Verify(ctx context.Context, cmd Verify) (string, error) {
	const op = "authapp.App.Verify"
	ctx, span := a.tracer.Start(ctx, "App.Verify", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(cmd.Email)),
	))
	defer span.End()

	var verified *user.User
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		code, err := a.codes.GetUnusedVerificationCode(ctx, cmd.Email, cmd.Code)
		if errorx.IsNotFound(err) {
			return verification.ErrInvalidCode.WithCause(err)
		}
		if err != nil {
			return err
		}

		if code.IsExpired(a.now()) {
			return verification.ErrCodeExpired
		}

		err = a.codes.MarkVerificationCodeUsed(ctx, code.ID())
		if errors.Is(err, verification.ErrAlreadyUsed) {
			return verification.ErrInvalidCode.WithCause(err)
		}
		if err != nil {
			return err
		}

		u, err := a.users.GetUserByEmail(ctx, cmd.Email)
		if errorx.IsNotFound(err) {
			return user.ErrNotFound.WithCause(err)
		}
		if err != nil {
			return err
		}

		changed, err := u.MarkVerified(a.now())
		if err != nil {
			return err
		}
		if changed {
			if err := a.users.SaveUser(ctx, u); err != nil {
				return err
			}
		}

		verified = u
		return nil
	})
	a.metrics.verifyAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", verifyOutcome(err))))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to verify code")
		return "", errorx.Wrap(err, op)
	}

	span.SetAttributes(attribute.String("user.id", verified.ID().String()))

	token, err := a.tokens.Generate(verified.ID(), verified.Email())
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to sign token")
		return "", errorx.Wrap(err, op)
	}
	return token, nil
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errorx.IsCode(err, errorx.CodeInvalidCode):
		return "invalid_code"
	case errorx.IsCode(err, errorx.CodeCodeExpired):
		return "code_expired"
	case errorx.IsCode(err, errorx.CodeUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}
