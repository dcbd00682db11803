package authapp

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

// Authenticate resolves a session token to its user.
func (a *App) Authenticate(ctx context.Context, token string) (*user.User, error) {
	const op = "authapp.App.Authenticate"
	ctx, span := a.tracer.Start(ctx, "App.Authenticate")
	defer span.End()

	id, err := a.tokens.Verify(token)
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid token")
		return nil, errorx.Wrap(err, op)
	}

	u, err := a.GetUser(ctx, id)
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}
	return u, nil
}

func (a *App) GetUser(ctx context.Context, id user.ID) (*user.User, error) {
	const op = "authapp.App.GetUser"
	ctx, span := a.tracer.Start(ctx, "App.GetUser", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	u, err := a.users.GetUserByID(ctx, id)
	if errorx.IsNotFound(err) {
		otelx.RecordSpanError(span, err, "user not found")
		return nil, errorx.Wrap(user.ErrNotFound.WithCause(err), op)
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get user")
		return nil, errorx.Wrap(err, op)
	}
	return u, nil
}

// LatestCode returns the most recent code issued to email. It backs the
// development lookup route and must not be exposed in prod.
func (a *App) LatestCode(ctx context.Context, email string) (*verification.Code, error) {
	const op = "authapp.App.LatestCode"
	ctx, span := a.tracer.Start(ctx, "App.LatestCode", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
	))
	defer span.End()

	if !a.mode.IsNonProd() {
		return nil, errorx.Wrap(errorx.NewNotFound(), op)
	}

	code, err := a.codes.GetLatestVerificationCode(ctx, email)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get latest code")
		return nil, errorx.Wrap(err, op)
	}
	return code, nil
}
