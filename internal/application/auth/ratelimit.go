package authapp

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

// LatestCodeGetter returns the most recently issued code for an email, used
// or not.
type LatestCodeGetter interface {
	GetLatestVerificationCode(ctx context.Context, email string) (*verification.Code, error)
}

// RateGuard allows at most one issued code per email within a window,
// measured from the most recent code's creation time.
type RateGuard struct {
	tracer trace.Tracer
	codes  LatestCodeGetter
	window time.Duration
	now    func() time.Time
}

type RateGuardArgs struct {
	Tracer trace.Tracer
	Codes  LatestCodeGetter
	Window time.Duration
	Now    func() time.Time
}

func NewRateGuard(args RateGuardArgs) (*RateGuard, error) {
	if args.Codes == nil {
		return nil, errors.New("rate guard needs a code store")
	}
	if args.Window < 0 {
		return nil, errors.New("rate limit window must not be negative")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Now == nil {
		args.Now = time.Now
	}

	return &RateGuard{
		tracer: args.Tracer,
		codes:  args.Codes,
		window: args.Window,
		now:    args.Now,
	}, nil
}

// Check returns a RATE_LIMIT_EXCEEDED error carrying the whole seconds left
// until email may request another code. The remainder is rounded up, so a
// caller that waits that long is always allowed.
func (g *RateGuard) Check(ctx context.Context, email string) error {
	const op = "authapp.RateGuard.Check"
	ctx, span := g.tracer.Start(ctx, "RateGuard.Check", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
		attribute.String("window", g.window.String()),
	))
	defer span.End()

	latest, err := g.codes.GetLatestVerificationCode(ctx, email)
	if errorx.IsNotFound(err) {
		return nil
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get latest verification code")
		return errorx.Wrap(err, op)
	}

	nextAllowedAt := latest.CreatedAt().Add(g.window)
	remaining := nextAllowedAt.Sub(g.now())
	if remaining <= 0 {
		return nil
	}

	retryAfter := int(math.Ceil(remaining.Seconds()))
	span.SetAttributes(attribute.Int("retry_after", retryAfter))
	return errorx.NewRateLimitExceededWithRetry(retryAfter)
}
