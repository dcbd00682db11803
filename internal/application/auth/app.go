package authapp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
)

var (
	tracer = otel.Tracer("codeauth/internal/application/auth")
	logger = logging.Named("codeauth/internal/application/auth")
	meter  = otel.Meter("codeauth/internal/application/auth")
)

// UserRepo is the identity store. Lookups return an errorx NOT_FOUND error
// when nothing matches; SaveUser returns DUPLICATE_ENTRY when another user
// already owns the email.
type UserRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, id user.ID) (*user.User, error)
	SaveUser(ctx context.Context, u *user.User) error
}

// VerificationCodeRepo is the code store. Get* return an errorx NOT_FOUND
// error when nothing matches. MarkVerificationCodeUsed must only flip an
// unused code and returns verification.ErrAlreadyUsed otherwise.
type VerificationCodeRepo interface {
	SaveVerificationCode(ctx context.Context, c *verification.Code) error
	GetUnusedVerificationCode(ctx context.Context, email, code string) (*verification.Code, error)
	GetLatestVerificationCode(ctx context.Context, email string) (*verification.Code, error)
	MarkVerificationCodeUsed(ctx context.Context, id verification.ID) error
}

// Notifier hands a freshly issued code to the delivery channel.
type Notifier interface {
	Publish(ctx context.Context, email, code string) error
}

// Transactor runs fn as a single unit of work against both stores.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type App struct {
	tracer   trace.Tracer
	logger   *slog.Logger
	mode     env.Mode
	now      func() time.Time
	users    UserRepo
	codes    VerificationCodeRepo
	tx       Transactor
	notifier Notifier

	rateGuard *RateGuard
	issuer    *verification.Issuer
	tokens    *TokenIssuer
	metrics   *metrics
}

type Args struct {
	Tracer trace.Tracer
	Logger *slog.Logger
	Mode   env.Mode
	// Now defaults to time.Now.
	Now func() time.Time
	// GenerateCode overrides the CSPRNG code generator, tests only.
	GenerateCode func() (string, error)

	Users    UserRepo
	Codes    VerificationCodeRepo
	Tx       Transactor
	Notifier Notifier

	CodeTTL         time.Duration
	RateLimitWindow time.Duration
	TokenTTL        time.Duration
	SigningSecret   []byte
}

func NewApp(args Args) (*App, error) {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Now == nil {
		args.Now = time.Now
	}
	if args.Mode == "" {
		args.Mode = env.Current()
	}
	if args.Users == nil || args.Codes == nil || args.Tx == nil || args.Notifier == nil {
		return nil, errors.New("users, codes, tx and notifier are required")
	}

	issuer, err := verification.NewIssuer(verification.IssuerArgs{
		TTL:      args.CodeTTL,
		Now:      args.Now,
		Generate: args.GenerateCode,
	})
	if err != nil {
		return nil, err
	}

	rateGuard, err := NewRateGuard(RateGuardArgs{
		Tracer: args.Tracer,
		Codes:  args.Codes,
		Window: args.RateLimitWindow,
		Now:    args.Now,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := NewTokenIssuer(TokenIssuerArgs{
		Logger: args.Logger,
		Secret: args.SigningSecret,
		TTL:    args.TokenTTL,
		Now:    args.Now,
	})
	if err != nil {
		return nil, err
	}

	m, err := newMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &App{
		tracer:    args.Tracer,
		logger:    args.Logger,
		mode:      args.Mode,
		now:       args.Now,
		users:     args.Users,
		codes:     args.Codes,
		tx:        args.Tx,
		notifier:  args.Notifier,
		rateGuard: rateGuard,
		issuer:    issuer,
		tokens:    tokens,
		metrics:   m,
	}, nil
}

// Tokens exposes the token issuer for transports that verify bearer tokens.
func (a *App) Tokens() *TokenIssuer {
	return a.tokens
}

type metrics struct {
	codesIssued    metric.Int64Counter
	rateLimited    metric.Int64Counter
	verifyAttempts metric.Int64Counter
	notifyFailures metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	codesIssued, err := m.Int64Counter("codeauth.codes.issued",
		metric.WithDescription("Verification codes persisted by register"))
	if err != nil {
		return nil, err
	}
	rateLimited, err := m.Int64Counter("codeauth.register.rate_limited",
		metric.WithDescription("Register calls rejected by the rate guard"))
	if err != nil {
		return nil, err
	}
	verifyAttempts, err := m.Int64Counter("codeauth.verify.attempts",
		metric.WithDescription("Verify calls by outcome"))
	if err != nil {
		return nil, err
	}
	notifyFailures, err := m.Int64Counter("codeauth.notify.failures",
		metric.WithDescription("Verification code publishes that failed"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		codesIssued:    codesIssued,
		rateLimited:    rateLimited,
		verifyAttempts: verifyAttempts,
		notifyFailures: notifyFailures,
	}, nil
}
