package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
	"gitlab.com/codeauth/codeauth-backend/pkg/postgres"
)

const (
	insertVerificationCodeQuery = `
	INSERT INTO verification_codes (id, email, code, expires_at, used, created_at)
	VALUES ($1, $2, $3, $4, $5, $6);`

	selectVerificationCodeColumns = `SELECT id, email, code, expires_at, used, created_at FROM verification_codes`

	// seq breaks ties between codes created at the same instant
	latestOrder = ` ORDER BY created_at DESC, seq DESC LIMIT 1`

	markVerificationCodeUsedQuery = `UPDATE verification_codes SET used = TRUE WHERE id = $1 AND used = FALSE;`
)

type VerificationCodeRepo struct {
	tracer trace.Tracer
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewVerificationCodeRepo creates a new instance of VerificationCodeRepo.
//
// WARNING: panics if pool is nil
func NewVerificationCodeRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *VerificationCodeRepo {
	if pool == nil {
		panic(ErrNilPool)
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &VerificationCodeRepo{
		tracer: t,
		logger: l,
		pool:   pool,
	}
}

func (r *VerificationCodeRepo) SaveVerificationCode(ctx context.Context, c *verification.Code) error {
	const op = "postgres.VerificationCodeRepo.SaveVerificationCode"
	ctx, span := r.tracer.Start(ctx, "VerificationCodeRepo.SaveVerificationCode", trace.WithAttributes(
		attribute.String("code.id", c.ID().String()),
		attribute.String("user.email", logging.RedactEmail(c.Email())),
	))
	defer span.End()

	dto := DomainToVerificationCodeDTO(c)
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx, insertVerificationCodeQuery,
		dto.ID, dto.Email, dto.Code, dto.ExpiresAt, dto.Used, dto.CreatedAt,
	)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to insert verification code")
		return errorx.Wrap(err, op)
	}

	return nil
}

func (r *VerificationCodeRepo) GetUnusedVerificationCode(ctx context.Context, email, code string) (*verification.Code, error) {
	const op = "postgres.VerificationCodeRepo.GetUnusedVerificationCode"
	ctx, span := r.tracer.Start(ctx, "VerificationCodeRepo.GetUnusedVerificationCode", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
	))
	defer span.End()

	query := selectVerificationCodeColumns + ` WHERE email = $1 AND code = $2 AND used = FALSE` + latestOrder
	return r.getCode(ctx, span, op, query, email, code)
}

func (r *VerificationCodeRepo) GetLatestVerificationCode(ctx context.Context, email string) (*verification.Code, error) {
	const op = "postgres.VerificationCodeRepo.GetLatestVerificationCode"
	ctx, span := r.tracer.Start(ctx, "VerificationCodeRepo.GetLatestVerificationCode", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
	))
	defer span.End()

	query := selectVerificationCodeColumns + ` WHERE email = $1` + latestOrder
	return r.getCode(ctx, span, op, query, email)
}

func (r *VerificationCodeRepo) getCode(ctx context.Context, span trace.Span, op, query string, args ...any) (*verification.Code, error) {
	var dto VerificationCodeDTO
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, query, args...).
		Scan(&dto.ID, &dto.Email, &dto.Code, &dto.ExpiresAt, &dto.Used, &dto.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errorx.Wrap(repos.ErrNotFound.WithCause(err), op)
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get verification code")
		return nil, errorx.Wrap(err, op)
	}

	return VerificationCodeToDomain(dto), nil
}

// MarkVerificationCodeUsed is a conditional update: of several concurrent
// callers for the same code, exactly one sees a row change. The others get
// verification.ErrAlreadyUsed.
func (r *VerificationCodeRepo) MarkVerificationCodeUsed(ctx context.Context, id verification.ID) error {
	const op = "postgres.VerificationCodeRepo.MarkVerificationCodeUsed"
	ctx, span := r.tracer.Start(ctx, "VerificationCodeRepo.MarkVerificationCodeUsed", trace.WithAttributes(
		attribute.String("code.id", id.String()),
	))
	defer span.End()

	res, err := postgres.Conn(ctx, r.pool).Exec(ctx, markVerificationCodeUsedQuery, id.String())
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to mark verification code used")
		return errorx.Wrap(err, op)
	}
	if res.RowsAffected() == 0 {
		span.AddEvent("code already consumed")
		return errorx.Wrap(verification.ErrAlreadyUsed, op)
	}

	return nil
}
