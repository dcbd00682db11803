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
	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
	"gitlab.com/codeauth/codeauth-backend/pkg/postgres"
)

const (
	selectUserColumns = `SELECT id, email, verified, created_at, updated_at FROM users`

	// verified only ever moves from false to true, even for a stale writer
	upsertUserQuery = `
	INSERT INTO users (id, email, verified, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET verified   = users.verified OR EXCLUDED.verified,
	    updated_at = EXCLUDED.updated_at;`
)

type UserRepo struct {
	tracer trace.Tracer
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewUserRepo creates a new instance of UserRepo.
//
// WARNING: panics if pool is nil
func NewUserRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *UserRepo {
	if pool == nil {
		panic(ErrNilPool)
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &UserRepo{
		tracer: t,
		logger: l,
		pool:   pool,
	}
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	const op = "postgres.UserRepo.GetUserByEmail"
	ctx, span := r.tracer.Start(ctx, "UserRepo.GetUserByEmail", trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
	))
	defer span.End()

	return r.getUser(ctx, span, op, selectUserColumns+` WHERE email = $1`, email)
}

func (r *UserRepo) GetUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	const op = "postgres.UserRepo.GetUserByID"
	ctx, span := r.tracer.Start(ctx, "UserRepo.GetUserByID", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	return r.getUser(ctx, span, op, selectUserColumns+` WHERE id = $1`, id.String())
}

func (r *UserRepo) getUser(ctx context.Context, span trace.Span, op, query string, arg any) (*user.User, error) {
	var dto UserDTO
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, query, arg).
		Scan(&dto.ID, &dto.Email, &dto.Verified, &dto.CreatedAt, &dto.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errorx.Wrap(repos.ErrNotFound.WithCause(err), op)
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get user")
		return nil, errorx.Wrap(err, op)
	}

	return UserToDomain(dto), nil
}

// SaveUser inserts u or updates the row with its id. It runs in a savepoint
// when ctx carries a transaction, so an email conflict leaves the outer
// transaction usable.
func (r *UserRepo) SaveUser(ctx context.Context, u *user.User) error {
	const op = "postgres.UserRepo.SaveUser"
	ctx, span := r.tracer.Start(ctx, "UserRepo.SaveUser", trace.WithAttributes(
		attribute.String("user.id", u.ID().String()),
	))
	defer span.End()

	dto := DomainToUserDTO(u)
	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, upsertUserQuery, dto.ID, dto.Email, dto.Verified, dto.CreatedAt, dto.UpdatedAt)
		return err
	})
	if isUniqueViolation(err) {
		span.AddEvent("email already taken")
		return errorx.Wrap(repos.ErrDuplicateEmail.WithCause(err), op)
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to save user")
		return errorx.Wrap(err, op)
	}

	return nil
}
