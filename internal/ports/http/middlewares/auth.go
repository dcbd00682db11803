package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ARUMANDESU/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/codeauth/codeauth-backend/internal/application/auth"
	"gitlab.com/codeauth/codeauth-backend/pkg/ctxs"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/httpx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
)

const bearerPrefix = "Bearer "

var (
	tracer = otel.Tracer("codeauth/internal/ports/http/middlewares")
	logger = logging.Named("codeauth/internal/ports/http/middlewares")
)

type Middleware struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	tokens     *authapp.TokenIssuer
	errhandler *httpx.ErrorHandler
}

type Args struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	Tokens     *authapp.TokenIssuer
	Errhandler *httpx.ErrorHandler
}

func NewMiddleware(args Args) *Middleware {
	m := &Middleware{
		tracer:     args.Tracer,
		logger:     args.Logger,
		tokens:     args.Tokens,
		errhandler: args.Errhandler,
	}

	if m.tracer == nil {
		m.tracer = tracer
	}
	if m.logger == nil {
		m.logger = logger
	}
	if m.tokens == nil {
		panic("token issuer is required for auth middleware")
	}
	if m.errhandler == nil {
		m.errhandler = httpx.NewErrorHandler()
	}
	return m
}

// Auth requires an "Authorization: Bearer <token>" header and attaches the
// token's subject to the request context.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "AuthMiddleware")
		defer span.End()

		header := r.Header.Get("Authorization")
		if header == "" {
			m.errhandler.HandleError(w, r, span, errorx.NewUnauthorized(), "missing authorization header")
			return
		}
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			m.errhandler.HandleError(w, r, span, errorx.NewUnauthorized(), "authorization header is not a bearer token")
			return
		}

		token := strings.TrimSpace(header[len(bearerPrefix):])
		err := validation.Validate(token, validation.Required, validation.Length(1, 4096))
		if err != nil {
			m.errhandler.HandleError(w, r, span, errorx.NewTokenInvalid().WithCause(err), "invalid bearer token")
			return
		}

		userID, err := m.tokens.Verify(token)
		if err != nil {
			m.errhandler.HandleError(w, r, span, err, "failed to verify bearer token")
			return
		}

		ctx = ctxs.WithUser(ctx, &ctxs.User{ID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
