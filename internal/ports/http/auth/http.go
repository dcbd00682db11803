package authhttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ARUMANDESU/validation"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/codeauth/codeauth-backend/internal/application/auth"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/pkg/ctxs"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/httpx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
	"gitlab.com/codeauth/codeauth-backend/pkg/sanitizex"
	"gitlab.com/codeauth/codeauth-backend/pkg/validationx"
)

var (
	tracer = otel.Tracer("codeauth/internal/ports/http/auth")
	logger = logging.Named("codeauth/internal/ports/http/auth")
)

type HTTP struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	app        *authapp.App
	mode       env.Mode
	auth       func(http.Handler) http.Handler
	errhandler *httpx.ErrorHandler
}

type Args struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	App        *authapp.App
	Mode       env.Mode
	Errhandler *httpx.ErrorHandler

	// Auth guards the routes that need a bearer token.
	Auth func(http.Handler) http.Handler
}

func NewHTTP(args Args) *HTTP {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Mode == "" {
		args.Mode = env.Current()
	}
	if args.Errhandler == nil {
		args.Errhandler = httpx.NewErrorHandler()
	}
	if args.App == nil || args.Auth == nil {
		panic("authhttp: app and auth middleware are required")
	}

	return &HTTP{
		tracer:     args.Tracer,
		logger:     args.Logger,
		app:        args.App,
		mode:       args.Mode,
		auth:       args.Auth,
		errhandler: args.Errhandler,
	}
}

func (h *HTTP) Route(r chi.Router) {
	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/verify", h.Verify)
		r.With(h.auth).Get("/me", h.Me)
	})

	if h.mode.IsNonProd() {
		r.Get("/dev/verification-codes/{email}", h.GetVerificationCode)
	}
}

type RegisterRequest struct {
	Email string `json:"email"`
}

func (r *RegisterRequest) Sanitized() {
	r.Email = sanitizex.CleanSingleLine(r.Email)
}

func (r *RegisterRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{"email": logging.RedactEmail(r.Email)})
}

func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validationx.EmailRules...),
	)
}

func (h *HTTP) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Register")
	defer span.End()

	var req RegisterRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to read json")
		return
	}

	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate request body")
		return
	}

	u, err := h.app.Register(ctx, authapp.Register{Email: req.Email})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to register")
		return
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{"user": toUserResponse(u)})
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *VerifyRequest) Sanitized() {
	r.Email = sanitizex.CleanSingleLine(r.Email)
	r.Code = sanitizex.CompactCode(r.Code)
}

func (r *VerifyRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{"email": logging.RedactEmail(r.Email)})
}

func (r *VerifyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validationx.EmailRules...),
		validation.Field(&r.Code, validationx.VerificationCodeRules...),
	)
}

func (h *HTTP) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Verify")
	defer span.End()

	var req VerifyRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to read json")
		return
	}

	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate request body")
		return
	}

	token, err := h.app.Verify(ctx, authapp.Verify{Email: req.Email, Code: req.Code})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to verify code")
		return
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.app.Tokens().TTL().Seconds()),
	})
}

func (h *HTTP) Me(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Me")
	defer span.End()

	principal, ok := ctxs.UserFromCtx(ctx)
	if !ok {
		h.errhandler.HandleError(w, r, span, errorx.NewUnauthorized(), "no user in request context")
		return
	}

	u, err := h.app.GetUser(ctx, principal.ID)
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to get user")
		return
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{"user": toUserResponse(u)})
}

func (h *HTTP) GetVerificationCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetVerificationCode")
	defer span.End()

	email := sanitizex.CleanSingleLine(chi.URLParam(r, "email"))
	otelx.SetSpanAttrs(span, map[string]any{"email": logging.RedactEmail(email)})

	code, err := h.app.LatestCode(ctx, email)
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to get latest verification code")
		return
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{
		"email":      code.Email(),
		"code":       code.Code(),
		"expires_at": code.ExpiresAt().UTC().Format(time.RFC3339),
		"used":       code.IsUsed(),
	})
}

type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:       u.ID().String(),
		Email:    u.Email(),
		Verified: u.IsVerified(),
	}
}
