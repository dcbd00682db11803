package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authapp "gitlab.com/codeauth/codeauth-backend/internal/application/auth"
	authhttp "gitlab.com/codeauth/codeauth-backend/internal/ports/http/auth"
	"gitlab.com/codeauth/codeauth-backend/internal/ports/http/middlewares"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/httpx"
)

type Port struct {
	mode        env.Mode
	errhandler  *httpx.ErrorHandler
	ratelimiter *middlewares.RateLimiter
	origins     []string
	auth        *authhttp.HTTP
}

type Args struct {
	AuthApp *authapp.App
	Mode    env.Mode

	// RateLimitRPS of zero disables the per-IP throttle.
	RateLimitRPS   float64
	RateLimitBurst int

	// AllowedOrigins is only consulted in non-prod modes.
	AllowedOrigins []string
}

// NewPort wires the HTTP handlers. ctx bounds background work such as the
// rate limiter sweep.
func NewPort(ctx context.Context, args Args) *Port {
	if args.Mode == "" {
		args.Mode = env.Current()
	}
	errhandler := httpx.NewErrorHandler()

	mw := middlewares.NewMiddleware(middlewares.Args{
		Tokens:     args.AuthApp.Tokens(),
		Errhandler: errhandler,
	})

	p := &Port{
		mode:       args.Mode,
		errhandler: errhandler,
		origins:    args.AllowedOrigins,
		auth: authhttp.NewHTTP(authhttp.Args{
			App:        args.AuthApp,
			Mode:       args.Mode,
			Auth:       mw.Auth,
			Errhandler: errhandler,
		}),
	}
	if args.RateLimitRPS > 0 {
		burst := max(args.RateLimitBurst, 1)
		p.ratelimiter = middlewares.NewRateLimiter(ctx, args.RateLimitRPS, burst, errhandler)
	}
	return p
}

func (p *Port) Route(r chi.Router) chi.Router {
	if r == nil {
		r = chi.NewRouter()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.OTel)
	r.Use(middlewares.Logger)
	r.Use(middleware.Recoverer)
	if p.mode.IsNonProd() {
		r.Use(middlewares.CORS(p.origins))
	}
	if p.ratelimiter != nil {
		r.Use(p.ratelimiter.Limit)
	}

	r.NotFound(p.errhandler.NotFound)
	r.MethodNotAllowed(p.errhandler.MethodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.Success(w, r, http.StatusOK, nil)
	})

	p.auth.Route(r)

	return r
}
