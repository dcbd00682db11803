package middlewares

import (
	"context"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/httpx"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per client IP token bucket.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*ipLimiter
	r          rate.Limit
	burst      int
	errhandler *httpx.ErrorHandler
}

// NewRateLimiter allows rps requests per second per IP with bursts up to
// burst. Idle entries are swept until ctx is done.
func NewRateLimiter(ctx context.Context, rps float64, burst int, errhandler *httpx.ErrorHandler) *RateLimiter {
	if errhandler == nil {
		errhandler = httpx.NewErrorHandler()
	}
	rl := &RateLimiter{
		limiters:   make(map[string]*ipLimiter),
		r:          rate.Limit(rps),
		burst:      burst,
		errhandler: errhandler,
	}
	go rl.sweep(ctx)
	return rl
}

func (rl *RateLimiter) get(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: now}
	return l
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.limiters {
				if now.Sub(v.lastSeen) > limiterIdleTTL {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(clientIP(r), time.Now()).Allow() {
			err := errorx.NewRateLimitExceededWithRetry(rl.retryAfter())
			rl.errhandler.HandleError(w, r, trace.SpanFromContext(r.Context()), err, "per-ip rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfter is the whole number of seconds until one token is refilled.
func (rl *RateLimiter) retryAfter() int {
	if rl.r <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rl.r))))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
