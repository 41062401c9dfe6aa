package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/bsrBe/Vent/pkg/clientip"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerReferrerPolicy          = "Referrer-Policy"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// Limits used in production.
const (
	GlobalRateLimitRPS   = 5
	GlobalRateLimitBurst = 50
	AuthRateLimitEvery   = 5 * time.Second
	AuthRateLimitBurst   = 5
	limiterTTL           = 30 * time.Minute
	limiterSweepInterval = 5 * time.Minute
)

// SecurityHeaders sets security-related response headers for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// Limiter decides whether one more request for key fits its budget.
// Implementations that fail should return true along with the error.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPRateLimiter keeps one token bucket per key in process memory.
type IPRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewIPRateLimiter(limit rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastUse = now
	return e.limiter.AllowN(now, 1), nil
}

// Sweep drops buckets idle for longer than ttl.
func (l *IPRateLimiter) Sweep(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, e := range l.entries {
		if now.Sub(e.lastUse) > ttl {
			delete(l.entries, key)
		}
	}
}

// Run sweeps idle buckets until ctx is cancelled.
func (l *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(limiterTTL)
		}
	}
}

// RateLimit rejects requests with 429 once the client IP exhausts its budget under scope.
// Limiter errors are logged and the request is let through.
func RateLimit(limiter Limiter, scope string, trustProxy bool, base *handlers.Base, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.RealClientIP(r, trustProxy)
			ok, err := limiter.Allow(r.Context(), scope+":"+ip)
			if err != nil {
				log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable")
			}
			if !ok {
				base.Error(w, r, apperrors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProductionSecurity returns the middlewares applied to every request in production:
// security headers, then the per-IP global RateLimit.
func ProductionSecurity(global Limiter, trustProxy bool, base *handlers.Base, log logrus.FieldLogger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		RateLimit(global, "global", trustProxy, base, log),
	}
}
