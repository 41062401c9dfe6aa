package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/validation"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"
)

func testBase() *handlers.Base {
	return handlers.NewBase(logger.Discard(), validation.New(), false)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type fakeAuthenticator struct {
	user  *models.User
	err   error
	token string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	f.token = token
	return f.user, f.err
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestRequireAuth(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "a@x.com"}

	tests := []struct {
		name       string
		header     string
		authErr    error
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", nil, http.StatusUnauthorized, "Unauthenticated"},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, "Unauthenticated"},
		{"blank token", "Bearer   ", nil, http.StatusUnauthorized, "Unauthenticated"},
		{"expired", "Bearer tok", apperrors.ErrExpired, http.StatusUnauthorized, "Expired"},
		{"user gone", "Bearer tok", apperrors.ErrUserGone, http.StatusUnauthorized, "UserGone"},
		{"valid", "bearer tok", nil, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuthenticator{user: user, err: tt.authErr}
			var seen *models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = handlers.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(auth, testBase())(next).ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
				assert.Nil(t, seen)
				return
			}
			assert.Equal(t, "tok", auth.token)
			assert.Equal(t, user, seen)
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Every(5*time.Second), 2)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(5 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "one token refilled")

	now = now.Add(time.Hour)
	l.Sweep(limiterTTL)
	assert.Empty(t, l.entries)
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("rejects with 429", func(t *testing.T) {
		limiter := &stubLimiter{allow: false}
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		RateLimit(limiter, "auth", false, testBase(), logger.Discard())(okHandler).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "TooManyRequests", errorCode(t, rec))
		assert.Equal(t, []string{"auth:10.0.0.1"}, limiter.keys)
	})

	t.Run("fails open", func(t *testing.T) {
		limiter := &stubLimiter{allow: true, err: errors.New("redis down")}
		rec := httptest.NewRecorder()
		RateLimit(limiter, "auth", false, testBase(), logger.Discard())(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	ok, err := NewRedisLimiter(client, 1, time.Minute, time.Minute).Allow(context.Background(), "auth:1.2.3.4")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/entries", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	r.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/auth/resetPassword/***", sanitizePath("/api/v1/auth/resetPassword/abc123"))
	assert.Equal(t, "/reset-password/***", sanitizePath("/reset-password/abc123"))
	assert.Equal(t, "/api/v1/entries/42", sanitizePath("/api/v1/entries/42"))
}

func TestRecover(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	Recover(testBase(), logger.Discard())(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal", errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestClientInfo(t *testing.T) {
	var ip, userAgent string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, userAgent = audit.ClientFrom(r.Context())
	})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	r.Header.Set("User-Agent", "vent-test")

	ClientInfo(true)(next).ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "1.2.3.4", ip)
	assert.Equal(t, "vent-test", userAgent)

	r.Header.Del("X-Forwarded-For")
	ClientInfo(false)(next).ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "10.0.0.1", ip)
}
