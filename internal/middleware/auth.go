package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/bsrBe/Vent/internal/models"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// RequireAuth verifies the bearer token on every request and stores the user in the context.
// Nothing is cached between requests.
func RequireAuth(auth Authenticator, base *handlers.Base) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				base.Error(w, r, apperrors.ErrUnauthenticated)
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				base.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
