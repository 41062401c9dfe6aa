package middleware

import (
	"net/http"

	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/pkg/clientip"
)

// ClientInfo records the caller's IP and user agent for the audit trail.
func ClientInfo(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithClient(r.Context(), clientip.RealClientIP(r, trustProxy), r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
