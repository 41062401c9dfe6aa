package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/sirupsen/logrus"
)

// Recover turns a panic into a logged 500 with the usual JSON error body.
func Recover(base *handlers.Base, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithFields(logrus.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   sanitizePath(r.URL.Path),
					"stack":  string(debug.Stack()),
				}).Error("panic recovered")
				base.Error(w, r, apperrors.Internal(fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
