package routes

import (
	"fmt"
	"net/http"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/config"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/bsrBe/Vent/internal/metrics"
	"github.com/bsrBe/Vent/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Deps is everything the router needs. Limiters are only used in production.
type Deps struct {
	Config        *config.Config
	Log           logrus.FieldLogger
	Base          *handlers.Base
	Authenticator middleware.Authenticator
	GlobalLimiter middleware.Limiter
	AuthLimiter   middleware.Limiter

	Auth    *handlers.AuthHandler
	Entries *handlers.EntryHandler
	Moods   *handlers.MoodHandler
	Export  *handlers.ExportHandler
	Users   *handlers.UserHandler
	Health  *handlers.HealthHandler
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Recover(d.Base, d.Log))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		r.Use(middleware.ProductionSecurity(d.GlobalLimiter, cfg.TrustProxy, d.Base, d.Log)...)
	}
	r.Use(middleware.ClientInfo(cfg.TrustProxy))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		d.Base.Error(w, req, notFound(req))
	})

	r.Get("/health", d.Health.Health)
	r.Handle("/metrics", metrics.Handler())

	authLimit := func(next http.Handler) http.Handler { return next }
	if cfg.IsProduction() && d.AuthLimiter != nil {
		authLimit = middleware.RateLimit(d.AuthLimiter, "auth", cfg.TrustProxy, d.Base, d.Log)
	}
	requireAuth := middleware.RequireAuth(d.Authenticator, d.Base)

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/register", d.Auth.Register)
			r.With(authLimit).Post("/login", d.Auth.Login)
			r.With(authLimit).Post("/forgot-password", d.Auth.ForgotPassword)
			r.Post("/refresh", d.Auth.Refresh)
			r.Patch("/resetPassword/{token}", d.Auth.ResetPassword)
			r.With(requireAuth).Post("/logout", d.Auth.Logout)
			r.With(requireAuth).Get("/me", d.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/entries", func(r chi.Router) {
				r.Get("/", d.Entries.List)
				r.Post("/", d.Entries.Create)
				r.Get("/categories", d.Entries.Categories)
				r.Get("/{id}", d.Entries.Get)
				r.Patch("/{id}", d.Entries.Update)
				r.Delete("/{id}", d.Entries.Delete)
				r.Patch("/{id}/restore", d.Entries.Restore)
			})

			r.Route("/moods", func(r chi.Router) {
				r.Get("/types", d.Moods.Types)
				r.Get("/stats", d.Moods.Stats)
				r.Get("/calendar", d.Moods.Calendar)
				r.Get("/insights", d.Moods.Insights)
				r.Get("/", d.Moods.List)
				r.Post("/", d.Moods.Create)
				r.Get("/{id}", d.Moods.Get)
				r.Patch("/{id}", d.Moods.Update)
				r.Delete("/{id}", d.Moods.Delete)
			})

			r.Get("/search", d.Entries.Search)

			r.Route("/export", func(r chi.Router) {
				r.Get("/entries", d.Export.Entries)
				r.Get("/moods", d.Export.Moods)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile", d.Users.Profile)
				r.Patch("/profile", d.Users.UpdateProfile)
				r.Patch("/change-password", d.Auth.ChangePassword)
				r.Post("/profile-image", d.Users.UploadProfileImage)
				r.Get("/activity", d.Users.Activity)
			})
		})
	})

	return r
}

func notFound(r *http.Request) error {
	return apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, fmt.Sprintf("Can't find %s on this server", r.URL.Path))
}
