package app

import (
	"context"
	"net/http"

	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/config"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/bsrBe/Vent/internal/middleware"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/bsrBe/Vent/internal/repository/memstore"
	"github.com/bsrBe/Vent/internal/routes"
	"github.com/bsrBe/Vent/internal/services"
	"github.com/bsrBe/Vent/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Backends are the external collaborators. Nil fields fall back to in-process defaults.
type Backends struct {
	Store    repository.Store
	Cache    services.Cache
	Mailer   services.Mailer
	Uploader services.ImageUploader
	Audit    audit.Recorder

	// AuthLimiter replaces the in-process limiter on the login, register and
	// forgot-password routes, e.g. a RedisLimiter shared between instances.
	AuthLimiter middleware.Limiter
	Checks      map[string]handlers.Check
}

// Application ties the services together and exposes the HTTP handler.
type Application struct {
	Catalog *services.CatalogService
	Auth    *services.AuthService
	Entries *services.EntryService
	Moods   *services.MoodService
	Stats   *services.StatsService
	Export  *services.ExportService
	Users   *services.UserService

	Handler http.Handler

	limiters []*middleware.IPRateLimiter
}

func New(cfg *config.Config, log logrus.FieldLogger, b Backends) *Application {
	if b.Store == nil {
		b.Store = memstore.New()
	}
	if b.Cache == nil {
		b.Cache = services.NopCache{}
	}
	if b.Mailer == nil {
		b.Mailer = services.LogMailer{Log: log}
	}
	if b.Uploader == nil {
		b.Uploader = services.DisabledUploader{}
	}
	if b.Audit == nil {
		b.Audit = audit.Nop{}
	}

	issuer := services.NewTokenIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	catalog := services.NewCatalogService(b.Store, b.Cache, log)
	moods := services.NewMoodService(b.Store, catalog, log)
	entries := services.NewEntryService(b.Store, catalog, moods, log)

	a := &Application{
		Catalog: catalog,
		Auth: services.NewAuthService(b.Store, issuer, b.Mailer, b.Audit, log, services.AuthConfig{
			ResetTokenTTL: cfg.ResetTokenTTL,
			FrontendURL:   cfg.FrontendURL,
		}),
		Entries: entries,
		Moods:   moods,
		Stats:   services.NewStatsService(b.Store, catalog),
		Export:  services.NewExportService(entries, moods),
		Users:   services.NewUserService(b.Store, b.Uploader, b.Audit, log),
	}

	global := middleware.NewIPRateLimiter(middleware.GlobalRateLimitRPS, middleware.GlobalRateLimitBurst)
	a.limiters = append(a.limiters, global)
	authLimiter := b.AuthLimiter
	if authLimiter == nil {
		inProcess := middleware.NewIPRateLimiter(rate.Every(middleware.AuthRateLimitEvery), middleware.AuthRateLimitBurst)
		a.limiters = append(a.limiters, inProcess)
		authLimiter = inProcess
	}

	base := handlers.NewBase(log, validation.New(), !cfg.IsProduction())
	a.Handler = routes.NewRouter(routes.Deps{
		Config:        cfg,
		Log:           log,
		Base:          base,
		Authenticator: a.Auth,
		GlobalLimiter: global,
		AuthLimiter:   authLimiter,
		Auth:          handlers.NewAuthHandler(base, a.Auth),
		Entries:       handlers.NewEntryHandler(base, entries, catalog),
		Moods:         handlers.NewMoodHandler(base, moods, catalog, a.Stats),
		Export:        handlers.NewExportHandler(base, a.Export),
		Users:         handlers.NewUserHandler(base, a.Users),
		Health:        handlers.NewHealthHandler(base, b.Checks),
	})
	return a
}

// Run sweeps the in-process rate limiters until ctx is done.
func (a *Application) Run(ctx context.Context) {
	for _, l := range a.limiters {
		go l.Run(ctx)
	}
	<-ctx.Done()
}
