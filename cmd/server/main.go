package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bsrBe/Vent/internal/app"
	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/config"
	"github.com/bsrBe/Vent/internal/database"
	"github.com/bsrBe/Vent/internal/handlers"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/bsrBe/Vent/internal/middleware"
	"github.com/bsrBe/Vent/internal/repository/mongostore"
	"github.com/bsrBe/Vent/internal/services"
)

const (
	authRedisMax     = 10
	authRedisWindow  = time.Minute
	authRedisBlocked = 15 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongo, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		return err
	}
	defer mongo.Close()
	if err := mongo.RequireTransactions(cfg.MongoAllowStandalone); err != nil {
		return err
	}

	store := mongostore.New(mongo.DB, mongo)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	backends := app.Backends{
		Store:  store,
		Checks: map[string]handlers.Check{"mongo": mongo.Ping},
	}

	if cfg.RedisURI != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, log)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable; caching and shared rate limits disabled")
		} else {
			defer rdb.Close()
			backends.Cache = services.NewRedisCache(rdb)
			backends.AuthLimiter = middleware.NewRedisLimiter(rdb, authRedisMax, authRedisWindow, authRedisBlocked)
			backends.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	if cfg.PostgresURI != "" {
		pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI, log)
		if err != nil {
			log.WithError(err).Warn("PostgreSQL unavailable; audit trail disabled")
		} else {
			defer pg.Close()
			recorder := audit.NewPostgresRecorder(pg, log)
			if err := recorder.EnsureSchema(ctx); err != nil {
				return err
			}
			backends.Audit = recorder
			backends.Checks["postgres"] = pg.PingContext
		}
	}

	if cfg.SMTPHost != "" {
		backends.Mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		log.Warn("SMTP not configured; password reset links are only logged")
	}

	if cfg.CloudinaryEnabled() {
		uploader, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.WithError(err).Warn("Cloudinary unavailable; profile image uploads disabled")
		} else {
			backends.Uploader = uploader
		}
	} else {
		log.Warn("Cloudinary credentials not found; profile image uploads disabled")
	}

	application := app.New(cfg, log, backends)
	if err := application.Catalog.Seed(ctx); err != nil {
		return err
	}
	go application.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Environment, "prefix": cfg.APIPrefix}).Info("Vent API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
