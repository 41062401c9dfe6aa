// Command grant unlocks an extra journal category or mood type for one user.
//
//	grant -email a@x.com -kind category -value FAMILY
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bsrBe/Vent/internal/config"
	"github.com/bsrBe/Vent/internal/database"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/bsrBe/Vent/internal/repository/mongostore"
	"github.com/bsrBe/Vent/internal/services"
)

func main() {
	email := flag.String("email", "", "email of the user to grant")
	kind := flag.String("kind", models.EntitlementCategory, "entitlement kind: category or moodType")
	value := flag.String("value", "", "category name or mood type entitlement tag")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mongo, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		log.WithError(err).Fatal("connect to MongoDB")
	}
	defer mongo.Close()

	store := mongostore.New(mongo.DB, mongo)
	catalog := services.NewCatalogService(store, nil, log)
	if err := grant(ctx, store, catalog, *email, *kind, *value); err != nil {
		fmt.Fprintln(os.Stderr, "grant:", err)
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{"email": *email, "kind": *kind, "value": *value}).Info("entitlement granted")
}

func grant(ctx context.Context, users repository.UserStore, catalog *services.CatalogService, email, kind, value string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("-email is required")
	}
	user, err := users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return err
	}
	return catalog.Grant(ctx, user.ID, kind, value)
}
