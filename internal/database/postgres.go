package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// The audit trail writes one row per auth event, so a small pool is enough.
const (
	auditMaxOpenConns = 10
	auditMaxIdleConns = 2
	auditConnLifetime = 30 * time.Minute
)

// ConnectPostgres opens the optional PostgreSQL pool behind the auth audit trail.
func ConnectPostgres(ctx context.Context, postgresURI string, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(auditMaxOpenConns)
	db.SetMaxIdleConns(auditMaxIdleConns)
	db.SetConnMaxLifetime(auditConnLifetime)

	if err := pingWithin(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("connected to PostgreSQL audit store")
	return db, nil
}
