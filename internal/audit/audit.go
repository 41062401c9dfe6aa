// Package audit keeps an append-only trail of authentication events in PostgreSQL.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event kinds.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLoginFailed    = "login_failed"
	EventRefresh        = "refresh"
	EventLogout         = "logout"
	EventPasswordForgot = "password_forgot"
	EventPasswordReset  = "password_reset"
	EventPasswordChange = "password_change"
)

type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Kind      string    `json:"event"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Recorder stores events. Record is best effort and never fails the caller's operation.
type Recorder interface {
	Record(ctx context.Context, userID, kind string)
	Recent(ctx context.Context, userID string, limit int) ([]Event, error)
}

type clientKey struct{}

type client struct {
	ip        string
	userAgent string
}

// WithClient stores the caller's address and user agent for events recorded under ctx.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: ip, userAgent: userAgent})
}

// ClientFrom returns the address and user agent stored by WithClient.
func ClientFrom(ctx context.Context) (ip, userAgent string) {
	c, _ := ctx.Value(clientKey{}).(client)
	return c.ip, c.userAgent
}

// PostgresRecorder writes events to the auth_events table.
type PostgresRecorder struct {
	db  *sql.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewPostgresRecorder(db *sql.DB, log logrus.FieldLogger) *PostgresRecorder {
	return &PostgresRecorder{db: db, log: log, now: time.Now}
}

// EnsureSchema creates the auth_events table and its indexes if they don't exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS auth_events (
			id UUID PRIMARY KEY,
			user_id VARCHAR(24),
			event VARCHAR(32) NOT NULL,
			ip_address VARCHAR(255),
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_user_id ON auth_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_created_at ON auth_events(created_at)`,
	}
	for _, q := range queries {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, userID, kind string) {
	ip, userAgent := ClientFrom(ctx)
	var uid interface{}
	if userID != "" {
		uid = userID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_events (id, user_id, event, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), uid, kind, ip, userAgent, r.now().UTC())
	if err != nil {
		r.log.WithError(err).WithField("event", kind).Warn("failed to record auth event")
	}
}

func (r *PostgresRecorder) Recent(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM auth_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e := Event{UserID: userID}
		if err := rows.Scan(&e.ID, &e.Kind, &e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Nop is used when no PostgreSQL URI is configured.
type Nop struct{}

func (Nop) Record(context.Context, string, string) {}

func (Nop) Recent(context.Context, string, int) ([]Event, error) {
	return []Event{}, nil
}
