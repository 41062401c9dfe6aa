// Package repository declares the persistence contracts used by the services.
// Implementations live in mongostore (production) and memstore (tests, local runs).
package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserUpdate carries the profile fields a user may change. Nil fields are left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByResetToken matches the stored token hash and requires the expiry to be after now.
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error)
	// SetPassword stores a new hash, stamps passwordChangedAt and clears any reset token.
	SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	SetProfileImage(ctx context.Context, id primitive.ObjectID, url string) error
}

// TokenStore is the refresh-token ledger.
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// DeleteRefreshToken reports whether a row was removed. A missing row is not an error.
	DeleteRefreshToken(ctx context.Context, token string) (bool, error)
	DeleteUserRefreshTokens(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type MoodTypeStore interface {
	ListMoodTypes(ctx context.Context) ([]models.MoodType, error)
	GetMoodTypesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.MoodType, error)
	// UpsertMoodTypes inserts or refreshes catalog rows keyed by name.
	UpsertMoodTypes(ctx context.Context, types []models.MoodType) error
}

// MoodQuery lists a user's moods. Limit 0 means no limit.
type MoodQuery struct {
	UserID   primitive.ObjectID
	From     *time.Time
	To       *time.Time
	MoodType *primitive.ObjectID
	Page     int
	Limit    int
}

type MoodStore interface {
	CreateMood(ctx context.Context, mood *models.Mood) error
	GetMood(ctx context.Context, id primitive.ObjectID) (*models.Mood, error)
	GetMoodsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Mood, error)
	UpdateMood(ctx context.Context, mood *models.Mood) error
	DeleteMood(ctx context.Context, id primitive.ObjectID) error
	ListMoods(ctx context.Context, q MoodQuery) ([]models.Mood, int64, error)
	MoodIDsByType(ctx context.Context, userID, moodTypeID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// DeletedScope selects how soft-deleted entries are treated by a query.
type DeletedScope int

const (
	ExcludeDeleted DeletedScope = iota
	IncludeDeleted
	OnlyDeleted
)

// EntryQuery is the typed form of every supported entry filter. Limit 0 means no limit.
type EntryQuery struct {
	UserID   primitive.ObjectID
	Category string
	From     *time.Time
	To       *time.Time
	HasMood  *bool
	Text     string
	Deleted  DeletedScope

	// RestrictMoods limits results to entries whose mood is in MoodIDs (an empty set matches nothing).
	RestrictMoods bool
	MoodIDs       []primitive.ObjectID

	SortField string
	SortDesc  bool
	Page      int
	Limit     int
}

type EntryStore interface {
	CreateEntry(ctx context.Context, entry *models.JournalEntry) error
	GetEntry(ctx context.Context, id primitive.ObjectID) (*models.JournalEntry, error)
	UpdateEntry(ctx context.Context, entry *models.JournalEntry) error
	ListEntries(ctx context.Context, q EntryQuery) ([]models.JournalEntry, int64, error)
	// EntriesCreatedBetween returns the user's live entries with createdAt in [from, to], oldest first.
	EntriesCreatedBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]models.JournalEntry, error)
}

type EntitlementStore interface {
	ListEntitlements(ctx context.Context, userID primitive.ObjectID) ([]models.Entitlement, error)
	GrantEntitlement(ctx context.Context, e *models.Entitlement) error
}

// TxRunner runs fn atomically. Every store call made with the ctx passed to fn joins the transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	TokenStore
	MoodTypeStore
	MoodStore
	EntryStore
	EntitlementStore
	TxRunner
}

// Offset converts a 1-based page into a skip count. It never returns a negative value.
func Offset(page, limit int) int64 {
	if page < 1 || limit <= 0 {
		return 0
	}
	p, l := int64(page-1), int64(limit)
	if p > math.MaxInt64/l {
		return math.MaxInt64
	}
	return p * l
}
