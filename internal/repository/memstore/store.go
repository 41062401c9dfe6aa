// Package memstore is an in-memory repository.Store used by tests and by local runs without MongoDB.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users        map[primitive.ObjectID]models.User
	tokens       map[string]models.RefreshToken
	moodTypes    []models.MoodType
	moods        map[primitive.ObjectID]models.Mood
	entries      map[primitive.ObjectID]models.JournalEntry
	entitlements []models.Entitlement

	failures map[string]error
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]models.User),
		tokens:   make(map[string]models.RefreshToken),
		moods:    make(map[primitive.ObjectID]models.Mood),
		entries:  make(map[primitive.ObjectID]models.JournalEntry),
		failures: make(map[string]error),
	}
}

// FailNext makes the next call of the named method return err.
func (s *Store) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// fail must be called with mu held.
func (s *Store) fail(method string) error {
	if err, ok := s.failures[method]; ok {
		delete(s.failures, method)
		return err
	}
	return nil
}

type txKey struct{}

// undoLog collects the inverse of every write made inside a transaction.
type undoLog struct {
	steps []func()
}

// tracked returns the undo log of the transaction ctx runs in, if any.
func tracked(ctx context.Context) (*undoLog, bool) {
	log, ok := ctx.Value(txKey{}).(*undoLog)
	return log, ok
}

// remember records how to put m[key] back to its current state. Must be called with mu held.
func remember[K comparable, V any](ctx context.Context, m map[K]V, key K) {
	log, ok := tracked(ctx)
	if !ok {
		return
	}
	prev, existed := m[key]
	log.steps = append(log.steps, func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

// WithTransaction serializes transactions. When fn fails, only the keys fn wrote are rolled back,
// so writes made concurrently outside the transaction survive.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		s.mu.Lock()
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUser"); err != nil {
		return err
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	remember(ctx, s.users, user.ID)
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetUserByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PasswordResetToken != "" && u.PasswordResetToken == tokenHash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, update repository.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		for otherID, other := range s.users {
			if otherID != id && other.Email == email {
				return nil, repository.ErrDuplicate
			}
		}
		u.Email = email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	u.UpdatedAt = time.Now().UTC()
	remember(ctx, s.users, id)
	s.users[id] = u
	return &u, nil
}

func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time) error {
	return s.mutateUser(ctx, id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		u.UpdatedAt = changedAt
	})
}

func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return s.mutateUser(ctx, id, func(u *models.User) {
		u.PasswordResetToken = tokenHash
		u.PasswordResetExpires = &expires
	})
}

func (s *Store) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	return s.mutateUser(ctx, id, func(u *models.User) {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	})
}

func (s *Store) SetProfileImage(ctx context.Context, id primitive.ObjectID, url string) error {
	return s.mutateUser(ctx, id, func(u *models.User) {
		u.ProfileImage = url
		u.UpdatedAt = time.Now().UTC()
	})
}

func (s *Store) mutateUser(ctx context.Context, id primitive.ObjectID, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	remember(ctx, s.users, id)
	s.users[id] = u
	return nil
}

// Refresh-token ledger

func (s *Store) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveRefreshToken"); err != nil {
		return err
	}
	if _, exists := s.tokens[token.Token]; exists {
		return repository.ErrDuplicate
	}
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	remember(ctx, s.tokens, token.Token)
	s.tokens[token.Token] = *token
	return nil
}

func (s *Store) GetRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return false, nil
	}
	remember(ctx, s.tokens, token)
	delete(s.tokens, token)
	return true, nil
}

func (s *Store) DeleteUserRefreshTokens(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, row := range s.tokens {
		if row.User == userID {
			remember(ctx, s.tokens, k)
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

// TokenCount returns the number of ledger rows owned by userID.
func (s *Store) TokenCount(userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.tokens {
		if row.User == userID {
			n++
		}
	}
	return n
}

// Entitlements

func (s *Store) ListEntitlements(_ context.Context, userID primitive.ObjectID) ([]models.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Entitlement{}
	for _, e := range s.entitlements {
		if e.User == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GrantEntitlement(ctx context.Context, e *models.Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entitlements {
		if existing.User == e.User && existing.Kind == e.Kind && existing.Value == e.Value {
			e.ID = existing.ID
			return nil
		}
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if log, ok := tracked(ctx); ok {
		id := e.ID
		log.steps = append(log.steps, func() { s.removeEntitlement(id) })
	}
	s.entitlements = append(s.entitlements, *e)
	return nil
}

// removeEntitlement must be called with mu held.
func (s *Store) removeEntitlement(id primitive.ObjectID) {
	for i, e := range s.entitlements {
		if e.ID == id {
			s.entitlements = append(s.entitlements[:i], s.entitlements[i+1:]...)
			return
		}
	}
}

func sortByTime[T any](items []T, at func(T) time.Time, id func(T) primitive.ObjectID, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := at(items[i]), at(items[j])
		if !ti.Equal(tj) {
			if desc {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		if desc {
			return id(items[i]).Hex() > id(items[j]).Hex()
		}
		return id(items[i]).Hex() < id(items[j]).Hex()
	})
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	offset := repository.Offset(page, limit)
	if offset >= int64(len(items)) {
		return []T{}
	}
	start := int(offset)
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
