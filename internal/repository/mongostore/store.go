// Package mongostore implements the repository contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"

	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection        = "users"
	TokensCollection       = "refresh_tokens"
	MoodTypesCollection    = "mood_types"
	MoodsCollection        = "moods"
	EntriesCollection      = "journal_entries"
	EntitlementsCollection = "entitlements"
)

// Store implements repository.Store. All related documents are fetched explicitly by id; nothing is populated implicitly.
type Store struct {
	tx repository.TxRunner

	users        *mongo.Collection
	tokens       *mongo.Collection
	moodTypes    *mongo.Collection
	moods        *mongo.Collection
	entries      *mongo.Collection
	entitlements *mongo.Collection
}

var _ repository.Store = (*Store)(nil)

// New builds a Store over db. tx runs paired writes atomically; nil runs them directly.
func New(db *mongo.Database, tx repository.TxRunner) *Store {
	return &Store{
		tx:           tx,
		users:        db.Collection(UsersCollection),
		tokens:       db.Collection(TokensCollection),
		moodTypes:    db.Collection(MoodTypesCollection),
		moods:        db.Collection(MoodsCollection),
		entries:      db.Collection(EntriesCollection),
		entitlements: db.Collection(EntitlementsCollection),
	}
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}

// EnsureIndexes creates the indexes the queries and invariants rely on. Safe to call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		}},
		{s.tokens, []mongo.IndexModel{
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			// Passive cleanup of expired ledger rows.
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		}},
		{s.moodTypes, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.moods, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "moodType", Value: 1}}},
		}},
		{s.entries, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "deletedAt", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "mood", Value: 1}}, Options: options.Index().SetSparse(true)},
		}},
		{s.entitlements, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "kind", Value: 1}, {Key: "value", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return err
		}
	}
	return nil
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	default:
		return err
	}
}

func findOptions(sort bson.D, page, limit int) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(repository.Offset(page, limit))
	}
	return opts
}
