package mongostore

import (
	"context"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := s.users.InsertOne(ctx, user)
	return translate(err)
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (s *Store) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return s.findUser(ctx, bson.D{
		{Key: "passwordResetToken", Value: tokenHash},
		{Key: "passwordResetExpires", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (s *Store) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, update repository.UserUpdate) (*models.User, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if update.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *update.Name})
	}
	if update.Email != nil {
		set = append(set, bson.E{Key: "email", Value: strings.ToLower(strings.TrimSpace(*update.Email))})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.users.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time) error {
	return s.updateUser(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "passwordChangedAt", Value: changedAt},
			{Key: "updatedAt", Value: changedAt},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}},
	})
}

func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return s.updateUser(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "passwordResetToken", Value: tokenHash},
			{Key: "passwordResetExpires", Value: expires},
		}},
	})
}

func (s *Store) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	return s.updateUser(ctx, id, bson.D{
		{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}},
	})
}

func (s *Store) SetProfileImage(ctx context.Context, id primitive.ObjectID, url string) error {
	return s.updateUser(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "profileImage", Value: url},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
	})
}

func (s *Store) updateUser(ctx context.Context, id primitive.ObjectID, update bson.D) error {
	res, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
