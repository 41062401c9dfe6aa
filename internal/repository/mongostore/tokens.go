package mongostore

import (
	"context"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := s.tokens.InsertOne(ctx, token)
	return translate(err)
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	if err := s.tokens.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&row); err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, token string) (bool, error) {
	res, err := s.tokens.DeleteOne(ctx, bson.D{{Key: "token", Value: token}})
	if err != nil {
		return false, translate(err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteUserRefreshTokens(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.tokens.DeleteMany(ctx, bson.D{{Key: "user", Value: userID}})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}
