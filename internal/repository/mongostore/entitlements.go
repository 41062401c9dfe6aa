package mongostore

import (
	"context"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) ListEntitlements(ctx context.Context, userID primitive.ObjectID) ([]models.Entitlement, error) {
	cursor, err := s.entitlements.Find(ctx, bson.D{{Key: "user", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Entitlement{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GrantEntitlement is idempotent: granting an existing (user, kind, value) is a no-op.
func (s *Store) GrantEntitlement(ctx context.Context, e *models.Entitlement) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	filter := bson.D{
		{Key: "user", Value: e.User},
		{Key: "kind", Value: e.Kind},
		{Key: "value", Value: e.Value},
	}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: e.CreatedAt}}}}
	res, err := s.entitlements.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return translate(err)
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		e.ID = id
	}
	return nil
}
