package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

func TestStoreAgainstMockServer(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create user maps duplicate key", func(mt *mtest.T) {
		store := New(mt.DB, nil)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_1",
		}))

		err := store.CreateUser(context.Background(), &models.User{Email: "A@X.com", Name: "A"})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	mt.Run("get user by email", func(mt *mtest.T) {
		store := New(mt.DB, nil)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns(mt, UsersCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "email", Value: "a@x.com"},
			{Key: "name", Value: "A"},
			{Key: "password", Value: "hash"},
		}))

		user, err := store.GetUserByEmail(context.Background(), " A@X.com ")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "hash", user.PasswordHash)
	})

	mt.Run("missing refresh token is not found", func(mt *mtest.T) {
		store := New(mt.DB, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, TokensCollection), mtest.FirstBatch))

		_, err := store.GetRefreshToken(context.Background(), "nope")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	mt.Run("delete refresh token reports removal", func(mt *mtest.T) {
		store := New(mt.DB, nil)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		removed, err := store.DeleteRefreshToken(context.Background(), "rt1")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.DeleteRefreshToken(context.Background(), "rt1")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	mt.Run("set password on unknown user", func(mt *mtest.T) {
		store := New(mt.DB, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := store.SetPassword(context.Background(), primitive.NewObjectID(), "hash", time.Now())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
