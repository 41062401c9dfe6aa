package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	err      error
	folder   string
	publicID string
	body     string
}

func (u *fakeUploader) UploadImage(_ context.Context, file io.Reader, folder, publicID string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	u.folder, u.publicID, u.body = folder, publicID, string(data)
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".png", nil
}

func newUserFixture(t *testing.T) (*UserService, *memstore.Store, *fakeUploader, *models.User) {
	t.Helper()
	store := memstore.New()
	user := &models.User{Name: "A", Email: "a@x.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	require.NoError(t, store.CreateUser(context.Background(), &models.User{Name: "B", Email: "b@x.com", PasswordHash: "x"}))

	uploader := &fakeUploader{}
	return NewUserService(store, uploader, audit.Nop{}, logger.Discard()), store, uploader, user
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _, user := newUserFixture(t)
	ctx := context.Background()

	name := "  Alex "
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alex", updated.Name)
	assert.Equal(t, "a@x.com", updated.Email)

	taken := "B@x.com"
	_, err = svc.UpdateProfile(ctx, user.ID, ProfileInput{Email: &taken})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

	blank := " "
	_, err = svc.UpdateProfile(ctx, user.ID, ProfileInput{Name: &blank})
	assert.Equal(t, apperrors.KindValidation, apperrors.From(err).Kind)

	same, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "Alex", same.Name)
}

func TestUploadProfileImage(t *testing.T) {
	svc, store, uploader, user := newUserFixture(t)
	ctx := context.Background()

	updated, err := svc.UploadProfileImage(ctx, user.ID, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, ProfileImageFolder, uploader.folder)
	assert.Equal(t, user.ID.Hex(), uploader.publicID)
	assert.Equal(t, "png-bytes", uploader.body)
	assert.Contains(t, updated.ProfileImage, "vent/profile")

	uploader.err = errors.New("cloudinary down")
	_, err = svc.UploadProfileImage(ctx, user.ID, strings.NewReader("other"))
	assert.ErrorIs(t, err, apperrors.ErrImageUploadFailed)

	stored, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ProfileImage, stored.ProfileImage)
}

func TestActivityNeverNil(t *testing.T) {
	svc, _, _, user := newUserFixture(t)
	events, err := svc.Activity(context.Background(), user.ID, 10)
	require.NoError(t, err)
	assert.NotNil(t, events)
}
