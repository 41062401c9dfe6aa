package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository/memstore"
	"github.com/bsrBe/Vent/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubUploader struct {
	calls int
	err   error
}

func (u *stubUploader) UploadImage(_ context.Context, file io.Reader, folder, publicID string) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}
	return "https://res.cloudinary.com/demo/" + folder + "/" + publicID + ".png", nil
}

func newUserHandlerFixture(t *testing.T) (*UserHandler, *stubUploader, *models.User) {
	t.Helper()
	store := memstore.New()
	user := &models.User{Name: "A", Email: "a@x.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), user))

	uploader := &stubUploader{}
	svc := services.NewUserService(store, uploader, audit.Nop{}, logger.Discard())
	return NewUserHandler(newTestBase(false), svc), uploader, user
}

func multipartRequest(t *testing.T, user *models.User, field string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "avatar.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/users/profile-image", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r.WithContext(WithUser(r.Context(), user))
}

func TestUploadProfileImageHandler(t *testing.T) {
	h, uploader, user := newUserHandlerFixture(t)

	rec := httptest.NewRecorder()
	h.UploadProfileImage(rec, multipartRequest(t, user, "image", append(pngHeader, make([]byte, 64)...)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	profile := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Contains(t, profile["profileImage"], "vent/profile")
	assert.Equal(t, 1, uploader.calls)
}

func TestUploadProfileImageRejections(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		content []byte
	}{
		{"missing field", "file", pngHeader},
		{"not an image", "image", []byte("just some text, definitely not a picture")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, uploader, user := newUserHandlerFixture(t)
			rec := httptest.NewRecorder()
			h.UploadProfileImage(rec, multipartRequest(t, user, tt.field, tt.content))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, uploader.calls)
		})
	}
}

func TestUploadProfileImageTooLarge(t *testing.T) {
	h, uploader, user := newUserHandlerFixture(t)
	big := append(append([]byte{}, pngHeader...), make([]byte, maxImageBytes+1)...)

	rec := httptest.NewRecorder()
	h.UploadProfileImage(rec, multipartRequest(t, user, "image", big))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, uploader.calls)
}

func TestUploadProfileImageUpstreamFailure(t *testing.T) {
	h, uploader, user := newUserHandlerFixture(t)
	uploader.err = errors.New("cloudinary: 503")

	rec := httptest.NewRecorder()
	h.UploadProfileImage(rec, multipartRequest(t, user, "image", pngHeader))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ImageUploadFailed", decodeBody(t, rec)["code"])
}

func TestActivityLimit(t *testing.T) {
	h, _, user := newUserHandlerFixture(t)

	for _, tt := range []struct {
		query string
		want  int
	}{
		{"", http.StatusOK},
		{"?limit=50", http.StatusOK},
		{"?limit=0", http.StatusBadRequest},
		{"?limit=abc", http.StatusBadRequest},
	} {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/users/activity"+tt.query, nil)
		rec := httptest.NewRecorder()
		h.Activity(rec, r.WithContext(WithUser(r.Context(), user)))
		assert.Equal(t, tt.want, rec.Code, tt.query)
	}
}
