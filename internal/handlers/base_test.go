package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/bsrBe/Vent/internal/services"
	"github.com/bsrBe/Vent/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase(development bool) *Base {
	return NewBase(logger.Discard(), validation.New(), development)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		err         error
		wantStatus  int
		wantBody    map[string]interface{}
		wantError   bool
	}{
		{
			name:       "operational error passes through",
			err:        apperrors.NotOwned("entry"),
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]interface{}{"status": "fail", "message": "No entry found with that ID", "code": "NotFound"},
		},
		{
			name:       "internal error hidden in production",
			err:        errors.New("mongo: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]interface{}{"status": "error", "message": "Something went wrong", "code": "Internal"},
		},
		{
			name:        "internal error detailed in development",
			development: true,
			err:         errors.New("mongo: connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantBody:    map[string]interface{}{"status": "error", "message": "Something went wrong", "code": "Internal", "error": "mongo: connection reset"},
			wantError:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestBase(tt.development).Error(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeBody(t, rec)
			stack, hasStack := body["stack"]
			delete(body, "stack")
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantError, hasStack)
			if hasStack {
				assert.NotEmpty(t, stack)
			}
		})
	}
}

func TestErrorEnvelopeDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperrors.Validation("Invalid input data").WithDetails(map[string]string{"email": "Must be a valid email address"})
	newTestBase(false).Error(rec, httptest.NewRequest(http.MethodPost, "/x", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, map[string]interface{}{"email": "Must be a valid email address"}, body["details"])
}

func TestDecode(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
	}
	base := newTestBase(false)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"email":"a@x.com"}`, ""},
		{"empty body", ``, "Request body is required"},
		{"malformed", `{"email":`, "Invalid request body"},
		{"unknown field", `{"email":"a@x.com","role":"admin"}`, "Invalid input data"},
		{"fails validation", `{"email":"nope"}`, "Invalid input data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst payload
			r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			err := base.Decode(httptest.NewRecorder(), r, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", dst.Email)
				return
			}
			require.Error(t, err)
			appErr := apperrors.From(err)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Equal(t, tt.wantErr, appErr.Message)
		})
	}
}

func TestPageEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestBase(false).Page(rec, []string{}, 0, services.NewPagination(1, 10, 0))

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 0, body["results"])
	assert.Equal(t, []interface{}{}, body["data"])
	assert.NotNil(t, body["pagination"])
}

func TestFileAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestBase(false).File(rec, &services.ExportFile{Filename: "entries-2024-06-15.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("id\n")})

	assert.Equal(t, `attachment; filename="entries-2024-06-15.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id\n", rec.Body.String())
}

func TestCurrentUserMissing(t *testing.T) {
	_, err := currentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
