package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"authentication", ErrUnauthenticated, http.StatusUnauthorized},
		{"authorization disguised as not found", NotOwned("entry"), http.StatusNotFound},
		{"not found", NotFound("entry"), http.StatusNotFound},
		{"conflict", ErrDuplicateEmail, http.StatusConflict},
		{"rate limit", ErrTooManyRequests, http.StatusTooManyRequests},
		{"external", ErrEmailDeliveryFailed, http.StatusInternalServerError},
		{"reset token", ErrInvalidOrExpiredResetToken, http.StatusBadRequest},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus)
		})
	}
}

func TestIsMatchesOnCode(t *testing.T) {
	wrapped := fmt.Errorf("refresh: %w", ErrInvalidOrExpiredToken.Wrap(errors.New("row missing")))

	assert.True(t, errors.Is(wrapped, ErrInvalidOrExpiredToken))
	assert.False(t, errors.Is(wrapped, ErrUserGone))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	known := From(fmt.Errorf("ctx: %w", ErrUserGone))
	assert.Equal(t, CodeUserGone, known.Code)

	unknown := From(errors.New("driver exploded"))
	assert.Equal(t, KindInternal, unknown.Kind)
	assert.Equal(t, "Something went wrong", unknown.Message)
	assert.False(t, IsOperational(unknown))
	assert.True(t, IsOperational(ErrExpired))
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := Validation("Validation failed").WithDetails(map[string]string{"email": "required"})

	assert.Equal(t, "required", detailed.Details["email"])
	assert.Nil(t, ErrDuplicateEmail.WithDetails(nil).Details)
	assert.Nil(t, ErrDuplicateEmail.Details)
}
