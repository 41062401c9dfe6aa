package validation

import (
	"errors"
	"testing"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Title      string `json:"title" validate:"notblank,max=10"`
	MoodTypeID string `json:"moodTypeId" validate:"omitempty,objectid"`
	Intensity  int    `json:"intensity" validate:"omitempty,min=1,max=5"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Struct(sample{
		Email:      "nope",
		Password:   "short",
		Title:      "   ",
		MoodTypeID: "xyz",
		Intensity:  9,
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "Must be a valid email address", appErr.Details["email"])
	assert.Equal(t, "Must be at least 8 characters long", appErr.Details["password"])
	assert.Equal(t, "This field is required", appErr.Details["title"])
	assert.Equal(t, "Must be a valid id", appErr.Details["moodTypeId"])
	assert.Equal(t, "Must be at most 5", appErr.Details["intensity"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	v := New()

	err := v.Struct(sample{
		Email:      "a@x.com",
		Password:   "Password123!",
		Title:      "T",
		MoodTypeID: "65f000000000000000000001",
	})
	assert.NoError(t, err)
}
