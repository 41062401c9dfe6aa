package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/services"
)

const (
	maxImageBytes        = 5 << 20
	defaultActivityLimit = 20
	maxActivityLimit     = 50
)

// UserHandler serves /users.
type UserHandler struct {
	*Base
	users *services.UserService
}

func NewUserHandler(base *Base, users *services.UserService) *UserHandler {
	return &UserHandler{Base: base, users: users}
}

type profileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// Profile handles GET /users/profile.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	profile, err := h.users.Profile(r.Context(), user.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// UpdateProfile handles PATCH /users/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req profileRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	profile, err := h.users.UpdateProfile(r.Context(), user.ID, services.ProfileInput{Name: req.Name, Email: req.Email})
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// UploadProfileImage handles POST /users/profile-image with a multipart "image" field.
func (h *UserHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<10)*64)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(w, r, apperrors.Validation("Image must be at most 5MB"))
			return
		}
		h.Error(w, r, apperrors.Validation("Invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.Error(w, r, apperrors.Validation("Please upload an image").WithDetails(map[string]string{"image": "This field is required"}))
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		h.Error(w, r, apperrors.Validation("Image must be at most 5MB"))
		return
	}

	// sniff the content instead of trusting the part header
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		h.Error(w, r, apperrors.Validation("Please upload an image"))
		return
	}
	head = head[:n]
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		h.Error(w, r, apperrors.Validation("Not an image! Please upload only images"))
		return
	}

	profile, err := h.users.UploadProfileImage(r.Context(), user.ID, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// Activity handles GET /users/activity?limit.
func (h *UserHandler) Activity(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxActivityLimit {
			h.Error(w, r, apperrors.Validation("Invalid query parameters").WithDetails(map[string]string{"limit": "Must be between 1 and 50"}))
			return
		}
	}
	events, err := h.users.Activity(r.Context(), user.ID, limit)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
