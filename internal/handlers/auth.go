package handlers

import (
	"net/http"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/services"
	"github.com/go-chi/chi/v5"
)

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent"

// AuthHandler serves /auth and the password change under /users.
type AuthHandler struct {
	*Base
	auth *services.AuthService
}

func NewAuthHandler(base *Base, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{Base: base, auth: auth}
}

type sessionResponse struct {
	User *models.User `json:"user,omitempty"`
	services.TokenPair
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"notblank"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"passwordConfirm" validate:"omitempty,eqfield=Password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	user, pair, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, sessionResponse{User: user, TokenPair: pair})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, sessionResponse{User: user, TokenPair: pair})
}

// Refresh handles POST /auth/refresh. The presented token is single use.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, sessionResponse{TokenPair: pair})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req refreshRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	if err := h.auth.Logout(r.Context(), user.ID, req.RefreshToken); err != nil {
		h.Error(w, r, err)
		return
	}
	h.Message(w, http.StatusOK, "Logged out successfully")
}

// ForgotPassword handles POST /auth/forgot-password. Known and unknown emails get the same body.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		h.Error(w, r, err)
		return
	}
	h.Message(w, http.StatusOK, forgotPasswordMessage)
}

// ResetPassword handles PATCH /auth/resetPassword/{token}.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	user, pair, err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, sessionResponse{User: user, TokenPair: pair})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// ChangePassword handles PATCH /users/change-password. Every other session is revoked.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req changePasswordRequest
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	pair, err := h.auth.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, sessionResponse{TokenPair: pair})
}
