package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/services"
	"github.com/bsrBe/Vent/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

// Base carries what every handler needs to decode requests and write the JSON envelope.
type Base struct {
	log         logrus.FieldLogger
	validator   *validation.Validator
	development bool
}

func NewBase(log logrus.FieldLogger, v *validation.Validator, development bool) *Base {
	return &Base{log: log, validator: v, development: development}
}

type successBody struct {
	Status     string               `json:"status"`
	Message    string               `json:"message,omitempty"`
	Results    *int                 `json:"results,omitempty"`
	Data       interface{}          `json:"data,omitempty"`
	Pagination *services.Pagination `json:"pagination,omitempty"`
}

type errorBody struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Code    apperrors.Code    `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Error   string            `json:"error,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

func (b *Base) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		b.log.WithError(err).Warn("failed to write response")
	}
}

// JSON writes {status:"success", data}.
func (b *Base) JSON(w http.ResponseWriter, status int, data interface{}) {
	b.writeJSON(w, status, successBody{Status: "success", Data: data})
}

// Message writes a success envelope that only carries a message.
func (b *Base) Message(w http.ResponseWriter, status int, message string) {
	b.writeJSON(w, status, successBody{Status: "success", Message: message})
}

// Page writes a list with its result count and pagination block.
func (b *Base) Page(w http.ResponseWriter, data interface{}, count int, page services.Pagination) {
	b.writeJSON(w, http.StatusOK, successBody{Status: "success", Results: &count, Data: data, Pagination: &page})
}

// File sends an export as an attachment.
func (b *Base) File(w http.ResponseWriter, file *services.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		b.log.WithError(err).Warn("failed to write export")
	}
}

// Error renders err. Operational errors go out verbatim; anything else is logged and,
// outside development, replaced by a generic message.
func (b *Base) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)
	entry := b.log.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"code":       appErr.Code,
		"request_id": middleware.GetReqID(r.Context()),
	})

	body := errorBody{Message: appErr.Message, Code: appErr.Code, Details: appErr.Details, Status: "fail"}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		body.Status = "error"
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}

	if b.development {
		if appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
		if !apperrors.IsOperational(err) {
			body.Stack = string(debug.Stack())
		}
	}
	b.writeJSON(w, appErr.HTTPStatus, body)
}

// Decode reads a JSON body into dst and validates it. Unknown fields are rejected.
func (b *Base) Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.Validation("Request body is required")
		case errors.As(err, &maxErr):
			return apperrors.Validation("Request body is too large")
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return apperrors.Validation("Invalid input data").WithDetails(map[string]string{field: "Unknown field"})
		default:
			return apperrors.Validation("Invalid request body")
		}
	}
	return b.validator.Struct(dst)
}

func (b *Base) pathID(r *http.Request, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation(fmt.Sprintf("Invalid %s id", resource))
	}
	return id, nil
}

type userKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user set by the auth middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey{}).(*models.User)
	return user, ok && user != nil
}

// currentUser is only called behind RequireAuth; a missing user means the route was wired without it.
func currentUser(r *http.Request) (*models.User, error) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return user, nil
}
