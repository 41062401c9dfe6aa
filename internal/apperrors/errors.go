package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindAuthentication  Kind = "AuthenticationError"
	KindAuthorization   Kind = "AuthorizationError"
	KindNotFound        Kind = "NotFoundError"
	KindConflict        Kind = "ConflictError"
	KindExternalService Kind = "ExternalServiceError"
	KindRateLimit       Kind = "RateLimitError"
	KindInternal        Kind = "InternalError"
)

// Code is the machine readable reason sent to clients.
type Code string

const (
	CodeValidationFailed           Code = "ValidationFailed"
	CodeUnauthenticated            Code = "Unauthenticated"
	CodeInvalidToken               Code = "InvalidToken"
	CodeInvalidSignature           Code = "InvalidSignature"
	CodeExpired                    Code = "Expired"
	CodeWrongType                  Code = "WrongType"
	CodeWrongTokenType             Code = "WrongTokenType"
	CodeUserGone                   Code = "UserGone"
	CodeInvalidOrExpiredToken      Code = "InvalidOrExpiredToken"
	CodeInvalidCredentials         Code = "InvalidCredentials"
	CodeInvalidOrExpiredResetToken Code = "InvalidOrExpiredResetToken"
	CodeEmailDeliveryFailed        Code = "EmailDeliveryFailed"
	CodeImageUploadFailed          Code = "ImageUploadFailed"
	CodeDuplicateEmail             Code = "DuplicateEmail"
	CodeNotFound                   Code = "NotFound"
	CodeTooManyRequests            Code = "TooManyRequests"
	CodeInternal                   Code = "Internal"
)

// AppError is an operational error: its message and status are safe to show to callers.
type AppError struct {
	Kind       Kind
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy carrying field level details.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy of e that records cause for logging.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

func New(kind Kind, code Code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, HTTPStatus: statusFor(kind)}
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization, KindNotFound:
		// ownership failures are reported as not found so existence does not leak
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) *AppError {
	return New(KindValidation, CodeValidationFailed, message)
}

func NotFound(resource string) *AppError {
	return New(KindNotFound, CodeNotFound, fmt.Sprintf("No %s found with that ID", resource))
}

// NotOwned is returned when the acting user does not own the resource.
func NotOwned(resource string) *AppError {
	return New(KindAuthorization, CodeNotFound, fmt.Sprintf("No %s found with that ID", resource))
}

func Conflict(code Code, message string) *AppError {
	return New(KindConflict, code, message)
}

func Internal(err error) *AppError {
	return New(KindInternal, CodeInternal, "Something went wrong").Wrap(err)
}

var (
	ErrUnauthenticated            = New(KindAuthentication, CodeUnauthenticated, "You are not logged in. Please log in to get access")
	ErrInvalidToken               = New(KindAuthentication, CodeInvalidToken, "Invalid token. Please log in again")
	ErrInvalidSignature           = New(KindAuthentication, CodeInvalidSignature, "Token signature is invalid")
	ErrExpired                    = New(KindAuthentication, CodeExpired, "Your token has expired. Please log in again")
	ErrWrongType                  = New(KindAuthentication, CodeWrongType, "Token type mismatch")
	ErrWrongTokenType             = New(KindAuthentication, CodeWrongTokenType, "Invalid token type")
	ErrUserGone                   = New(KindAuthentication, CodeUserGone, "The user belonging to this token no longer exists")
	ErrInvalidOrExpiredToken      = New(KindAuthentication, CodeInvalidOrExpiredToken, "Invalid or expired refresh token")
	ErrInvalidCredentials         = New(KindAuthentication, CodeInvalidCredentials, "Incorrect email or password")
	ErrInvalidOrExpiredResetToken = New(KindValidation, CodeInvalidOrExpiredResetToken, "Token is invalid or has expired")
	ErrEmailDeliveryFailed        = New(KindExternalService, CodeEmailDeliveryFailed, "There was an error sending the email. Try again later")
	ErrImageUploadFailed          = New(KindExternalService, CodeImageUploadFailed, "There was an error uploading the image. Try again later")
	ErrDuplicateEmail             = Conflict(CodeDuplicateEmail, "An account with this email already exists")
	ErrTooManyRequests            = New(KindRateLimit, CodeTooManyRequests, "Too many requests from this IP, please try again later")
)

// From converts any error into an *AppError. Unclassified errors become InternalError.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsOperational reports whether err carries a message intended for the caller.
func IsOperational(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind != KindInternal
}
