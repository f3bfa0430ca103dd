package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeStoreUnavailable           = "STORE_UNAVAILABLE"
	CodeConstraintViolation        = "CONSTRAINT_VIOLATION"
	CodeNotificationDeliveryFailed = "NOTIFICATION_DELIVERY_FAILED"
	CodeMalformedReference         = "MALFORMED_REFERENCE"
	CodeValidation                 = "VALIDATION_ERROR"
	CodeNotFound                   = "NOT_FOUND"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeForbidden                  = "FORBIDDEN"
	CodeInternal                   = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewValidationError reports rejected input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError reports an identity acting on something it does not own.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewStoreError wraps a failed read or write against the event log.
func NewStoreError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: fmt.Sprintf("store unavailable during %s", operation),
		Err:     err,
	}
}

// NewConstraintViolation reports a write rejected by a uniqueness rule.
func NewConstraintViolation(message string) *AppError {
	return &AppError{
		Code:    CodeConstraintViolation,
		Message: message,
	}
}

// NewDeliveryError reports a notification that could not be produced.
func NewDeliveryError(kind NotificationKind, err error) *AppError {
	return &AppError{
		Code:    CodeNotificationDeliveryFailed,
		Message: fmt.Sprintf("%s notification could not be delivered", kind),
		Err:     err,
	}
}

// NewMalformedReference reports a fact row pointing at the wrong or a missing post.
func NewMalformedReference(kind, id, postID string) *AppError {
	return &AppError{
		Code:    CodeMalformedReference,
		Message: fmt.Sprintf("%s %s does not reference post %s", kind, id, postID),
	}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConstraintViolation:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && status < http.StatusInternalServerError {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
