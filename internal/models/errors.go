package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes for the application's error taxonomy. Every handler maps every
// member to a response status; nothing is left to the framework default.
const (
	CodeMalformedID        = "MALFORMED_ID"
	CodeNotFound           = "NOT_FOUND"
	CodeMissingField       = "MISSING_FIELD"
	CodeValidation         = "VALIDATION_ERROR"
	CodeOwnershipViolation = "OWNERSHIP_VIOLATION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the API error body. Errors are always rendered as a single
// "error" field.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the body for empty-but-not-erroneous results.
type StatusResponse struct {
	Status string `json:"status"`
}

// AppError represents a custom application error.
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

// NewMalformedIDError wraps an identifier parse failure. The message mirrors
// the parser's detail so clients see what was wrong with the id.
func NewMalformedIDError(err error) *AppError {
	return &AppError{
		Code:    CodeMalformedID,
		Message: fmt.Sprintf("Invalid UUID: %v", err),
		Err:     err,
	}
}

// NewNotFoundError reports a well-formed identifier with no matching record.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %s does not exist", resource, id),
	}
}

// NewMissingFieldError reports a required input field that was absent.
func NewMissingFieldError(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewOwnershipViolationError reports a post resolved under the wrong user.
func NewOwnershipViolationError(postID, userID string) *AppError {
	return &AppError{
		Code:    CodeOwnershipViolation,
		Message: fmt.Sprintf("BlogPost with id %s does not belong to user with id %s", postID, userID),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError writes the standardized error body.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(status).JSON(ErrorResponse{Error: appErr.Message})
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

// RespondWithStatus writes the informational status body used by the
// empty-result endpoints.
func RespondWithStatus(c *fiber.Ctx, message string) error {
	return c.JSON(StatusResponse{Status: message})
}
