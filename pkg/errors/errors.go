package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code, so clones still satisfy errors.Is against a sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache entry not found")
	ErrBusy         = New("BUSY", http.StatusServiceUnavailable, "service is busy, retry later")
)

// Import errors raised before or while a spreadsheet is inspected.
var (
	ErrFileNotFound           = New("FILE_NOT_FOUND", http.StatusNotFound, "file does not exist")
	ErrUnsupportedExtension   = New("UNSUPPORTED_EXTENSION", http.StatusUnsupportedMediaType, "file must be a spreadsheet (.xlsx or .xls)")
	ErrUnknownFileKind        = New("UNKNOWN_FILE_KIND", http.StatusBadRequest, "unknown file kind")
	ErrInsufficientRows       = New("INSUFFICIENT_ROWS", http.StatusUnprocessableEntity, "file is empty or has too few rows")
	ErrMissingRequiredColumns = New("MISSING_REQUIRED_COLUMNS", http.StatusUnprocessableEntity, "required columns are missing")
	ErrUnreadableFile         = New("UNREADABLE_FILE", http.StatusUnprocessableEntity, "file could not be read")
	ErrImportRejected         = New("IMPORT_REJECTED", http.StatusUnprocessableEntity, "import did not pass validation")
	ErrInvalidTransition      = New("INVALID_TRANSITION", http.StatusConflict, "operation not allowed in the current import state")
)

// Identity and document errors.
var (
	ErrInvalidIdentifier = New("INVALID_IDENTIFIER", http.StatusBadRequest, "invalid teacher identifier")
	ErrUnknownTeacher    = New("UNKNOWN_TEACHER", http.StatusNotFound, "teacher not found")
	ErrTemplateMissing   = New("TEMPLATE_MISSING", http.StatusInternalServerError, "document template not found")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
