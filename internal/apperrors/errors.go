// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"net/http"
)

// Error is the typed fault surface of the core operations. Status carries
// the HTTP severity class (4xx faults are recoverable by the caller, 5xx
// are service faults and are reported with a generic message).
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Taxonomy codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeOutOfBounds      = "OUT_OF_BOUNDS"
	CodeDuplicateName    = "DUPLICATE_NAME"
	CodeNoImagery        = "NO_IMAGERY"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeImageryService   = "IMAGERY_SERVICE_ERROR"
	CodeInvalidState     = "INVALID_STATE"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: message}
}

func OutOfBounds(message string) *Error {
	return &Error{Code: CodeOutOfBounds, Status: http.StatusBadRequest, Message: message}
}

func DuplicateName(message string) *Error {
	return &Error{Code: CodeDuplicateName, Status: http.StatusConflict, Message: message}
}

func NoImagery(message string) *Error {
	return &Error{Code: CodeNoImagery, Status: http.StatusBadRequest, Message: message}
}

func InsufficientData(message string) *Error {
	return &Error{Code: CodeInsufficientData, Status: http.StatusBadRequest, Message: message}
}

// ImageryService wraps an adapter or network fault. The cause is kept for
// logs; callers see only the generic message.
func ImageryService(err error) *Error {
	return &Error{
		Code:    CodeImageryService,
		Status:  http.StatusInternalServerError,
		Message: "imagery service is unavailable, try again later",
		Err:     err,
	}
}

func InvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Status: http.StatusBadRequest, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: resource + " not found"}
}

func Internal(err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Err:     err,
	}
}

// From returns err as an *Error, wrapping unclassified errors as internal
// faults so no raw error text leaks to clients.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// HasCode reports whether err carries the given taxonomy code.
func HasCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
