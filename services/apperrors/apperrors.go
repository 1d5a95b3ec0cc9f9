package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an operation failure. Every kind except store_failure is an
// anticipated business-rule outcome the UI reacts to specifically.
type Kind string

const (
	KindMissingDateRange Kind = "missing_date_range"
	KindVehicleConflict  Kind = "vehicle_conflict"
	KindDriverConflict   Kind = "driver_conflict"
	KindStaleAssignment  Kind = "stale_assignment"
	KindNotFound         Kind = "not_found"
	KindInvalidState     Kind = "invalid_state"
	KindStoreFailure     Kind = "store_failure"
)

// Error is the structured result core operations fail with.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a business-rule failure of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a business-rule failure with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Store wraps an underlying database error as a store_failure.
func Store(message string, err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: message, Err: err}
}

// KindOf extracts the failure kind from an error chain; unknown errors are
// treated as store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

// MessageOf returns the human message for an error chain. Store failures are
// surfaced generically; the underlying error stays in logs only.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStoreFailure {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps a failure kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindVehicleConflict, KindDriverConflict, KindStaleAssignment:
		return fiber.StatusConflict
	case KindMissingDateRange, KindInvalidState:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
