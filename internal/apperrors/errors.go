package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure for HTTP status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindAuth
	KindValidation
	KindNotFound
	KindPermission
	KindRateLimit
	KindConflict
	KindUnavailable
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Auth(message string) *Error {
	return New(KindAuth, "unauthorized", message)
}

func Invalid(code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, "not_found", message)
}

func Permission(message string) *Error {
	return New(KindPermission, "forbidden", message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, "internal_error", message, err)
}

// InvalidState is returned for lifecycle violations, e.g. rescheduling a post
// that is already publishing or published.
func InvalidState(message string) *Error {
	return New(KindValidation, "invalid_state", message)
}

// InvalidTime is returned for scheduling times in the past.
func InvalidTime(message string) *Error {
	return New(KindValidation, "invalid_time", message)
}

// KindOf reports the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the machine-readable code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return fiber.StatusUnauthorized
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindPermission:
		return fiber.StatusForbidden
	case KindRateLimit:
		return fiber.StatusTooManyRequests
	case KindConflict:
		return fiber.StatusConflict
	case KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// MessageOf reports a user-safe message for err. Internal failures are masked.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "something went wrong"
}
