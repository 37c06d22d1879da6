package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so transport and retry layers can react without
// inspecting messages.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindEmptyDocument
	KindEmptyInput
	KindServiceUnavailable
	KindServiceTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindEmptyDocument:
		return "EMPTY_DOCUMENT"
	case KindEmptyInput:
		return "EMPTY_INPUT"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case KindServiceTimeout:
		return "SERVICE_TIMEOUT"
	default:
		return "INTERNAL"
	}
}

// Error carries a kind, a user-facing message, and an optional wrapped cause.
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

// New creates an error of the given kind with a user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
// A nil cause returns nil so call sites can wrap unconditionally.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message from an error chain, or a
// generic fallback for unclassified errors. Internal detail stays in logs.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "An internal error occurred. Please try again later."
}

// IsRetryable reports whether retrying the operation could succeed.
// Only transient upstream failures qualify.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindServiceUnavailable, KindServiceTimeout:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error chain to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindEmptyDocument, KindEmptyInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindServiceUnavailable, KindServiceTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
