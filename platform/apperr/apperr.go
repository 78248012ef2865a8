// Package apperr defines the typed errors services return. The HTTP layer
// maps each Kind to a status code, so services never pick status codes
// themselves.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	// KindConflict covers duplicates and stale writes.
	KindConflict
	KindInternal
	// KindTooManyRequests means the caller is blocked for a while; the
	// remaining time travels in Details.
	KindTooManyRequests
	// KindUnavailable means a dependency failed and the same request may
	// succeed later.
	KindUnavailable
)

var statusByKind = map[Kind]int{
	KindNotFound:        http.StatusNotFound,
	KindValidation:      http.StatusBadRequest,
	KindConflict:        http.StatusConflict,
	KindInternal:        http.StatusInternalServerError,
	KindTooManyRequests: http.StatusTooManyRequests,
	KindUnavailable:     http.StatusServiceUnavailable,
}

// Error is a domain error with a Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // operation that failed, optional
	Err     error  // cause, optional
	Details any    // rendered in the response body, optional
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status for the error's Kind. Unknown
// kinds are treated as bad requests.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	return e.Kind == KindTooManyRequests || e.Kind == KindUnavailable
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the failing operation and returns e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets the response details and returns e.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Validation(message string) *Error      { return New(KindValidation, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func Internal(message string) *Error        { return New(KindInternal, message) }
func TooManyRequests(message string) *Error { return New(KindTooManyRequests, message) }
func Unavailable(message string) *Error     { return New(KindUnavailable, message) }

// Is reports whether err has an *Error of the given kind in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return kind == KindUnknown
}
