package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Kind classifies an application error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindBadRequest
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindDatabase:
		return "database"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code associated with the kind.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Context carries diagnostic details attached to an error.
type Context map[string]any

// FieldError describes a single failed input field.
type FieldError struct {
	Field   string
	Message string
}

// Error is the typed error returned by services and mapped by the HTTP layer.
type Error struct {
	Kind    Kind
	Message string
	Context Context
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int { return e.Kind.Status() }

func newError(kind Kind, message string, ctx Context) *Error {
	return &Error{Kind: kind, Message: message, Context: ctx}
}

// Authentication builds an error for identities that cannot be used.
func Authentication(message string, ctx Context) *Error {
	return newError(KindAuthentication, message, ctx)
}

// Authorization builds an error for insufficient rights.
func Authorization(message string, ctx Context) *Error {
	return newError(KindAuthorization, message, ctx)
}

// NotFound builds an error for missing entities.
func NotFound(message string, ctx Context) *Error {
	return newError(KindNotFound, message, ctx)
}

// BadRequest builds an error for violated preconditions.
func BadRequest(message string, ctx Context) *Error {
	return newError(KindBadRequest, message, ctx)
}

// Validation builds an error listing every failed field.
func Validation(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation error", Fields: fields}
}

// Database wraps a storage failure. Typed errors pass through untouched.
func Database(err error, ctx Context) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: KindDatabase, Message: "Database error", Context: ctx, Err: err}
}

// AsError extracts a typed error from the chain.
func AsError(err error) (*Error, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	typed, ok := AsError(err)
	return ok && typed.Kind == kind
}
