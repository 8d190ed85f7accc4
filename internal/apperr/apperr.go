// Package apperr defines the application error taxonomy. Errors are created
// where a failure is first understood and travel unchanged to the HTTP
// boundary, where Kind decides the response status. Nothing in between
// retries or rewrites them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	// KindValidation marks missing or malformed request fields.
	KindValidation Kind = iota
	// KindAuthorization marks requests blocked by the premium gate.
	KindAuthorization
	// KindConfiguration marks missing credentials or endpoints. Operator
	// correctable, never user correctable.
	KindConfiguration
	// KindUpstream marks failures reported by an external provider.
	KindUpstream
	// KindEmptyResult marks a generation that completed without output.
	KindEmptyResult
)

// Error is an application error with a user-facing message and optional
// provider detail.
type Error struct {
	Kind    Kind
	Message string
	Details string
	wrapped error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// HTTPStatus maps the error kind to a response status class.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a user-correctable request error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorization builds a premium-gate error.
func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Configuration builds an operator-correctable error.
func Configuration(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a provider failure.
func Upstream(err error, format string, args ...interface{}) *Error {
	e := &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), wrapped: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// UpstreamDetail builds a provider failure carrying the provider's own
// detail message.
func UpstreamDetail(message, details string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Details: details}
}

// EmptyResult marks a generation that finished without producing output.
func EmptyResult(message string) *Error {
	return &Error{Kind: KindEmptyResult, Message: message}
}

// From extracts an *Error from err, or wraps it as an upstream failure so
// the boundary always has a status to answer with.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindUpstream, Message: "internal error", Details: err.Error(), wrapped: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
