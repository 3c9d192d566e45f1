// Package domain provides the canonical request, result and error types shared by
// every provider adapter.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind separates failures by who has to act on them.
type ErrorKind string

const (
	// KindValidation means the caller's input violated a precondition. The
	// request never reached the transport.
	KindValidation ErrorKind = "validation"

	// KindTransport means the HTTP round trip itself failed (dial, TLS, timeout,
	// cancellation).
	KindTransport ErrorKind = "transport"

	// KindHTTPStatus means the provider answered with a non-success status.
	KindHTTPStatus ErrorKind = "http_status"

	// KindProvider means the provider answered 2xx but the body was an error envelope.
	KindProvider ErrorKind = "provider"

	// KindDecode means the body matched no accepted shape or broke a structural
	// invariant after matching.
	KindDecode ErrorKind = "decode"
)

// ErrorType classifies an HTTP status failure.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypePermission     ErrorType = "permission"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeOverloaded     ErrorType = "overloaded"
	ErrorTypeServer         ErrorType = "server"
)

// UnknownErrorMessage is used when a failure envelope carries no message.
const UnknownErrorMessage = "Unknown error"

// ErrInvalidAuthentication is wrapped by the error Verify returns when the
// provider rejects the key. Match it with errors.Is.
var ErrInvalidAuthentication = errors.New("invalid authentication")

// Error is the single error type surfaced by every adapter.
type Error struct {
	// Kind is the failure category.
	Kind ErrorKind

	// Provider names the provider family ("tei", "volcengine", "bailian").
	Provider string

	// Operation names the adapter operation ("chat", "embeddings", "rerank", ...).
	Operation string

	// StatusCode is the HTTP status for KindHTTPStatus and KindProvider errors.
	StatusCode int

	// Message is the human readable reason.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix = e.Provider + " " + prefix
	}
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("%s %d: %s", prefix, e.StatusCode, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Type classifies the error by status code. Only meaningful for KindHTTPStatus.
func (e *Error) Type() ErrorType {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case e.StatusCode == http.StatusForbidden:
		return ErrorTypePermission
	case e.StatusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case e.StatusCode == http.StatusServiceUnavailable:
		return ErrorTypeOverloaded
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrorTypeInvalidRequest
	default:
		return ErrorTypeServer
	}
}

// Retryable reports whether a wrapping layer may retry the call unchanged.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindHTTPStatus:
		return e.StatusCode == http.StatusRequestTimeout ||
			e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode >= 500
	default:
		return false
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewTransportError wraps a round-trip failure.
func NewTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// NewHTTPStatusError creates an error for a non-success status.
func NewHTTPStatusError(status int, message string) *Error {
	if message == "" {
		message = UnknownErrorMessage
	}
	return &Error{Kind: KindHTTPStatus, StatusCode: status, Message: message}
}

// NewProviderError creates an error for an error envelope returned with a 2xx status.
func NewProviderError(status int, message string) *Error {
	if message == "" {
		message = UnknownErrorMessage
	}
	return &Error{Kind: KindProvider, StatusCode: status, Message: message}
}

// NewDecodeError creates a decode error. cause carries the parse failure reason.
func NewDecodeError(message string, cause error) *Error {
	return &Error{Kind: KindDecode, Message: message, Err: cause}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsHTTPStatus reports whether err is an HTTP status error.
func IsHTTPStatus(err error) bool { return KindOf(err) == KindHTTPStatus }

// IsProvider reports whether err is a provider-reported error.
func IsProvider(err error) bool { return KindOf(err) == KindProvider }

// IsDecode reports whether err is a decode error.
func IsDecode(err error) bool { return KindOf(err) == KindDecode }

// Annotate fills in the provider and operation of err when it is an *Error and
// returns err unchanged otherwise.
func Annotate(err error, provider, operation string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Provider == "" {
			e.Provider = provider
		}
		if e.Operation == "" {
			e.Operation = operation
		}
	}
	return err
}
